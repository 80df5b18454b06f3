package lobby

import "github.com/vovakirdan/gamebridge-server/internal/domain"

// ChangeKind describes a committed mutation.
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeJoined
	ChangeLeft
	ChangeKicked
	ChangeSettings
	ChangeMute
	ChangeDeafen
	ChangeMessage
	ChangeMessageDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeJoined:
		return "joined"
	case ChangeLeft:
		return "left"
	case ChangeKicked:
		return "kicked"
	case ChangeSettings:
		return "settings"
	case ChangeMute:
		return "mute"
	case ChangeDeafen:
		return "deafen"
	case ChangeMessage:
		return "message"
	case ChangeMessageDeleted:
		return "message_deleted"
	default:
		return "unknown"
	}
}

// Departure is the outcome of a participant leaving or being removed.
type Departure struct {
	LobbyID   string
	UserID    string
	Username  string
	WasHost   bool
	NewHostID string // empty when the host did not change
	Disbanded bool
}

// Change is a committed mutation of one lobby. Seq increases by one per
// change within a lobby.
type Change struct {
	Kind        ChangeKind
	Seq         uint64
	Lobby       domain.Lobby // state right after the change
	ActorID     string       // user that requested the change
	ActorConnID string       // connection that requested a create or join, if any
	Participant *domain.Participant
	Departure   *Departure
	Message     *domain.ChatMessage
	MessageID   string
	History     []domain.ChatMessage // messages before a join, oldest first
}

// Observer is notified of every committed change while the lobby is still
// locked, so notifications for one lobby arrive in commit order.
// Implementations must not block.
type Observer interface {
	Observe(ch Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ch Change)

// Observe calls f(ch).
func (f ObserverFunc) Observe(ch Change) { f(ch) }
