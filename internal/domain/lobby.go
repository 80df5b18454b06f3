package domain

import "time"

// Lobby limits.
const (
	MinParticipants        = 2
	MaxParticipants        = 16
	DefaultMaxParticipants = 8
	JoinCodeLength         = 6
	MaxMessageLength       = 1000
	MaxLobbyNameLength     = 64
)

// Lobby is a capacity-bounded voice/chat room with one host.
type Lobby struct {
	ID              string
	Name            string
	HostID          string
	MaxParticipants int
	IsPrivate       bool
	Code            string
	CreatedAt       time.Time
	Participants    []Participant // ordered by arrival
}

// Participant links a user to a lobby.
type Participant struct {
	UserID     string
	Username   string
	Platform   Platform
	IsMuted    bool
	IsDeafened bool
	JoinedAt   time.Time
	IsHost     bool
}

// Participant returns the roster entry for userID.
func (l *Lobby) Participant(userID string) (Participant, bool) {
	for _, p := range l.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// UserIDs returns the participant user ids in arrival order.
func (l *Lobby) UserIDs() []string {
	ids := make([]string, 0, len(l.Participants))
	for _, p := range l.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// MessageKind describes who produced a chat message and why.
type MessageKind string

const (
	MessageText       MessageKind = "text"
	MessageSystem     MessageKind = "system"
	MessageUserJoined MessageKind = "user_joined"
	MessageUserLeft   MessageKind = "user_left"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageText, MessageSystem, MessageUserJoined, MessageUserLeft:
		return true
	}
	return false
}

// ChatMessage is an append-only lobby-scoped message. An empty AuthorID
// marks a system-generated message.
type ChatMessage struct {
	ID         string
	LobbyID    string
	AuthorID   string
	AuthorName string
	Content    string
	Kind       MessageKind
	CreatedAt  time.Time
}

// IsSystem reports whether the message has no author.
func (m *ChatMessage) IsSystem() bool {
	return m.AuthorID == ""
}

// SettingsPatch is a partial lobby settings update. Nil fields are untouched.
type SettingsPatch struct {
	Name            *string
	MaxParticipants *int
	IsPrivate       *bool
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.Name == nil && p.MaxParticipants == nil && p.IsPrivate == nil
}
