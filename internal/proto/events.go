package proto

import (
	"encoding/json"
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

// Participant is a roster entry as clients see it.
type Participant struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Platform   string `json:"platform"`
	IsMuted    bool   `json:"isMuted"`
	IsDeafened bool   `json:"isDeafened"`
	IsHost     bool   `json:"isHost"`
	JoinedAt   string `json:"joinedAt"`
}

// Lobby is the full lobby state pushed on create, join and update.
type Lobby struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	HostID           string        `json:"hostId"`
	HostUsername     string        `json:"hostUsername,omitempty"`
	MaxParticipants  int           `json:"maxParticipants"`
	IsPrivate        bool          `json:"isPrivate"`
	LobbyCode        string        `json:"lobbyCode"`
	CreatedAt        string        `json:"createdAt"`
	ParticipantCount int           `json:"participantCount"`
	Participants     []Participant `json:"participants"`
}

// ChatMessage is a lobby message. UserID is null for system messages.
type ChatMessage struct {
	ID          string  `json:"id"`
	LobbyID     string  `json:"lobbyId"`
	UserID      *string `json:"userId"`
	Username    *string `json:"username"`
	Content     string  `json:"content"`
	MessageType string  `json:"messageType"`
	CreatedAt   string  `json:"createdAt"`
}

// MediaGrant carries optional SFU credentials.
type MediaGrant struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

// ICEServer is a STUN/TURN entry for RTCPeerConnection.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// SessionReadyData greets an authenticated connection.
type SessionReadyData struct {
	ConnectionID string      `json:"connectionId"`
	UserID       string      `json:"userId"`
	Username     string      `json:"username"`
	Protocol     int         `json:"protocol"`
	ICEServers   []ICEServer `json:"iceServers"`
}

// LobbyStateData answers lobby.create and lobby.join and carries lobby.updated.
type LobbyStateData struct {
	Lobby Lobby       `json:"lobby"`
	Media *MediaGrant `json:"media,omitempty"`
}

// ParticipantJoinedData is the roster delta for a new participant.
type ParticipantJoinedData struct {
	LobbyID     string      `json:"lobbyId"`
	Participant Participant `json:"participant"`
}

// UserRefData names a user within a lobby.
type UserRefData struct {
	LobbyID string `json:"lobbyId"`
	UserID  string `json:"userId"`
}

// HostChangedData announces a host transfer.
type HostChangedData struct {
	LobbyID   string `json:"lobbyId"`
	NewHostID string `json:"newHostId"`
}

// LobbyRefData names a lobby.
type LobbyRefData struct {
	LobbyID string `json:"lobbyId"`
}

// KickedData tells a user they were removed by the host.
type KickedData struct {
	LobbyID  string `json:"lobbyId"`
	ByUserID string `json:"byUserId"`
}

// SignalForwardData is a relayed offer, answer or ICE candidate.
type SignalForwardData struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// MuteToggledData reports a participant's mute flag.
type MuteToggledData struct {
	LobbyID string `json:"lobbyId"`
	UserID  string `json:"userId"`
	IsMuted bool   `json:"isMuted"`
}

// DeafenToggledData reports a participant's deafen flag.
type DeafenToggledData struct {
	LobbyID    string `json:"lobbyId"`
	UserID     string `json:"userId"`
	IsDeafened bool   `json:"isDeafened"`
}

// MessageDeletedData announces a removed message.
type MessageDeletedData struct {
	LobbyID   string `json:"lobbyId"`
	MessageID string `json:"messageId"`
}

// ChatHistoryData delivers recent messages, oldest first.
type ChatHistoryData struct {
	LobbyID  string        `json:"lobbyId"`
	Messages []ChatMessage `json:"messages"`
}

// PongData answers ping.
type PongData struct {
	Time int64 `json:"time"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParticipantFromDomain converts a roster entry.
func ParticipantFromDomain(p domain.Participant) Participant {
	return Participant{
		UserID:     p.UserID,
		Username:   p.Username,
		Platform:   string(p.Platform),
		IsMuted:    p.IsMuted,
		IsDeafened: p.IsDeafened,
		IsHost:     p.IsHost,
		JoinedAt:   timestamp(p.JoinedAt),
	}
}

// LobbyFromDomain converts a lobby snapshot.
func LobbyFromDomain(l *domain.Lobby) Lobby {
	out := Lobby{
		ID:               l.ID,
		Name:             l.Name,
		HostID:           l.HostID,
		MaxParticipants:  l.MaxParticipants,
		IsPrivate:        l.IsPrivate,
		LobbyCode:        l.Code,
		CreatedAt:        timestamp(l.CreatedAt),
		ParticipantCount: len(l.Participants),
		Participants:     make([]Participant, 0, len(l.Participants)),
	}
	for _, p := range l.Participants {
		if p.UserID == l.HostID {
			out.HostUsername = p.Username
		}
		out.Participants = append(out.Participants, ParticipantFromDomain(p))
	}
	return out
}

// ChatMessageFromDomain converts a message.
func ChatMessageFromDomain(m *domain.ChatMessage) ChatMessage {
	out := ChatMessage{
		ID:          m.ID,
		LobbyID:     m.LobbyID,
		Content:     m.Content,
		MessageType: string(m.Kind),
		CreatedAt:   timestamp(m.CreatedAt),
	}
	if !m.IsSystem() {
		uid, name := m.AuthorID, m.AuthorName
		out.UserID, out.Username = &uid, &name
	}
	return out
}

// ChatMessagesFromDomain converts a slice of messages.
func ChatMessagesFromDomain(msgs []domain.ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for i := range msgs {
		out = append(out, ChatMessageFromDomain(&msgs[i]))
	}
	return out
}
