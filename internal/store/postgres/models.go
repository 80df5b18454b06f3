package postgres

import (
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/store"
)

type userModel struct {
	ID           string  `gorm:"primaryKey;type:uuid"`
	Username     string  `gorm:"size:32;not null;uniqueIndex"`
	PasswordHash string  `gorm:"not null"`
	Platform     string  `gorm:"size:16;not null;default:pc"`
	IsGuest      bool    `gorm:"not null;default:false"`
	SessionID    *string `gorm:"size:64"`
	IsOnline     bool    `gorm:"not null;default:false"`
	LastSeen     *time.Time
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func (m *userModel) toStore() *store.User {
	u := &store.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Platform:     m.Platform,
		IsGuest:      m.IsGuest,
		IsOnline:     m.IsOnline,
		LastSeen:     m.LastSeen,
		CreatedAt:    m.CreatedAt,
	}
	if m.SessionID != nil {
		u.SessionID = *m.SessionID
	}
	return u
}

type lobbyModel struct {
	ID              string    `gorm:"primaryKey;type:uuid"`
	Name            string    `gorm:"size:64;not null"`
	HostID          string    `gorm:"size:64;not null"`
	MaxParticipants int       `gorm:"not null;default:8"`
	IsPrivate       bool      `gorm:"not null;default:false"`
	Code            string    `gorm:"column:lobby_code;size:6;not null;uniqueIndex"`
	CreatedAt       time.Time `gorm:"not null"`

	Participants []participantModel `gorm:"foreignKey:LobbyID;constraint:OnDelete:CASCADE"`
	Messages     []messageModel     `gorm:"foreignKey:LobbyID;constraint:OnDelete:CASCADE"`
}

func (lobbyModel) TableName() string { return "lobbies" }

type participantModel struct {
	LobbyID    string    `gorm:"primaryKey;type:uuid"`
	UserID     string    `gorm:"primaryKey;size:64;index"`
	Username   string    `gorm:"size:32;not null"`
	Platform   string    `gorm:"size:16;not null"`
	IsMuted    bool      `gorm:"not null;default:false"`
	IsDeafened bool      `gorm:"not null;default:false"`
	JoinedAt   time.Time `gorm:"not null"`
}

func (participantModel) TableName() string { return "lobby_participants" }

type messageModel struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	LobbyID   string    `gorm:"type:uuid;not null;index:idx_messages_lobby,priority:1"`
	UserID    *string   `gorm:"size:64"`
	Username  string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text;not null"`
	Type      string    `gorm:"column:message_type;size:16;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_lobby,priority:2"`
}

func (messageModel) TableName() string { return "chat_messages" }

func lobbyFromStore(l *store.Lobby) *lobbyModel {
	return &lobbyModel{
		ID:              l.ID,
		Name:            l.Name,
		HostID:          l.HostID,
		MaxParticipants: l.MaxParticipants,
		IsPrivate:       l.IsPrivate,
		Code:            l.Code,
		CreatedAt:       l.CreatedAt,
	}
}

func (m *lobbyModel) toStore() *store.LobbyState {
	st := &store.LobbyState{
		Lobby: &store.Lobby{
			ID:              m.ID,
			Name:            m.Name,
			HostID:          m.HostID,
			MaxParticipants: m.MaxParticipants,
			IsPrivate:       m.IsPrivate,
			Code:            m.Code,
			CreatedAt:       m.CreatedAt,
		},
	}
	for _, p := range m.Participants {
		st.Participants = append(st.Participants, &store.Participant{
			LobbyID:    p.LobbyID,
			UserID:     p.UserID,
			Username:   p.Username,
			Platform:   p.Platform,
			IsMuted:    p.IsMuted,
			IsDeafened: p.IsDeafened,
			JoinedAt:   p.JoinedAt,
		})
	}
	for _, msg := range m.Messages {
		st.Messages = append(st.Messages, &store.Message{
			ID:        msg.ID,
			LobbyID:   msg.LobbyID,
			UserID:    msg.UserID,
			Username:  msg.Username,
			Body:      msg.Content,
			Type:      msg.Type,
			CreatedAt: msg.CreatedAt,
		})
	}
	return st
}
