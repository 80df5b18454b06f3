package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("duplicate")
)

// User represents an account.
type User struct {
	ID           string // UUID
	Username     string
	PasswordHash string
	Platform     string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	IsOnline     bool
	LastSeen     *time.Time
	CreatedAt    time.Time
}

// Lobby is the persisted form of a lobby.
type Lobby struct {
	ID              string
	Name            string
	HostID          string
	MaxParticipants int
	IsPrivate       bool
	Code            string
	CreatedAt       time.Time
}

// Participant is a persisted lobby membership.
type Participant struct {
	LobbyID    string
	UserID     string
	Username   string
	Platform   string
	IsMuted    bool
	IsDeafened bool
	JoinedAt   time.Time
}

// Message is a persisted chat message. UserID is nil for system messages.
type Message struct {
	ID        string
	LobbyID   string
	UserID    *string
	Username  string
	Body      string
	Type      string
	CreatedAt time.Time
}

// LobbyState is a lobby with everything that belongs to it.
type LobbyState struct {
	Lobby        *Lobby
	Participants []*Participant
	Messages     []*Message // oldest first
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash, platform string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID, platform string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetUserOnline records the online flag and refreshes last_seen.
	SetUserOnline(ctx context.Context, id string, online bool) error
}

// LobbyStore mirrors the in-memory lobby state.
type LobbyStore interface {
	// UpsertLobby inserts or replaces a lobby row.
	UpsertLobby(ctx context.Context, l *Lobby) error

	// DeleteLobby removes a lobby with its participants and messages.
	DeleteLobby(ctx context.Context, id string) error

	// UpsertParticipant inserts or replaces a membership row.
	UpsertParticipant(ctx context.Context, p *Participant) error

	// DeleteParticipant removes a membership row.
	DeleteParticipant(ctx context.Context, lobbyID, userID string) error

	// SaveMessage persists a message.
	SaveMessage(ctx context.Context, m *Message) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, id string) error

	// LoadLobbies returns every persisted lobby with its participants and messages.
	LoadLobbies(ctx context.Context) ([]*LobbyState, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	LobbyStore

	// Close closes the underlying database connection.
	Close() error
}
