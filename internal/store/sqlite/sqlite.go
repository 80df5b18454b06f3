package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/gamebridge-server/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and makes sure the schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema on an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps
	// :memory: databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates missing tables and indexes.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ==== UserStore implementation ====

const userColumns = `id, username, password_hash, platform, is_guest, COALESCE(session_id, ''), is_online, last_seen, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var (
		user     store.User
		lastSeen sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Platform,
		&user.IsGuest,
		&user.SessionID,
		&user.IsOnline,
		&lastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		user.LastSeen = &lastSeen.Time
	}
	return &user, nil
}

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash, platform string) (*store.User, error) {
	query := `
		INSERT INTO users (id, username, password_hash, platform, is_guest, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, query, id, username, passwordHash, platform, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q: %w", username, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *SQLiteStore) CreateGuestUser(ctx context.Context, sessionID, platform string) (*store.User, error) {
	if len(sessionID) < 8 {
		return nil, fmt.Errorf("guest session id too short")
	}
	query := `
		INSERT INTO users (id, username, password_hash, platform, is_guest, session_id, created_at)
		VALUES (?, ?, '', ?, 1, ?, ?)
	`
	id := uuid.NewString()
	guestUsername := "guest_" + sessionID[:8]

	if _, err := s.db.ExecContext(ctx, query, id, guestUsername, platform, sessionID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("guest %q: %w", guestUsername, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert guest user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a registered (non-guest) user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? AND is_guest = 0`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// SetUserOnline records the online flag and refreshes last_seen.
func (s *SQLiteStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_online = ?, last_seen = ? WHERE id = ?`,
		online, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update presence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ==== LobbyStore implementation ====

// UpsertLobby inserts or replaces a lobby row.
func (s *SQLiteStore) UpsertLobby(ctx context.Context, l *store.Lobby) error {
	query := `
		INSERT INTO lobbies (id, name, host_id, max_participants, is_private, lobby_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			host_id = excluded.host_id,
			max_participants = excluded.max_participants,
			is_private = excluded.is_private
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.Name, l.HostID, l.MaxParticipants, l.IsPrivate, l.Code, l.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lobby code %s: %w", l.Code, store.ErrDuplicate)
		}
		return fmt.Errorf("upsert lobby: %w", err)
	}
	return nil
}

// DeleteLobby removes a lobby with its participants and messages.
func (s *SQLiteStore) DeleteLobby(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback is called on defer, error is not critical here
	}()

	for _, q := range []string{
		`DELETE FROM chat_messages WHERE lobby_id = ?`,
		`DELETE FROM lobby_participants WHERE lobby_id = ?`,
		`DELETE FROM lobbies WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete lobby %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpsertParticipant inserts or replaces a membership row.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, p *store.Participant) error {
	query := `
		INSERT INTO lobby_participants (lobby_id, user_id, username, platform, is_muted, is_deafened, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(lobby_id, user_id) DO UPDATE SET
			username = excluded.username,
			platform = excluded.platform,
			is_muted = excluded.is_muted,
			is_deafened = excluded.is_deafened
	`
	_, err := s.db.ExecContext(ctx, query,
		p.LobbyID, p.UserID, p.Username, p.Platform, p.IsMuted, p.IsDeafened, p.JoinedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// DeleteParticipant removes a membership row.
func (s *SQLiteStore) DeleteParticipant(ctx context.Context, lobbyID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM lobby_participants WHERE lobby_id = ? AND user_id = ?`, lobbyID, userID)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

// SaveMessage persists a message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, m *store.Message) error {
	query := `
		INSERT INTO chat_messages (id, lobby_id, user_id, username, content, message_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var userID sql.NullString
	if m.UserID != nil {
		userID = sql.NullString{String: *m.UserID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.LobbyID, userID, m.Username, m.Body, m.Type, m.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("message %s: %w", m.ID, store.ErrDuplicate)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// LoadLobbies returns every persisted lobby with its participants and messages.
func (s *SQLiteStore) LoadLobbies(ctx context.Context) ([]*store.LobbyState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, host_id, max_participants, is_private, lobby_code, created_at
		FROM lobbies
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query lobbies: %w", err)
	}
	defer rows.Close()

	var (
		states []*store.LobbyState
		byID   = make(map[string]*store.LobbyState)
	)
	for rows.Next() {
		var l store.Lobby
		if err := rows.Scan(&l.ID, &l.Name, &l.HostID, &l.MaxParticipants, &l.IsPrivate, &l.Code, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lobby: %w", err)
		}
		st := &store.LobbyState{Lobby: &l}
		states = append(states, st)
		byID[l.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lobbies: %w", err)
	}
	rows.Close()

	if err := s.loadParticipants(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, byID); err != nil {
		return nil, err
	}
	return states, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, byID map[string]*store.LobbyState) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lobby_id, user_id, username, platform, is_muted, is_deafened, joined_at
		FROM lobby_participants
		ORDER BY joined_at
	`)
	if err != nil {
		return fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p store.Participant
		if err := rows.Scan(&p.LobbyID, &p.UserID, &p.Username, &p.Platform, &p.IsMuted, &p.IsDeafened, &p.JoinedAt); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		if st, ok := byID[p.LobbyID]; ok {
			st.Participants = append(st.Participants, &p)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadMessages(ctx context.Context, byID map[string]*store.LobbyState) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lobby_id, user_id, username, content, message_type, created_at
		FROM chat_messages
		ORDER BY created_at
	`)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      store.Message
			userID sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.LobbyID, &userID, &m.Username, &m.Body, &m.Type, &m.CreatedAt); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		if userID.Valid {
			m.UserID = &userID.String
		}
		if st, ok := byID[m.LobbyID]; ok {
			st.Messages = append(st.Messages, &m)
		}
	}
	return rows.Err()
}
