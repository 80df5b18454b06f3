// Package postgres implements store.Store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vovakirdan/gamebridge-server/internal/store"
)

// PostgresStore implements store.Store for PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

// New connects to dsn and migrates the schema.
func New(dsn string, logger *zerolog.Logger) (*PostgresStore, error) {
	zl := zerolog.Nop()
	if logger != nil {
		zl = logger.With().Str("component", "postgres").Logger()
	}

	gl := gormlogger.New(&zl, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	return Open(postgres.Open(dsn), &gorm.Config{Logger: gl, TranslateError: true})
}

// Open uses an already configured gorm dialector.
func Open(dialector gorm.Dialector, cfg *gorm.Config) (*PostgresStore, error) {
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&userModel{}, &lobbyModel{}, &participantModel{}, &messageModel{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func wrap(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, store.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash, platform string) (*store.User, error) {
	m := &userModel{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Platform:     platform,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, wrap(err, "insert user")
	}
	return m.toStore(), nil
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *PostgresStore) CreateGuestUser(ctx context.Context, sessionID, platform string) (*store.User, error) {
	if len(sessionID) < 8 {
		return nil, fmt.Errorf("guest session id too short")
	}
	m := &userModel{
		ID:        uuid.NewString(),
		Username:  "guest_" + sessionID[:8],
		Platform:  platform,
		IsGuest:   true,
		SessionID: &sessionID,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, wrap(err, "insert guest user")
	}
	return m.toStore(), nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "user "+id)
	}
	return m.toStore(), nil
}

// GetUserByUsername retrieves a registered (non-guest) user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var m userModel
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_guest = ?", username, false).
		First(&m).Error
	if err != nil {
		return nil, wrap(err, "user "+username)
	}
	return m.toStore(), nil
}

// SetUserOnline records the online flag and refreshes last_seen.
func (s *PostgresStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	res := s.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_online": online, "last_seen": time.Now().UTC()})
	if res.Error != nil {
		return wrap(res.Error, "update presence")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ==== LobbyStore implementation ====

// UpsertLobby inserts or replaces a lobby row.
func (s *PostgresStore) UpsertLobby(ctx context.Context, l *store.Lobby) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "host_id", "max_participants", "is_private"}),
		}).
		Omit(clause.Associations).
		Create(lobbyFromStore(l)).Error
	if err != nil {
		return wrap(err, "upsert lobby")
	}
	return nil
}

// DeleteLobby removes a lobby with its participants and messages.
func (s *PostgresStore) DeleteLobby(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lobby_id = ?", id).Delete(&messageModel{}).Error; err != nil {
			return wrap(err, "delete messages")
		}
		if err := tx.Where("lobby_id = ?", id).Delete(&participantModel{}).Error; err != nil {
			return wrap(err, "delete participants")
		}
		if err := tx.Where("id = ?", id).Delete(&lobbyModel{}).Error; err != nil {
			return wrap(err, "delete lobby")
		}
		return nil
	})
}

// UpsertParticipant inserts or replaces a membership row.
func (s *PostgresStore) UpsertParticipant(ctx context.Context, p *store.Participant) error {
	m := &participantModel{
		LobbyID:    p.LobbyID,
		UserID:     p.UserID,
		Username:   p.Username,
		Platform:   p.Platform,
		IsMuted:    p.IsMuted,
		IsDeafened: p.IsDeafened,
		JoinedAt:   p.JoinedAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lobby_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "platform", "is_muted", "is_deafened"}),
		}).
		Create(m).Error
	if err != nil {
		return wrap(err, "upsert participant")
	}
	return nil
}

// DeleteParticipant removes a membership row.
func (s *PostgresStore) DeleteParticipant(ctx context.Context, lobbyID, userID string) error {
	err := s.db.WithContext(ctx).
		Where("lobby_id = ? AND user_id = ?", lobbyID, userID).
		Delete(&participantModel{}).Error
	if err != nil {
		return wrap(err, "delete participant")
	}
	return nil
}

// SaveMessage persists a message.
func (s *PostgresStore) SaveMessage(ctx context.Context, m *store.Message) error {
	row := &messageModel{
		ID:        m.ID,
		LobbyID:   m.LobbyID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Body,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return wrap(err, "insert message")
	}
	return nil
}

// DeleteMessage removes a message.
func (s *PostgresStore) DeleteMessage(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&messageModel{}).Error; err != nil {
		return wrap(err, "delete message")
	}
	return nil
}

// LoadLobbies returns every persisted lobby with its participants and messages.
func (s *PostgresStore) LoadLobbies(ctx context.Context) ([]*store.LobbyState, error) {
	var rows []lobbyModel
	err := s.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at") }).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(err, "load lobbies")
	}

	out := make([]*store.LobbyState, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toStore())
	}
	return out, nil
}
