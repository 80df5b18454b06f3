// Package auth verifies client credentials and manages accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/store"
	"github.com/vovakirdan/gamebridge-server/internal/utils"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = domain.Errorf(domain.CodeUnauthorized, "invalid credentials")
	// ErrInvalidToken is returned when a bearer credential cannot be verified.
	ErrInvalidToken = domain.Errorf(domain.CodeUnauthorized, "invalid token")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = domain.Errorf(domain.CodeConflict, "user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = domain.Errorf(domain.CodeInvalidArgument, "username must be 3-20 letters, digits or underscores")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = domain.Errorf(domain.CodeInvalidArgument, "password must be at least 8 characters with a letter and a digit")
	// ErrInvalidPlatform is returned for an unknown platform name.
	ErrInvalidPlatform = domain.Errorf(domain.CodeInvalidArgument, "unknown platform")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// ParsePlatform resolves a client-supplied platform. Empty means the default.
func ParsePlatform(raw string) (domain.Platform, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return domain.DefaultPlatform, nil
	}
	p := domain.Platform(raw)
	if !p.Valid() {
		return "", ErrInvalidPlatform
	}
	return p, nil
}

// Register creates a new user with hashed password and returns a JWT token.
func (s *Service) Register(ctx context.Context, username, password, platform string) (string, error) {
	username = strings.TrimSpace(username)
	if !ValidUsername(username) {
		return "", ErrInvalidUsername
	}
	if !ValidPassword(password) {
		return "", ErrInvalidPassword
	}
	p, err := ParsePlatform(platform)
	if err != nil {
		return "", err
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return "", ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hashedPassword, string(p))
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username, false)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username, false)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// CreateGuestUser creates a temporary guest user and returns a JWT token.
func (s *Service) CreateGuestUser(ctx context.Context, platform string) (token, sessionID string, err error) {
	p, err := ParsePlatform(platform)
	if err != nil {
		return "", "", err
	}

	sessionID = utils.NewSessionID()
	user, err := s.store.CreateGuestUser(ctx, sessionID, string(p))
	if err != nil {
		return "", "", fmt.Errorf("create guest user: %w", err)
	}

	token, err = GenerateToken(s.jwtConfig, user.ID, user.Username, true)
	if err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	return token, sessionID, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// VerifyCredential maps a bearer token to the identity it asserts.
func (s *Service) VerifyCredential(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// UserProfile returns presentation fields for userID.
func (s *Service) UserProfile(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, domain.Errorf(domain.CodeNotFound, "user not found")
		}
		return domain.Profile{}, fmt.Errorf("get user: %w", err)
	}
	p := domain.Platform(user.Platform)
	if !p.Valid() {
		p = domain.DefaultPlatform
	}
	return domain.Profile{UserID: user.ID, Username: user.Username, Platform: p}, nil
}
