package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/store/sqlite"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
}

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return NewService(st, testJWTConfig())
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	for _, name := range []string{"ab", " ab ", "has space", "dash-name", "abcdefghijklmnopqrstu"} {
		if _, err := svc.Register(ctx, name, "password123", ""); !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("%q: expected ErrInvalidUsername, got %v", name, err)
		}
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	for _, pw := range []string{"abc123", "passwordonly", "12345678"} {
		if _, err := svc.Register(ctx, "alice", pw, ""); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("%q: expected ErrInvalidPassword, got %v", pw, err)
		}
	}
}

func TestRegister_RejectsUnknownPlatform(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "alice", "password123", "dreamcast")
	if domain.CodeOf(err) != domain.CodeInvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
}

func TestRegister_TrimsUsernameAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, " alice ", "password123", "xbox")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	// Should collide because the stored username is trimmed.
	_, err = svc.Register(ctx, "alice", "password123", "")
	if !errors.Is(err, ErrUserExists) || domain.CodeOf(err) != domain.CodeConflict {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob", "hunter2hunter", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "bob", "wrongpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "hunter2hunter"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	token, err := svc.Login(ctx, "bob", "hunter2hunter")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, err := svc.VerifyCredential(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Username != "bob" || id.UserID == "" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyCredential_Rejects(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	other := testJWTConfig()
	other.Secret = []byte("another-secret")
	forged, err := GenerateToken(other, "u1", "mallory", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	expiredCfg := testJWTConfig()
	expiredCfg.TTL = -time.Minute
	expired, err := GenerateToken(expiredCfg, "u1", "late", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for name, token := range map[string]string{
		"empty":   "",
		"garbage": "not-a-jwt",
		"forged":  forged,
		"expired": expired,
	} {
		_, err := svc.VerifyCredential(ctx, token)
		if domain.CodeOf(err) != domain.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestGuestUserAndProfile(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, sessionID, err := svc.CreateGuestUser(ctx, "playstation")
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("expected session id")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !claims.IsGuest || claims.Subject != claims.UserID {
		t.Fatalf("claims = %+v", claims)
	}

	profile, err := svc.UserProfile(ctx, claims.UserID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Platform != domain.PlatformPlayStation || profile.Username != claims.Username {
		t.Fatalf("profile = %+v", profile)
	}

	if _, err := svc.UserProfile(ctx, "missing"); domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}
