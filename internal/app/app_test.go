package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/config"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/store"
	"github.com/vovakirdan/gamebridge-server/internal/store/sqlite"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Log.Level = "error"
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func runFor(t *testing.T, a *App, d time.Duration) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(d)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestAppRunsWithoutPersistence(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "none"
	logger := zerolog.Nop()

	a, err := New(context.Background(), &cfg, &logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.writer != nil {
		t.Fatal("writer created without persistence")
	}
	runFor(t, a, 100*time.Millisecond)
}

func TestAppRejectsBadICEServers(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "none"
	cfg.ICEServers = []config.ICEServerConfig{{URLs: []string{"turn:turn.example.org:3478"}}}
	logger := zerolog.Nop()

	if _, err := New(context.Background(), &cfg, &logger); err == nil {
		t.Fatal("expected error for turn server without credentials")
	}
}

func TestAppRestoresAndReapsDetachedParticipants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamebridge.db")
	code, err := lobby.GenerateCode()
	if err != nil {
		t.Fatalf("code: %v", err)
	}

	seed, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	if err := seed.UpsertLobby(ctx, &store.Lobby{ID: "l1", Name: "squad", HostID: "u1", MaxParticipants: 4, Code: code, CreatedAt: now}); err != nil {
		t.Fatalf("seed lobby: %v", err)
	}
	if err := seed.UpsertParticipant(ctx, &store.Participant{LobbyID: "l1", UserID: "u1", Username: "alice", Platform: "pc", JoinedAt: now}); err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	seed.Close()

	cfg := testConfig()
	cfg.Database.Path = path
	cfg.Restore.Grace = 50 * time.Millisecond
	logger := zerolog.Nop()

	a, err := New(ctx, &cfg, &logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(a.restored) != 1 || a.restored[0] != "u1" {
		t.Fatalf("restored = %v", a.restored)
	}
	runFor(t, a, 500*time.Millisecond)

	check, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer check.Close()
	states, err := check.LoadLobbies(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("lobby survived reap: %+v", states[0].Lobby)
	}
}
