package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path, Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved = %s", resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Lobby.DefaultMaxParticipants != 8 || cfg.WS.AuthTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
addr: ":9000"
log:
  level: debug
lobby:
  history_on_join: 20
ice_servers:
  - urls: ["turn:turn.example.com:3478"]
    username: user
    credential: pass
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GAMEBRIDGE_LOBBY_HISTORY_ON_JOIN", "5")
	t.Setenv("GAMEBRIDGE_DATABASE_DRIVER", "none")

	cfg, _, err := Load(nil, path, Overrides{LogLevel: "warn"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("file value lost: %s", cfg.Addr)
	}
	if cfg.Lobby.HistoryOnJoin != 5 || cfg.Database.Driver != "none" {
		t.Fatalf("env did not win: %+v %+v", cfg.Lobby, cfg.Database)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("override did not win: %s", cfg.Log.Level)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].Username != "user" {
		t.Fatalf("ice servers = %+v", cfg.ICEServers)
	}
}

func TestLoadICEServersFromEnvJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("GAMEBRIDGE_ICE_SERVERS_JSON", `[{"urls":"stun:a.example.com:3478"},{"urls":["turns:b.example.com:5349"],"username":"u","credential":"c"}]`)

	cfg, _, err := Load(nil, path, Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	servers, err := cfg.WebRTCICEServers()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(servers) != 2 || servers[0].URLs[0] != "stun:a.example.com:3478" || servers[1].Credential != "c" {
		t.Fatalf("servers = %+v", servers)
	}
}

func TestICEServerValidation(t *testing.T) {
	cases := []struct {
		name    string
		server  ICEServerConfig
		wantErr string
	}{
		{"ok stun", ICEServerConfig{URLs: []string{"stun:stun.example.com:3478"}}, ""},
		{"no urls", ICEServerConfig{}, "missing urls"},
		{"bad scheme", ICEServerConfig{URLs: []string{"http://example.com"}}, "invalid url"},
		{"turn without creds", ICEServerConfig{URLs: []string{"turn:t.example.com:3478"}}, "require username"},
		{"turn without credential", ICEServerConfig{URLs: []string{"turn:t.example.com:3478"}, Username: "u"}, "require credential"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.ICEServers = []ICEServerConfig{tc.server}
			_, err := cfg.WebRTCICEServers()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Lobby.DefaultMaxParticipants = 40
	cfg.JWT.Secret = " "

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"database.driver", "default_max_participants", "jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
