package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log        LogConfig         `mapstructure:"log" yaml:"log"`
	Database   DatabaseConfig    `mapstructure:"database" yaml:"database"`
	JWT        JWTConfig         `mapstructure:"jwt" yaml:"jwt"`
	Redis      RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Lobby      LobbyConfig       `mapstructure:"lobby" yaml:"lobby"`
	WS         WSConfig          `mapstructure:"ws" yaml:"ws"`
	Persist    PersistConfig     `mapstructure:"persist" yaml:"persist"`
	Restore    RestoreConfig     `mapstructure:"restore" yaml:"restore"`
	LiveKit    LiveKitConfig     `mapstructure:"livekit" yaml:"livekit"`
	ICEServers []ICEServerConfig `mapstructure:"ice_servers" yaml:"ice_servers"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// DatabaseConfig selects the persistence driver.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite, postgres or none
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// JWTConfig holds credential signing settings.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// RedisConfig enables the Redis presence tracker when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LobbyConfig tunes lobby behavior.
type LobbyConfig struct {
	DefaultMaxParticipants int `mapstructure:"default_max_participants" yaml:"default_max_participants"`
	HistoryOnJoin          int `mapstructure:"history_on_join" yaml:"history_on_join"`
	BroadcastBuffer        int `mapstructure:"broadcast_buffer" yaml:"broadcast_buffer"`
}

// WSConfig tunes WebSocket connections.
type WSConfig struct {
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendBuffer      int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec" yaml:"rate_limit_per_sec"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	AuthTimeout     time.Duration `mapstructure:"auth_timeout" yaml:"auth_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// PersistConfig tunes the asynchronous writer.
type PersistConfig struct {
	QueueSize    int           `mapstructure:"queue_size" yaml:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// RestoreConfig controls reloading lobbies at startup.
type RestoreConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Grace   time.Duration `mapstructure:"grace" yaml:"grace"`
}

// LiveKitConfig enables SFU fallback grants when all fields are set.
type LiveKitConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret string        `mapstructure:"api_secret" yaml:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Enabled reports whether grants can be issued.
func (c LiveKitConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != ""
}

// ICEServerConfig is one STUN/TURN entry advertised to clients.
type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls" yaml:"urls" json:"urls"`
	Username   string   `mapstructure:"username" yaml:"username,omitempty" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" yaml:"credential,omitempty" json:"credential,omitempty"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "gamebridge.db",
		},
		JWT: JWTConfig{
			Secret:   "change-me",
			Issuer:   "gamebridge",
			Audience: "gamebridge-clients",
			TTL:      7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			Timeout: 2 * time.Second,
		},
		Lobby: LobbyConfig{
			DefaultMaxParticipants: 8,
			HistoryOnJoin:          50,
			BroadcastBuffer:        256,
		},
		WS: WSConfig{
			MaxMessageBytes: 64 << 10,
			SendBuffer:      64,
			RateLimitPerSec: 20,
			RateBurst:       40,
			AuthTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			PingInterval:    30 * time.Second,
		},
		Persist: PersistConfig{
			QueueSize:    1024,
			WriteTimeout: 5 * time.Second,
		},
		Restore: RestoreConfig{
			Enabled: true,
			Grace:   60 * time.Second,
		},
		LiveKit: LiveKitConfig{
			TokenTTL: time.Hour,
		},
		ICEServers: []ICEServerConfig{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}
