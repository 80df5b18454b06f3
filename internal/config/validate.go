package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of sqlite, postgres, none", c.Database.Driver))
	}

	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}

	if n := c.Lobby.DefaultMaxParticipants; n < 2 || n > 16 {
		errs = append(errs, fmt.Errorf("lobby.default_max_participants %d is outside 2..16", n))
	}
	if c.Lobby.HistoryOnJoin < 0 {
		errs = append(errs, errors.New("lobby.history_on_join must not be negative"))
	}

	if c.WS.SendBuffer <= 0 {
		errs = append(errs, errors.New("ws.send_buffer must be positive"))
	}
	if c.WS.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("ws.max_message_bytes must be positive"))
	}
	if c.WS.RateLimitPerSec < 0 || c.WS.RateBurst < 0 {
		errs = append(errs, errors.New("ws rate limit settings must not be negative"))
	}
	if c.WS.AuthTimeout <= 0 {
		errs = append(errs, errors.New("ws.auth_timeout must be positive"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not console or json", c.Log.Format))
	}

	if _, err := c.WebRTCICEServers(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}
