// Package app wires the stores, lobby engine and transports together and
// runs them until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/gamebridge-server/internal/auth"
	"github.com/vovakirdan/gamebridge-server/internal/broadcast"
	"github.com/vovakirdan/gamebridge-server/internal/config"
	"github.com/vovakirdan/gamebridge-server/internal/core"
	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/media/livekit"
	"github.com/vovakirdan/gamebridge-server/internal/persist"
	"github.com/vovakirdan/gamebridge-server/internal/presence"
	"github.com/vovakirdan/gamebridge-server/internal/session"
	"github.com/vovakirdan/gamebridge-server/internal/signaling"
	"github.com/vovakirdan/gamebridge-server/internal/store"
	"github.com/vovakirdan/gamebridge-server/internal/store/postgres"
	"github.com/vovakirdan/gamebridge-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/gamebridge-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	cfg         *config.Config
	server      *stdhttp.Server
	hub         *core.Hub
	broadcaster *broadcast.Broadcaster
	writer      *persist.Writer
	store       store.Store
	closers     []io.Closer
	restored    []string
	log         *zerolog.Logger
}

// NewJWTConfig converts the configured signing settings.
func NewJWTConfig(c config.JWTConfig) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(c.Secret),
		Issuer:   c.Issuer,
		Audience: c.Audience,
		TTL:      c.TTL,
	}
}

// New constructs the application with provided configuration. When
// restore is enabled, persisted lobbies are loaded before it returns.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, store: st, log: logger}

	iceServers, err := cfg.WebRTCICEServers()
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("ice servers: %w", err)
	}

	authService := auth.NewService(st, NewJWTConfig(cfg.JWT))

	trackers := presence.Multi{presence.NewStoreTracker(st)}
	if cfg.Redis.Addr != "" {
		rt, err := presence.NewRedisTracker(ctx, presence.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("redis presence: %w", err)
		}
		trackers = append(trackers, rt)
		a.closers = append(a.closers, rt)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis presence enabled")
	}

	sessions := session.NewRegistry(logger)
	lobbies := lobby.NewStore(logger, lobby.WithJoinHistory(cfg.Lobby.HistoryOnJoin))

	persistent := cfg.Database.Driver != "none"
	if persistent && cfg.Restore.Enabled {
		users, err := persist.Load(ctx, st, lobbies)
		if err != nil {
			a.cleanup()
			return nil, err
		}
		a.restored = users
		logger.Info().Int("lobbies", lobbies.Count()).Int("participants", len(users)).Msg("lobbies restored")
	}

	opts := core.Options{
		Presence:               trackers,
		Profiles:               authService,
		ICEServers:             make([]domain.ICEServer, 0, len(iceServers)),
		HistoryOnJoin:          cfg.Lobby.HistoryOnJoin,
		DefaultMaxParticipants: cfg.Lobby.DefaultMaxParticipants,
	}
	for _, s := range iceServers {
		cred, _ := s.Credential.(string)
		opts.ICEServers = append(opts.ICEServers, domain.ICEServer{URLs: s.URLs, Username: s.Username, Credential: cred})
	}
	if lk := cfg.LiveKit; lk.Enabled() {
		opts.Media = livekit.New(lk.APIKey, lk.APISecret, lk.URL, lk.TokenTTL)
		logger.Info().Str("url", lk.URL).Msg("livekit grants enabled")
	}

	bcOpts := []broadcast.Option{broadcast.WithLaneBuffer(cfg.Lobby.BroadcastBuffer)}
	if opts.Media != nil {
		bcOpts = append(bcOpts, broadcast.WithMedia(opts.Media))
	}
	a.broadcaster = broadcast.New(lobbies, sessions, logger, bcOpts...)
	lobbies.Subscribe(a.broadcaster)
	if persistent {
		a.writer = persist.NewWriter(st, cfg.Persist.QueueSize, cfg.Persist.WriteTimeout, logger)
		lobbies.Subscribe(a.writer)
	}

	a.hub = core.NewHub(sessions, lobbies, signaling.NewRelay(sessions, logger), opts, logger)
	a.server = transporthttp.NewServer(a.hub, authService, lobbies, cfg, logger)
	return a, nil
}

func openStore(cfg *config.Config, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		st, err := postgres.New(cfg.Database.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		logger.Info().Msg("postgres store initialized")
		return st, nil
	case "none":
		// Accounts still need somewhere to live; lobbies are not persisted.
		st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
		if err != nil {
			return nil, fmt.Errorf("init memory store: %w", err)
		}
		logger.Warn().Msg("persistence disabled, using in-memory store")
		return st, nil
	default:
		st, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.Database.Path).Msg("database initialized")
		return st, nil
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)
	a.server.BaseContext = func(net.Listener) context.Context { return gctx }

	// The writer stops before connections are closed, so that shutdown
	// departures do not erase the state a restart should restore.
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()
	writerDone := make(chan struct{})
	if a.writer != nil {
		g.Go(func() error {
			defer close(writerDone)
			return a.writer.Run(writerCtx)
		})
	} else {
		close(writerDone)
	}

	if len(a.restored) > 0 {
		g.Go(func() error {
			a.reapAfterGrace(gctx)
			return nil
		})
	}

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		stopWriter()
		<-writerDone

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// reapAfterGrace removes restored participants that did not reconnect in time.
func (a *App) reapAfterGrace(ctx context.Context) {
	timer := time.NewTimer(a.cfg.Restore.Grace)
	defer timer.Stop()
	select {
	case <-timer.C:
		n := a.hub.ReapDetached(ctx, a.restored)
		a.log.Info().Int("removed", n).Int("restored", len(a.restored)).Msg("restore grace elapsed")
	case <-ctx.Done():
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.broadcaster != nil {
		a.broadcaster.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
