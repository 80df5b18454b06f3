package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/gamebridge-server/internal/app"
	"github.com/vovakirdan/gamebridge-server/internal/auth"
	"github.com/vovakirdan/gamebridge-server/internal/config"
	"github.com/vovakirdan/gamebridge-server/internal/log"
	"github.com/vovakirdan/gamebridge-server/internal/utils"
)

type rootFlags struct {
	configPath string
	logLevel   string
	addr       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "gamebridge",
		Short:         "Voice lobby and signaling server for cross-platform game parties",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	})
	root.AddCommand(newTokenCmd(flags))
	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	bootstrap := log.New("info", "console")
	cfg, path, err := config.Load(bootstrap, flags.configPath, config.Overrides{
		Addr:     flags.addr,
		LogLevel: flags.logLevel,
	})
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func runServe(parent context.Context, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := log.New(cfg.Log.Level, cfg.Log.Format)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Str("database", cfg.Database.Driver).Msg("starting gamebridge server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var (
		userID   string
		username string
		guest    bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a credential signed with the configured JWT secret (development only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if userID == "" {
				userID = utils.NewSessionID()
			}
			if !auth.ValidUsername(username) {
				return fmt.Errorf("invalid username %q", username)
			}
			token, err := auth.GenerateToken(app.NewJWTConfig(cfg.JWT), userID, username, guest)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id to embed (random when empty)")
	cmd.Flags().StringVar(&username, "username", "developer", "username to embed")
	cmd.Flags().BoolVar(&guest, "guest", false, "mark the credential as a guest")
	return cmd
}
