package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatpage/internal/config"
	"chatpage/internal/logging"
	"chatpage/internal/otel"
	"chatpage/internal/server"
)

const (
	flagMode = "mode"
	flagHost = "host"
	flagPort = "port"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatpage",
		Short:         "Serves the chat page",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().String(flagMode, "", "debug or production (overrides APP_MODE)")
	cmd.Flags().String(flagHost, "", "bind host (overrides APP_HOST)")
	cmd.Flags().String(flagPort, "", "bind port (overrides PORT)")

	return cmd
}

// loadConfig reads the environment and applies explicitly set flags on top.
// Mode-dependent defaults are resolved only after the flags.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg := config.Load()

	if cmd.Flags().Changed(flagMode) {
		raw, _ := cmd.Flags().GetString(flagMode)
		mode, err := config.ParseMode(raw)
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	}
	if cmd.Flags().Changed(flagHost) {
		cfg.Host, _ = cmd.Flags().GetString(flagHost)
	}
	if cmd.Flags().Changed(flagPort) {
		cfg.Port, _ = cmd.Flags().GetString(flagPort)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	logger := logging.New(cfg.Log)

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize tracing")
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create server")
		return err
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		return err
	}

	logger.Info().Msg("Server stopped")

	return nil
}
