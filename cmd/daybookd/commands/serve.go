package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/daybook-app/daybook-backend/internal/api"
	"github.com/daybook-app/daybook-backend/internal/app"
	"github.com/daybook-app/daybook-backend/internal/logger"
	"github.com/daybook-app/daybook-backend/pkg/config"
	"github.com/daybook-app/daybook-backend/pkg/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Daybook API server",
	Long: `Start the Daybook API server in the foreground.

The server serves the REST API for journal entries, users and authentication
until it receives SIGINT or SIGTERM, then shuts down gracefully.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/daybook/config.yaml.

Examples:
  # Start with default config location
  daybookd serve

  # Start with custom config file
  daybookd serve --config /etc/daybook/config.yaml

  # Start with environment variable overrides
  DAYBOOK_LOGGING_LEVEL=DEBUG daybookd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Cancelled on SIGINT/SIGTERM to trigger graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewContext(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = st.Close() }()
	logger.Info("Database ready", "type", cfg.Database.Type)

	a, err := app.New(cfg.API, st, app.Options{
		RequestLogging: true,
		Metrics:        cfg.Metrics.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "path", "/metrics")
	}

	server := api.NewServer(cfg.API, a.Handler())
	logger.Info("Server is running. Press Ctrl+C to stop.", "port", server.Port())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
