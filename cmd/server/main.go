package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/mahjongtracker/internal/api"
	"github.com/mcoot/mahjongtracker/internal/config"
	"github.com/mcoot/mahjongtracker/internal/factory"
	"github.com/mcoot/mahjongtracker/internal/storage/postgres"
)

// sessionPruneInterval is how often in-memory sessions are swept
const sessionPruneInterval = 10 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "mahjong-server",
		Short:         "Mahjong score tracker server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configPath)
			if err != nil {
				return err
			}
			if err := serve(cmd.Context(), cfg, logger); err != nil {
				logger.Error("server error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default config.yaml or $MJTRACK_CONFIG)")

	cmd.AddCommand(newMigrateCmd(&configPath))
	return cmd
}

// setup loads configuration and installs the JSON logger as the default
func setup(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create application factory
	app, err := factory.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()
	app.StartSessionPruner(ctx, sessionPruneInterval, logger)

	if info, err := os.Stat(cfg.Server.StaticDir); cfg.Server.StaticDir != "" && (err != nil || !info.IsDir()) {
		logger.Warn("static client directory not found, serving the API only",
			slog.String("static_dir", cfg.Server.StaticDir))
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Metrics:         app.Metrics,
		AuthService:     app.AuthService,
		PlayerRegistry:  app.PlayerRegistry,
		StatsAggregator: app.StatsAggregator,
		GameController:  app.GameController,
		ResultRecorder:  app.ResultRecorder,
		RateLimit:       rateLimit(cfg.RateLimit),
		StaticDir:       cfg.Server.StaticDir,
		CORSOrigins:     cfg.Server.CORSOrigins,
	})

	server := api.NewServer(router, cfg.Server, logger)
	if err := server.Listen(); err != nil {
		return err
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func rateLimit(cfg config.RateLimitConfig) api.RateLimitConfig {
	if !cfg.Enabled {
		return api.RateLimitConfig{}
	}
	return api.RateLimitConfig{RequestsPerSecond: cfg.RequestsPerSecond, Burst: cfg.Burst}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	// postgresURL loads config and insists on the postgres backend; sqlite
	// and memory stores create their schema on open
	postgresURL := func() (string, *slog.Logger, error) {
		cfg, logger, err := setup(*configPath)
		if err != nil {
			return "", nil, err
		}
		if cfg.Storage.Type != config.StoragePostgres {
			return "", nil, errors.New("migrations only apply to postgres storage")
		}
		return cfg.Storage.DatabaseURL, logger, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, logger, err := postgresURL()
			if err != nil {
				return err
			}
			return postgres.MigrateUp(url, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}
			url, logger, err := postgresURL()
			if err != nil {
				return err
			}
			return postgres.MigrateDown(url, steps, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _, err := postgresURL()
			if err != nil {
				return err
			}
			status, err := postgres.Status(url)
			if err != nil {
				return err
			}
			if !status.Applied {
				cmd.Println("no migrations applied")
				return nil
			}
			cmd.Printf("version %d (dirty: %t)\n", status.Version, status.Dirty)
			return nil
		},
	})

	return cmd
}
