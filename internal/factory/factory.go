package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/mahjongtracker/internal/config"
	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/dependencies/random"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
	"github.com/mcoot/mahjongtracker/internal/services/game"
	"github.com/mcoot/mahjongtracker/internal/services/player"
	"github.com/mcoot/mahjongtracker/internal/services/postgame"
	"github.com/mcoot/mahjongtracker/internal/services/result"
	"github.com/mcoot/mahjongtracker/internal/services/stats"
	"github.com/mcoot/mahjongtracker/internal/storage"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
	"github.com/mcoot/mahjongtracker/internal/storage/postgres"
	redisstorage "github.com/mcoot/mahjongtracker/internal/storage/redis"
	"github.com/mcoot/mahjongtracker/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage  storage.Storage
	Sessions storage.SessionStore

	// External dependencies
	Clock   clock.Clock
	Random  random.Random
	Metrics *metrics.Metrics

	// Services
	AuthService     *auth.Service
	PlayerRegistry  *player.Registry
	StatsAggregator *stats.Aggregator
	GameController  *game.Controller
	ResultRecorder  *result.Recorder
	PostGame        *postgame.Runner

	closers []func() error
}

// Options tunes the services built by newWithDependencies
type Options struct {
	AuthConfig      auth.Config
	MaxCodeAttempts int
	// Hook runs after each recorded result, nil disables it
	Hook     postgame.Hook
	PostGame postgame.RunnerConfig
}

// New creates a new application from configuration with all dependencies wired
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()
	m := metrics.New()

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	store, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)

	sessions, err := newSessionStore(cfg.Sessions, clk)
	if err != nil {
		cleanup()
		return nil, err
	}
	if c, ok := sessions.(io.Closer); ok {
		closers = append(closers, c.Close)
	}

	hook, closeHook, err := newHook(cfg.PostGame, store, clk, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	if closeHook != nil {
		closers = append(closers, closeHook)
	}

	app := newWithDependencies(store, sessions, clk, rnd, m, Options{
		AuthConfig:      auth.Config{SessionDuration: cfg.Sessions.TTL},
		MaxCodeAttempts: cfg.Game.MaxCodeAttempts,
		Hook:            hook,
		PostGame: postgame.RunnerConfig{
			SnapshotDir: cfg.PostGame.SnapshotDir,
			Timeout:     cfg.PostGame.Timeout,
			Async:       cfg.PostGame.Async,
		},
	}, logger)
	app.closers = closers

	logger.Info("application configured",
		slog.String("storage", cfg.Storage.Type),
		slog.String("sessions", cfg.Sessions.Store),
		slog.String("postgame_hook", cfg.PostGame.Hook),
		slog.String("postgame_publisher", cfg.PostGame.Publisher),
	)
	return app, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQLite:
		return sqlite.New(cfg.SQLitePath(), logger)
	case config.StoragePostgres:
		if err := postgres.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Type)
	}
}

func newSessionStore(cfg config.SessionsConfig, clk clock.Clock) (storage.SessionStore, error) {
	switch cfg.Store {
	case config.SessionsMemory:
		return memory.NewSessionStore(), nil
	case config.SessionsRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis URL required for redis sessions")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		return redisstorage.NewSessionStore(redisCfg, clk)
	default:
		return nil, fmt.Errorf("invalid session store %q", cfg.Store)
	}
}

// newHook builds the configured post-game hook and a closer for anything it
// holds open
func newHook(cfg config.PostGameConfig, store storage.Storage, clk clock.Clock, logger *slog.Logger) (postgame.Hook, func() error, error) {
	switch cfg.Hook {
	case config.HookNone:
		return nil, nil, nil
	case config.HookLog:
		return postgame.NewLogHook(cfg.LogPath, clk), nil, nil
	case config.HookSummary:
	default:
		return nil, nil, fmt.Errorf("invalid post-game hook %q", cfg.Hook)
	}

	var publisher postgame.Publisher
	var closer func() error
	switch cfg.Publisher {
	case config.PublisherNone, "":
	case config.PublisherGit:
		publisher = postgame.NewGitPublisher(nil, postgame.GitConfig{
			Token:   cfg.GitHubToken,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitBranch,
			LogPath: cfg.LogPath,
		}, logger)
	case config.PublisherNATS:
		nats, err := postgame.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		publisher = nats
		closer = func() error {
			nats.Close()
			return nil
		}
	default:
		return nil, nil, fmt.Errorf("invalid post-game publisher %q", cfg.Publisher)
	}

	hook := postgame.NewSummaryHook(store, clk, publisher, logger, postgame.SummaryConfig{
		Dir:     cfg.SummaryDir,
		LogPath: cfg.LogPath,
	})
	return hook, closer, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	sessions storage.SessionStore,
	clk clock.Clock,
	rnd random.Random,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *App {
	// Create services
	gameController := game.NewController(store, clk, rnd, m, logger, opts.MaxCodeAttempts)
	runner := postgame.NewRunner(store, opts.Hook, clk, m, logger, opts.PostGame)
	recorder := result.NewRecorder(store, gameController, clk, runner, m, logger)
	authService := auth.New(store, sessions, clk, rnd, m, opts.AuthConfig, logger)
	playerRegistry := player.NewRegistry(store, clk, logger)
	statsAggregator := stats.NewAggregator(store, logger)

	return &App{
		Storage:         store,
		Sessions:        sessions,
		Clock:           clk,
		Random:          rnd,
		Metrics:         m,
		AuthService:     authService,
		PlayerRegistry:  playerRegistry,
		StatsAggregator: statsAggregator,
		GameController:  gameController,
		ResultRecorder:  recorder,
		PostGame:        runner,
	}
}

// StartSessionPruner periodically drops expired sessions from stores that
// keep them in process memory. It stops when ctx is done.
func (a *App) StartSessionPruner(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	pruner, ok := a.Sessions.(interface{ Prune(time.Time) int })
	if !ok {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := pruner.Prune(a.Clock.Now()); n > 0 {
					logger.Debug("pruned expired sessions", slog.Int("count", n))
				}
			}
		}
	}()
}

// Close waits for background post-game work and releases every resource
func (a *App) Close() error {
	a.PostGame.Wait()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
