package postgame

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// DefaultTimeout bounds one post-game run, all steps included
const DefaultTimeout = 20 * time.Second

// RunnerConfig configures a Runner
type RunnerConfig struct {
	// SnapshotDir receives store snapshots, empty disables them
	SnapshotDir string
	// Timeout bounds the whole run, defaults to DefaultTimeout
	Timeout time.Duration
	// Async runs the steps in the background
	Async bool
}

// Runner executes the post-game steps for every recorded result: a store
// snapshot when the store supports it, then the hook. Failures are logged
// and counted, never returned.
type Runner struct {
	store   storage.Storage
	hook    Hook
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     RunnerConfig
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. hook may be nil.
func NewRunner(store storage.Storage, hook Hook, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger, cfg RunnerConfig) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Runner{
		store:   store,
		hook:    hook,
		clock:   clk,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// GameResultRecorded runs the post-game steps for the game
func (r *Runner) GameResultRecorded(ctx context.Context, gameID model.GameID) {
	if !r.cfg.Async {
		r.run(ctx, gameID)
		return
	}

	// Background work must outlive the request that triggered it
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, gameID)
	}()
}

// Wait blocks until all background runs have finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, gameID model.GameID) {
	logger := r.logger.With(slog.Int64("game_id", int64(gameID)))

	// Steps share one deadline so a synchronous run stays inside the write timeout
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if snapshotter, ok := r.store.(storage.Snapshotter); ok && r.cfg.SnapshotDir != "" {
		r.step(ctx, logger, "snapshot", func(ctx context.Context) error {
			path, err := snapshotter.Snapshot(ctx, r.cfg.SnapshotDir, r.clock.Now())
			if err == nil {
				logger.Info("database snapshot written", slog.String("path", path))
			}
			return err
		})
	}

	if r.hook != nil {
		r.step(ctx, logger, "hook", func(ctx context.Context) error {
			return r.hook.OnGameResultRecorded(ctx, gameID)
		})
	}
}

func (r *Runner) step(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) {
	start := time.Now()
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
				logger.Error("post-game step panicked",
					slog.String("step", name),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		err = fn(ctx)
	}()
	elapsed := time.Since(start)

	r.metrics.PostGameStep(name, err, elapsed)
	if err != nil {
		logger.Error("post-game step failed",
			slog.String("step", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed),
		)
		return
	}
	logger.Debug("post-game step finished", slog.String("step", name), slog.Duration("duration", elapsed))
}
