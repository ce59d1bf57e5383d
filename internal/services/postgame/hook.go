// Package postgame runs best-effort processing after a game result is
// recorded: a store snapshot followed by a configurable hook.
package postgame

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/model"
)

// DefaultLogPath is the completion log written by the built-in hooks
const DefaultLogPath = "game_log.txt"

// Hook is invoked once per successfully recorded game result
type Hook interface {
	OnGameResultRecorded(ctx context.Context, gameID model.GameID) error
}

// HookFunc adapts a function to the Hook interface
type HookFunc func(ctx context.Context, gameID model.GameID) error

func (f HookFunc) OnGameResultRecorded(ctx context.Context, gameID model.GameID) error {
	return f(ctx, gameID)
}

// LogHook appends one line per completed game to a log file
type LogHook struct {
	path  string
	clock clock.Clock
	mu    sync.Mutex
}

// NewLogHook creates a LogHook writing to path, or DefaultLogPath if empty
func NewLogHook(path string, clk clock.Clock) *LogHook {
	if path == "" {
		path = DefaultLogPath
	}
	return &LogHook{path: path, clock: clk}
}

func (h *LogHook) OnGameResultRecorded(ctx context.Context, gameID model.GameID) error {
	line := fmt.Sprintf("%s - Game %d completed\n", h.clock.Now().Format(time.RFC3339), gameID)
	return appendLine(&h.mu, h.path, line)
}

func appendLine(mu *sync.Mutex, path, line string) error {
	mu.Lock()
	defer mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open completion log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write completion log: %w", err)
	}
	return nil
}
