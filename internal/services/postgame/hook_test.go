package postgame

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/model"
)

func TestHookFunc(t *testing.T) {
	var got model.GameID
	hook := HookFunc(func(ctx context.Context, gameID model.GameID) error {
		got = gameID
		return nil
	})

	require.NoError(t, hook.OnGameResultRecorded(context.Background(), 7))
	assert.Equal(t, model.GameID(7), got)
}

func TestLogHookAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "game_log.txt")
	clk := mocks.NewMockClock(fixtureTime)
	hook := NewLogHook(path, clk)

	require.NoError(t, hook.OnGameResultRecorded(context.Background(), 1))
	require.NoError(t, hook.OnGameResultRecorded(context.Background(), 2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Equal(t, []string{
		"2024-06-01T19:30:00Z - Game 1 completed",
		"2024-06-01T19:30:00Z - Game 2 completed",
	}, lines)
}

func TestLogHookDefaultPath(t *testing.T) {
	hook := NewLogHook("", mocks.NewMockClock(fixtureTime))
	assert.Equal(t, DefaultLogPath, hook.path)
}
