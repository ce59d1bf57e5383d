package postgame

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// DefaultSummaryDir is where SummaryHook writes per-game summaries
const DefaultSummaryDir = "game_summaries"

// Summary is the document written for each completed game
type Summary struct {
	GameID       model.GameID    `json:"game_id"`
	GameCode     model.GameCode  `json:"game_code"`
	CompletedAt  string          `json:"completed_at"`
	TotalPlayers int             `json:"total_players"`
	TotalResults int             `json:"total_results"`
	WinnerCounts map[string]int  `json:"winner_counts"`
	Players      []SummaryPlayer `json:"players"`
	Results      []SummaryResult `json:"results"`
}

type SummaryPlayer struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
}

type SummaryResult struct {
	ID         model.ResultID `json:"id"`
	WinnerName string         `json:"winner_name"`
	LoserName  string         `json:"loser_name"`
	CreatedAt  string         `json:"created_at"`
}

type completionEntry struct {
	Timestamp   string       `json:"timestamp"`
	GameID      model.GameID `json:"game_id"`
	ResultCount int          `json:"result_count"`
	PlayerCount int          `json:"player_count"`
	Status      string       `json:"status"`
}

// Publisher ships a written summary somewhere outside the process
type Publisher interface {
	Publish(ctx context.Context, summary *Summary, path string) error
}

// SummaryConfig configures a SummaryHook
type SummaryConfig struct {
	Dir     string
	LogPath string
}

// SummaryHook writes a JSON summary of the game, appends a completion entry
// to the log and then hands the summary to an optional Publisher
type SummaryHook struct {
	storage   storage.Storage
	clock     clock.Clock
	publisher Publisher
	logger    *slog.Logger
	dir       string
	logPath   string
	mu        sync.Mutex
}

// NewSummaryHook creates a SummaryHook. publisher may be nil.
func NewSummaryHook(
	storage storage.Storage,
	clock clock.Clock,
	publisher Publisher,
	logger *slog.Logger,
	cfg SummaryConfig,
) *SummaryHook {
	if cfg.Dir == "" {
		cfg.Dir = DefaultSummaryDir
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath
	}
	return &SummaryHook{
		storage:   storage,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
		dir:       cfg.Dir,
		logPath:   cfg.LogPath,
	}
}

func (h *SummaryHook) OnGameResultRecorded(ctx context.Context, gameID model.GameID) error {
	summary, err := h.buildSummary(ctx, gameID)
	if err != nil {
		return err
	}

	path, err := h.writeSummary(summary)
	if err != nil {
		return err
	}
	h.logger.Info("game summary written", slog.String("path", path), slog.Int64("game_id", int64(gameID)))

	entry, err := json.Marshal(completionEntry{
		Timestamp:   summary.CompletedAt,
		GameID:      gameID,
		ResultCount: summary.TotalResults,
		PlayerCount: summary.TotalPlayers,
		Status:      "completed",
	})
	if err != nil {
		return fmt.Errorf("encode completion entry: %w", err)
	}
	if err := appendLine(&h.mu, h.logPath, string(entry)+"\n"); err != nil {
		return err
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, summary, path); err != nil {
			h.logger.Warn("failed to publish game summary",
				slog.Int64("game_id", int64(gameID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Path returns where the summary for gameID is written
func (h *SummaryHook) Path(gameID model.GameID) string {
	return filepath.Join(h.dir, fmt.Sprintf("game_%d_summary.json", gameID))
}

func (h *SummaryHook) buildSummary(ctx context.Context, gameID model.GameID) (*Summary, error) {
	game, err := h.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", gameID, err)
	}
	results, err := h.storage.ListResultsByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load results for game %d: %w", gameID, err)
	}
	members, err := h.storage.ListMembers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load members for game %d: %w", gameID, err)
	}

	summary := &Summary{
		GameID:       game.ID,
		GameCode:     game.Code,
		CompletedAt:  model.FormatTimestamp(h.clock.Now()),
		TotalPlayers: len(members),
		TotalResults: len(results),
		WinnerCounts: make(map[string]int),
		Players:      make([]SummaryPlayer, 0, len(members)),
		Results:      make([]SummaryResult, 0, len(results)),
	}
	for _, m := range members {
		summary.Players = append(summary.Players, SummaryPlayer{ID: m.ID, Name: m.Name})
	}
	for _, r := range results {
		summary.WinnerCounts[r.WinnerName]++
		summary.Results = append(summary.Results, SummaryResult{
			ID:         r.ID,
			WinnerName: r.WinnerName,
			LoserName:  r.LoserName,
			CreatedAt:  model.FormatTimestamp(r.CreatedAt),
		})
	}
	return summary, nil
}

func (h *SummaryHook) writeSummary(summary *Summary) (string, error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", fmt.Errorf("create summary directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	path := h.Path(summary.GameID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
