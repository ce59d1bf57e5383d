package result

import (
	"context"
	"log/slog"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/game"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Notifier is told about every game whose results were committed.
// Implementations must not block the caller for long or report failures.
type Notifier interface {
	GameResultRecorded(ctx context.Context, gameID model.GameID)
}

// Recorder turns a winner declaration into win/loss rows
type Recorder struct {
	storage  storage.Storage
	games    *game.Controller
	clock    clock.Clock
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRecorder creates a new Recorder. notifier may be nil.
func NewRecorder(
	storage storage.Storage,
	games *game.Controller,
	clock clock.Clock,
	notifier Notifier,
	metrics *metrics.Metrics,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		storage:  storage,
		games:    games,
		clock:    clock,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// RecordResult records a win for winnerID over every other member of the
// active game, in one transaction. Returns the new result IDs in member order.
func (r *Recorder) RecordResult(ctx context.Context, code model.GameCode, winnerID model.PlayerID) ([]model.ResultID, error) {
	if winnerID <= 0 {
		return nil, model.ErrMissingWinner
	}

	g, err := r.games.ActiveGame(ctx, code)
	if err != nil {
		return nil, err
	}

	members, err := r.games.Members(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if !containsPlayer(members, winnerID) {
		return nil, model.ErrNotMember
	}

	now := r.clock.Now()
	results := make([]model.Result, 0, len(members)-1)
	for _, m := range members {
		if m.ID == winnerID {
			continue
		}
		results = append(results, model.Result{
			GameID:    g.ID,
			WinnerID:  winnerID,
			LoserID:   m.ID,
			CreatedAt: now,
		})
	}

	if err := r.storage.RecordResults(ctx, results); err != nil {
		return nil, err
	}

	ids := make([]model.ResultID, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}

	r.metrics.ResultsRecorded(len(results))
	r.logger.Info("game result recorded",
		slog.String("code", string(code)),
		slog.Int64("game_id", int64(g.ID)),
		slog.Int64("winner_id", int64(winnerID)),
		slog.Int("results", len(results)),
	)

	if r.notifier != nil {
		r.notifier.GameResultRecorded(ctx, g.ID)
	}
	return ids, nil
}

// GetResults returns every result of the game, in any status, newest first
func (r *Recorder) GetResults(ctx context.Context, code model.GameCode) ([]model.ResultDetail, error) {
	g, err := r.storage.GetGameByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return r.storage.ListResultsByGame(ctx, g.ID)
}

func containsPlayer(players []model.Player, id model.PlayerID) bool {
	for _, p := range players {
		if p.ID == id {
			return true
		}
	}
	return false
}
