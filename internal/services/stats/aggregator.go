package stats

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-set/v3"

	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Aggregator derives per-player statistics from recorded results
type Aggregator struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewAggregator creates a new Aggregator
func NewAggregator(storage storage.Storage, logger *slog.Logger) *Aggregator {
	return &Aggregator{storage: storage, logger: logger}
}

// GetPlayerStats counts the distinct games the player won, lost and took
// part in. A game counts as won if the player won any round in it, and as
// lost if they lost any round, so TotalGames can be less than the sum.
func (a *Aggregator) GetPlayerStats(ctx context.Context, playerID model.PlayerID) (*model.PlayerStats, error) {
	player, err := a.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	results, err := a.storage.ListResultsByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	won := set.New[model.GameID](len(results))
	lost := set.New[model.GameID](len(results))
	for _, r := range results {
		if r.WinnerID == playerID {
			won.Insert(r.GameID)
		}
		if r.LoserID == playerID {
			lost.Insert(r.GameID)
		}
	}

	stats := &model.PlayerStats{
		Player:     *player,
		GamesWon:   won.Size(),
		GamesLost:  lost.Size(),
		TotalGames: won.Union(lost).Size(),
	}
	a.logger.Debug("player stats computed",
		slog.Int64("player_id", int64(playerID)),
		slog.Int("results", len(results)),
		slog.Int("total_games", stats.TotalGames),
	)
	return stats, nil
}
