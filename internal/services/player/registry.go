package player

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Registry manages the players a user owns
type Registry struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// NewRegistry creates a new player Registry
func NewRegistry(store storage.Storage, clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		storage: store,
		clock:   clk,
		logger:  logger,
	}
}

// CreatePlayer adds a player owned by user. Names need not be unique.
func (r *Registry) CreatePlayer(ctx context.Context, user *model.User, name string) (*model.Player, error) {
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.InvalidInput("Name is required")
	}

	player := &model.Player{
		UserID:    user.ID,
		Name:      name,
		CreatedAt: r.clock.Now(),
	}
	if err := r.storage.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	r.logger.Info("player created",
		slog.Int64("player_id", int64(player.ID)),
		slog.Int64("user_id", int64(user.ID)),
	)
	return player, nil
}

// ListPlayers returns the user's players ordered by name
func (r *Registry) ListPlayers(ctx context.Context, user *model.User) ([]model.Player, error) {
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	return r.storage.ListPlayersByUser(ctx, user.ID)
}
