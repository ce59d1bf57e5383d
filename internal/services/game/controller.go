package game

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/dependencies/random"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// DefaultMaxCodeAttempts bounds code generation. With 26^4 codes this is
// only reached when the code space is close to full.
const DefaultMaxCodeAttempts = 64

// Controller manages game creation, membership and lookup
type Controller struct {
	storage         storage.Storage
	clock           clock.Clock
	random          random.Random
	metrics         *metrics.Metrics
	logger          *slog.Logger
	maxCodeAttempts int
}

// NewController creates a new game Controller.
// maxCodeAttempts <= 0 selects DefaultMaxCodeAttempts.
func NewController(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	metrics *metrics.Metrics,
	logger *slog.Logger,
	maxCodeAttempts int,
) *Controller {
	if maxCodeAttempts <= 0 {
		maxCodeAttempts = DefaultMaxCodeAttempts
	}
	return &Controller{
		storage:         storage,
		clock:           clock,
		random:          random,
		metrics:         metrics,
		logger:          logger,
		maxCodeAttempts: maxCodeAttempts,
	}
}

// CreateGame creates an active game with a fresh code and the given player as
// its first member. Fails with model.ErrCodeSpaceExhausted when no free code
// is found within the attempt budget.
func (c *Controller) CreateGame(ctx context.Context, playerID model.PlayerID) (*model.Game, error) {
	if playerID <= 0 {
		return nil, model.InvalidInput("Player ID is required")
	}
	if err := c.requirePlayer(ctx, playerID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < c.maxCodeAttempts; attempt++ {
		code := model.GameCode(c.random.String(model.GameCodeLength, model.GameCodeAlphabet))

		exists, err := c.storage.GameCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			c.metrics.CodeCollision()
			continue
		}

		game := &model.Game{
			Code:      code,
			Status:    model.GameStatusActive,
			CreatedAt: c.clock.Now(),
		}
		err = c.storage.CreateGame(ctx, game, playerID)
		if errors.Is(err, model.ErrCodeTaken) {
			// Another request claimed the code between the check and the insert
			c.metrics.CodeCollision()
			continue
		}
		if err != nil {
			return nil, err
		}

		c.metrics.GameCreated()
		c.logger.Info("game created",
			slog.String("code", string(game.Code)),
			slog.Int64("game_id", int64(game.ID)),
			slog.Int64("player_id", int64(playerID)),
		)
		return game, nil
	}

	c.logger.Error("game code space exhausted", slog.Int("attempts", c.maxCodeAttempts))
	return nil, model.ErrCodeSpaceExhausted
}

// JoinGame adds the player to the active game with the given code
func (c *Controller) JoinGame(ctx context.Context, code model.GameCode, playerID model.PlayerID) (*model.Game, error) {
	if playerID <= 0 {
		return nil, model.InvalidInput("Player ID is required")
	}

	game, err := c.ActiveGame(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.requirePlayer(ctx, playerID); err != nil {
		return nil, err
	}

	// The store's uniqueness check decides concurrent joins
	err = c.storage.AddMember(ctx, model.Membership{
		GameID:   game.ID,
		PlayerID: playerID,
		JoinedAt: c.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	c.metrics.PlayerJoined()
	c.logger.Info("player joined game",
		slog.String("code", string(code)),
		slog.Int64("player_id", int64(playerID)),
	)
	return game, nil
}

// GetGame returns a game in any status with its members ordered by name
func (c *Controller) GetGame(ctx context.Context, code model.GameCode) (*model.GameDetail, error) {
	game, err := c.storage.GetGameByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	players, err := c.storage.ListMembers(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	return &model.GameDetail{Game: *game, Players: players}, nil
}

// ActiveGame returns the game with the given code, or model.ErrNoActiveGame
// if it does not exist or is no longer active
func (c *Controller) ActiveGame(ctx context.Context, code model.GameCode) (*model.Game, error) {
	game, err := c.storage.GetGameByCode(ctx, code)
	if errors.Is(err, model.ErrGameNotFound) {
		return nil, model.ErrNoActiveGame
	}
	if err != nil {
		return nil, err
	}
	if !game.IsActive() {
		return nil, model.ErrNoActiveGame
	}
	return game, nil
}

// Members returns the game's current members ordered by name
func (c *Controller) Members(ctx context.Context, gameID model.GameID) ([]model.Player, error) {
	return c.storage.ListMembers(ctx, gameID)
}

// CloseGame marks an active game closed. Closed games accept no further joins
// or results, and their code is never reused.
func (c *Controller) CloseGame(ctx context.Context, code model.GameCode) (*model.Game, error) {
	game, err := c.ActiveGame(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := c.storage.SetGameStatus(ctx, game.ID, model.GameStatusClosed); err != nil {
		return nil, err
	}
	game.Status = model.GameStatusClosed

	c.logger.Info("game closed", slog.String("code", string(code)))
	return game, nil
}

func (c *Controller) requirePlayer(ctx context.Context, playerID model.PlayerID) error {
	_, err := c.storage.GetPlayer(ctx, playerID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return model.ErrUnknownPlayer
	}
	return err
}
