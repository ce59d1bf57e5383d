package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
	tu "github.com/mcoot/mahjongtracker/internal/testutil"
)

// blindStorage never reports a code as taken, so collisions surface at insert time
type blindStorage struct {
	*memory.Storage
}

func (b blindStorage) GameCodeExists(ctx context.Context, code model.GameCode) (bool, error) {
	return false, nil
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	metrics    *metrics.Metrics
	controller *Controller
	ctx        context.Context

	alice, bob *model.Player
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.metrics = metrics.New()
	s.controller = NewController(s.storage, s.clock, s.random, s.metrics, tu.NopLogger(), 5)
	s.ctx = context.Background()

	s.alice = s.createPlayer("alice")
	s.bob = s.createPlayer("bob")
}

func (s *ControllerSuite) createPlayer(name string) *model.Player {
	user := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "h", CreatedAt: s.clock.Now()}
	player := &model.Player{Name: name, CreatedAt: s.clock.Now()}
	s.Require().NoError(s.storage.CreateUser(s.ctx, user, player))
	return player
}

func (s *ControllerSuite) createGame(code string, creator *model.Player) *model.Game {
	s.random.QueueString(code)
	game, err := s.controller.CreateGame(s.ctx, creator.ID)
	s.Require().NoError(err)
	return game
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameSucceeds() {
	game := s.createGame("ABCD", s.alice)

	s.Equal(model.GameCode("ABCD"), game.Code)
	s.Equal(model.GameStatusActive, game.Status)
	s.Equal(s.clock.Now(), game.CreatedAt)
	s.NotZero(game.ID)

	members, err := s.storage.ListMembers(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal(s.alice.ID, members[0].ID)

	expected := `
# HELP mahjong_games_created_total Number of games created.
# TYPE mahjong_games_created_total counter
mahjong_games_created_total 1
`
	s.NoError(testutil.GatherAndCompare(s.metrics.Registry(), strings.NewReader(expected), "mahjong_games_created_total"))
}

func (s *ControllerSuite) TestCreateGameSkipsTakenCodes() {
	s.createGame("ABCD", s.alice)

	s.random.QueueString("ABCD", "ABCD", "WXYZ")
	game, err := s.controller.CreateGame(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(model.GameCode("WXYZ"), game.Code)
}

func (s *ControllerSuite) TestCreateGameRetriesOnInsertCollision() {
	s.createGame("ABCD", s.alice)
	controller := NewController(blindStorage{s.storage}, s.clock, s.random, nil, tu.NopLogger(), 5)

	s.random.QueueString("ABCD", "EFGH")
	game, err := controller.CreateGame(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(model.GameCode("EFGH"), game.Code)
}

func (s *ControllerSuite) TestCreateGameFailsWhenCodeSpaceExhausted() {
	s.createGame("ABCD", s.alice)
	s.random.Reset()

	s.random.QueueString("ABCD", "ABCD", "ABCD", "ABCD", "ABCD", "ZZZZ")
	_, err := s.controller.CreateGame(s.ctx, s.bob.ID)
	s.ErrorIs(err, model.ErrCodeSpaceExhausted)
	s.Equal(5.0, collisions(s.metrics))

	// Bounded: exactly maxCodeAttempts candidates were drawn
	s.Equal(5, s.random.StringCalls)
}

func (s *ControllerSuite) TestCreateGameRequiresPlayerID() {
	_, err := s.controller.CreateGame(s.ctx, 0)
	s.ErrorIs(err, model.ErrInvalidInput)
	s.EqualError(err, "Player ID is required")
}

func (s *ControllerSuite) TestCreateGameRejectsUnknownPlayer() {
	_, err := s.controller.CreateGame(s.ctx, 9999)
	s.ErrorIs(err, model.ErrUnknownPlayer)
}

// JoinGame tests

func (s *ControllerSuite) TestJoinGameAddsMember() {
	game := s.createGame("ABCD", s.alice)

	joined, err := s.controller.JoinGame(s.ctx, "ABCD", s.bob.ID)
	s.Require().NoError(err)
	s.Equal(game.ID, joined.ID)

	detail, err := s.controller.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Len(detail.Players, 2)
}

func (s *ControllerSuite) TestJoinGameTwiceFails() {
	s.createGame("ABCD", s.alice)

	_, err := s.controller.JoinGame(s.ctx, "ABCD", s.bob.ID)
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "ABCD", s.bob.ID)
	s.ErrorIs(err, model.ErrAlreadyMember)

	_, err = s.controller.JoinGame(s.ctx, "ABCD", s.alice.ID)
	s.ErrorIs(err, model.ErrAlreadyMember)
}

func (s *ControllerSuite) TestJoinGameUnknownCode() {
	_, err := s.controller.JoinGame(s.ctx, "NOPE", s.bob.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestJoinGameRequiresPlayer() {
	s.createGame("ABCD", s.alice)

	_, err := s.controller.JoinGame(s.ctx, "ABCD", 0)
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.controller.JoinGame(s.ctx, "ABCD", 9999)
	s.ErrorIs(err, model.ErrUnknownPlayer)
}

func (s *ControllerSuite) TestJoinClosedGameFails() {
	s.createGame("ABCD", s.alice)
	_, err := s.controller.CloseGame(s.ctx, "ABCD")
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "ABCD", s.bob.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
}

// GetGame tests

func (s *ControllerSuite) TestGetGameOrdersMembersByName() {
	carol := s.createPlayer("carol")
	s.createGame("ABCD", carol)
	_, err := s.controller.JoinGame(s.ctx, "ABCD", s.bob.ID)
	s.Require().NoError(err)
	_, err = s.controller.JoinGame(s.ctx, "ABCD", s.alice.ID)
	s.Require().NoError(err)

	detail, err := s.controller.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Require().Len(detail.Players, 3)
	s.Equal("alice", detail.Players[0].Name)
	s.Equal("bob", detail.Players[1].Name)
	s.Equal("carol", detail.Players[2].Name)
}

func (s *ControllerSuite) TestGetGameIsIdempotent() {
	s.createGame("ABCD", s.alice)
	_, err := s.controller.JoinGame(s.ctx, "ABCD", s.bob.ID)
	s.Require().NoError(err)

	first, err := s.controller.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	second, err := s.controller.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)

	s.Empty(cmp.Diff(first, second))
}

func (s *ControllerSuite) TestGetGameIncludesClosedGames() {
	s.createGame("ABCD", s.alice)
	_, err := s.controller.CloseGame(s.ctx, "ABCD")
	s.Require().NoError(err)

	detail, err := s.controller.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.GameStatusClosed, detail.Game.Status)
}

func (s *ControllerSuite) TestGetGameNotFound() {
	_, err := s.controller.GetGame(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrGameNotFound)
}

// CloseGame tests

func (s *ControllerSuite) TestCloseGameTwiceFails() {
	s.createGame("ABCD", s.alice)

	game, err := s.controller.CloseGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.GameStatusClosed, game.Status)

	_, err = s.controller.CloseGame(s.ctx, "ABCD")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestClosedCodeIsNeverReused() {
	s.createGame("ABCD", s.alice)
	_, err := s.controller.CloseGame(s.ctx, "ABCD")
	s.Require().NoError(err)

	s.random.QueueString("ABCD", "EFGH")
	game, err := s.controller.CreateGame(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(model.GameCode("EFGH"), game.Code)
}

func collisions(m *metrics.Metrics) float64 {
	families, err := m.Registry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() == "mahjong_game_code_collisions_total" {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
