package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	registry *Registry
	user     *model.User
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = NewRegistry(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	s.user = &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h", CreatedAt: s.clock.Now()}
	s.Require().NoError(s.storage.CreateUser(s.ctx, s.user, &model.Player{Name: "alice", CreatedAt: s.clock.Now()}))
}

func (s *RegistrySuite) TestCreatePlayer() {
	player, err := s.registry.CreatePlayer(s.ctx, s.user, "  Grandma ")
	s.Require().NoError(err)

	s.NotZero(player.ID)
	s.Equal("Grandma", player.Name)
	s.Equal(s.user.ID, player.UserID)

	stored, err := s.storage.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal("Grandma", stored.Name)
}

func (s *RegistrySuite) TestCreatePlayerAllowsDuplicateNames() {
	first, err := s.registry.CreatePlayer(s.ctx, s.user, "Uncle")
	s.Require().NoError(err)
	second, err := s.registry.CreatePlayer(s.ctx, s.user, "Uncle")
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
}

func (s *RegistrySuite) TestCreatePlayerRequiresName() {
	_, err := s.registry.CreatePlayer(s.ctx, s.user, "   ")
	s.ErrorIs(err, model.ErrInvalidInput)
	s.EqualError(err, "Name is required")
}

func (s *RegistrySuite) TestCreatePlayerRequiresUser() {
	_, err := s.registry.CreatePlayer(s.ctx, nil, "Grandma")
	s.ErrorIs(err, model.ErrUnauthenticated)

	_, err = s.registry.ListPlayers(s.ctx, nil)
	s.ErrorIs(err, model.ErrUnauthenticated)
}

func (s *RegistrySuite) TestListPlayersSortedByName() {
	_, err := s.registry.CreatePlayer(s.ctx, s.user, "zoe")
	s.Require().NoError(err)
	_, err = s.registry.CreatePlayer(s.ctx, s.user, "bob")
	s.Require().NoError(err)

	players, err := s.registry.ListPlayers(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal("alice", players[0].Name)
	s.Equal("bob", players[1].Name)
	s.Equal("zoe", players[2].Name)
}
