// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Suite runs the storage contract against a backend.
// NewStorage must return an empty store for every test.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
	faker *gofakeit.Faker
}

func (s *Suite) SetupTest() {
	s.store = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.faker = gofakeit.New(42)
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *Suite) createUser(username string) (*model.User, *model.Player) {
	user := &model.User{
		Username:     username,
		Email:        username + "@" + s.faker.DomainName(),
		PasswordHash: "hash",
		CreatedAt:    s.now,
	}
	player := &model.Player{Name: username, CreatedAt: s.now}
	s.Require().NoError(s.store.CreateUser(s.ctx, user, player))
	return user, player
}

func (s *Suite) createGame(code model.GameCode, creator model.PlayerID) *model.Game {
	game := &model.Game{Code: code, Status: model.GameStatusActive, CreatedAt: s.now}
	s.Require().NoError(s.store.CreateGame(s.ctx, game, creator))
	return game
}

func (s *Suite) join(gameID model.GameID, playerID model.PlayerID) {
	s.Require().NoError(s.store.AddMember(s.ctx, model.Membership{GameID: gameID, PlayerID: playerID, JoinedAt: s.now}))
}

// User tests

func (s *Suite) TestCreateUserAssignsIDsAndDefaultPlayer() {
	user, player := s.createUser("alice")

	s.NotZero(user.ID)
	s.NotZero(player.ID)
	s.Equal(user.ID, player.UserID)

	got, err := s.store.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
	s.Equal(user.Email, got.Email)
	s.Equal("hash", got.PasswordHash)

	byName, err := s.store.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, byName.ID)

	p, err := s.store.FindPlayerByName(s.ctx, user.ID, "alice")
	s.Require().NoError(err)
	s.Equal(player.ID, p.ID)
}

func (s *Suite) TestCreateUserRejectsDuplicateUsername() {
	s.createUser("alice")

	err := s.store.CreateUser(s.ctx,
		&model.User{Username: "alice", Email: "other@example.com", PasswordHash: "h", CreatedAt: s.now},
		&model.Player{Name: "alice", CreatedAt: s.now})
	s.ErrorIs(err, model.ErrUserExists)
}

func (s *Suite) TestCreateUserRejectsDuplicateEmail() {
	alice, _ := s.createUser("alice")

	err := s.store.CreateUser(s.ctx,
		&model.User{Username: "bob", Email: alice.Email, PasswordHash: "h", CreatedAt: s.now},
		&model.Player{Name: "bob", CreatedAt: s.now})
	s.ErrorIs(err, model.ErrUserExists)

	// The failed registration must not leave a player behind
	_, err = s.store.GetUserByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.store.GetUser(s.ctx, 999)
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.store.GetUserByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUpdatePasswordHash() {
	user, _ := s.createUser("alice")

	s.Require().NoError(s.store.UpdatePasswordHash(s.ctx, user.ID, "new-hash"))

	got, err := s.store.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("new-hash", got.PasswordHash)
}

// Player tests

func (s *Suite) TestListPlayersByUserSortedByName() {
	user, _ := s.createUser("mallory")
	for _, name := range []string{"zed", "bob"} {
		s.Require().NoError(s.store.CreatePlayer(s.ctx, &model.Player{UserID: user.ID, Name: name, CreatedAt: s.now}))
	}
	other, _ := s.createUser("trent")

	players, err := s.store.ListPlayersByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal("bob", players[0].Name)
	s.Equal("mallory", players[1].Name)
	s.Equal("zed", players[2].Name)

	otherPlayers, err := s.store.ListPlayersByUser(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Len(otherPlayers, 1)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, 12345)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	user, _ := s.createUser("alice")
	_, err = s.store.FindPlayerByName(s.ctx, user.ID, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Game tests

func (s *Suite) TestCreateGameAddsCreatorAsMember() {
	_, alice := s.createUser("alice")
	game := s.createGame("ABCD", alice.ID)

	s.NotZero(game.ID)

	got, err := s.store.GetGameByCode(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(game.ID, got.ID)
	s.Equal(model.GameStatusActive, got.Status)

	members, err := s.store.ListMembers(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal(alice.ID, members[0].ID)

	exists, err := s.store.GameCodeExists(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.GameCodeExists(s.ctx, "ZZZZ")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestCreateGameRejectsTakenCode() {
	_, alice := s.createUser("alice")
	s.createGame("ABCD", alice.ID)

	err := s.store.CreateGame(s.ctx, &model.Game{Code: "ABCD", Status: model.GameStatusActive, CreatedAt: s.now}, alice.ID)
	s.ErrorIs(err, model.ErrCodeTaken)
}

func (s *Suite) TestCodeStaysTakenAfterClose() {
	_, alice := s.createUser("alice")
	game := s.createGame("ABCD", alice.ID)
	s.Require().NoError(s.store.SetGameStatus(s.ctx, game.ID, model.GameStatusClosed))

	got, err := s.store.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(model.GameStatusClosed, got.Status)

	err = s.store.CreateGame(s.ctx, &model.Game{Code: "ABCD", Status: model.GameStatusActive, CreatedAt: s.now}, alice.ID)
	s.ErrorIs(err, model.ErrCodeTaken)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.store.GetGame(s.ctx, 999)
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.store.GetGameByCode(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrGameNotFound)

	s.ErrorIs(s.store.SetGameStatus(s.ctx, 999, model.GameStatusClosed), model.ErrGameNotFound)
}

// Membership tests

func (s *Suite) TestAddMemberRejectsDuplicate() {
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	game := s.createGame("ABCD", alice.ID)

	s.join(game.ID, bob.ID)

	err := s.store.AddMember(s.ctx, model.Membership{GameID: game.ID, PlayerID: bob.ID, JoinedAt: s.now})
	s.ErrorIs(err, model.ErrAlreadyMember)

	err = s.store.AddMember(s.ctx, model.Membership{GameID: game.ID, PlayerID: alice.ID, JoinedAt: s.now})
	s.ErrorIs(err, model.ErrAlreadyMember)
}

func (s *Suite) TestConcurrentJoinsAdmitOnce() {
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	game := s.createGame("ABCD", alice.ID)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.store.AddMember(s.ctx, model.Membership{GameID: game.ID, PlayerID: bob.ID, JoinedAt: s.now})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrAlreadyMember)
	}
	s.Equal(1, succeeded)

	members, err := s.store.ListMembers(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(members, 2)
}

func (s *Suite) TestListMembersOrderedByName() {
	_, carol := s.createUser("carol")
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	game := s.createGame("ABCD", carol.ID)
	s.join(game.ID, bob.ID)
	s.join(game.ID, alice.ID)

	members, err := s.store.ListMembers(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 3)
	s.Equal([]string{"alice", "bob", "carol"}, []string{members[0].Name, members[1].Name, members[2].Name})
}

// Result tests

func (s *Suite) TestRecordResultsAssignsIDs() {
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	_, carol := s.createUser("carol")
	game := s.createGame("ABCD", alice.ID)
	s.join(game.ID, bob.ID)
	s.join(game.ID, carol.ID)

	results := []model.Result{
		{GameID: game.ID, WinnerID: alice.ID, LoserID: bob.ID, CreatedAt: s.now},
		{GameID: game.ID, WinnerID: alice.ID, LoserID: carol.ID, CreatedAt: s.now},
	}
	s.Require().NoError(s.store.RecordResults(s.ctx, results))
	s.NotZero(results[0].ID)
	s.NotZero(results[1].ID)
	s.NotEqual(results[0].ID, results[1].ID)

	details, err := s.store.ListResultsByGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(details, 2)
	for _, d := range details {
		s.Equal("alice", d.WinnerName)
		s.Contains([]string{"bob", "carol"}, d.LoserName)
		s.True(d.CreatedAt.Equal(s.now))
	}
}

func (s *Suite) TestRecordResultsIsAllOrNothing() {
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	game := s.createGame("ABCD", alice.ID)
	s.join(game.ID, bob.ID)

	results := []model.Result{
		{GameID: game.ID, WinnerID: alice.ID, LoserID: bob.ID, CreatedAt: s.now},
		{GameID: game.ID, WinnerID: alice.ID, LoserID: 99999, CreatedAt: s.now},
	}
	s.Error(s.store.RecordResults(s.ctx, results))

	details, err := s.store.ListResultsByGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Empty(details)
}

func (s *Suite) TestListResultsByGameNewestFirst() {
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	game := s.createGame("ABCD", alice.ID)
	s.join(game.ID, bob.ID)

	first := []model.Result{{GameID: game.ID, WinnerID: alice.ID, LoserID: bob.ID, CreatedAt: s.now}}
	s.Require().NoError(s.store.RecordResults(s.ctx, first))
	second := []model.Result{{GameID: game.ID, WinnerID: bob.ID, LoserID: alice.ID, CreatedAt: s.now.Add(time.Minute)}}
	s.Require().NoError(s.store.RecordResults(s.ctx, second))

	details, err := s.store.ListResultsByGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(details, 2)
	s.Equal(second[0].ID, details[0].ID)
	s.Equal("bob", details[0].WinnerName)
	s.Equal(first[0].ID, details[1].ID)
}

func (s *Suite) TestListResultsByPlayer() {
	_, alice := s.createUser("alice")
	_, bob := s.createUser("bob")
	_, carol := s.createUser("carol")
	game := s.createGame("ABCD", alice.ID)
	s.join(game.ID, bob.ID)
	s.join(game.ID, carol.ID)

	s.Require().NoError(s.store.RecordResults(s.ctx, []model.Result{
		{GameID: game.ID, WinnerID: alice.ID, LoserID: bob.ID, CreatedAt: s.now},
		{GameID: game.ID, WinnerID: alice.ID, LoserID: carol.ID, CreatedAt: s.now},
	}))

	aliceResults, err := s.store.ListResultsByPlayer(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(aliceResults, 2)

	bobResults, err := s.store.ListResultsByPlayer(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Require().Len(bobResults, 1)
	s.Equal(bob.ID, bobResults[0].LoserID)

	none, err := s.store.ListResultsByPlayer(s.ctx, 99999)
	s.Require().NoError(err)
	s.Empty(none)
}
