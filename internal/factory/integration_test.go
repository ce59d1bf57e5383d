package factory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/config"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

type recordedHook struct {
	mu    sync.Mutex
	games []model.GameID
}

func (h *recordedHook) OnGameResultRecorded(_ context.Context, gameID model.GameID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.games = append(h.games, gameID)
	return nil
}

func (h *recordedHook) calls() []model.GameID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.GameID(nil), h.games...)
}

type IntegrationSuite struct {
	suite.Suite
	app  *TestApp
	hook *recordedHook
	ctx  context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.hook = &recordedHook{}
	s.app = NewTestAppWithHook(s.hook)
	s.ctx = context.Background()
}

func (s *IntegrationSuite) register(username string) *model.Player {
	result, err := s.app.AuthService.Register(s.ctx, username, username+"@example.com", "password123")
	s.Require().NoError(err)
	s.Require().NotNil(result.Player)
	return result.Player
}

func (s *IntegrationSuite) TestFullGameFlow() {
	alice := s.register("alice")
	bob := s.register("bob")

	// Bob tracks a guest player under his own account
	bobUser, err := s.app.Storage.GetUser(s.ctx, bob.UserID)
	s.Require().NoError(err)
	guest, err := s.app.PlayerRegistry.CreatePlayer(s.ctx, bobUser, "Guest")
	s.Require().NoError(err)

	s.app.MockRandom.QueueString("WIND")
	game, err := s.app.GameController.CreateGame(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(model.GameCode("WIND"), game.Code)

	_, err = s.app.GameController.JoinGame(s.ctx, "WIND", bob.ID)
	s.Require().NoError(err)
	_, err = s.app.GameController.JoinGame(s.ctx, "WIND", guest.ID)
	s.Require().NoError(err)

	detail, err := s.app.GameController.GetGame(s.ctx, "WIND")
	s.Require().NoError(err)
	s.Len(detail.Players, 3)

	s.app.MockClock.Advance(time.Minute)
	ids, err := s.app.ResultRecorder.RecordResult(s.ctx, "WIND", alice.ID)
	s.Require().NoError(err)
	s.Len(ids, 2)
	s.Equal([]model.GameID{game.ID}, s.hook.calls())

	s.app.MockClock.Advance(time.Minute)
	_, err = s.app.ResultRecorder.RecordResult(s.ctx, "WIND", bob.ID)
	s.Require().NoError(err)

	results, err := s.app.ResultRecorder.GetResults(s.ctx, "WIND")
	s.Require().NoError(err)
	s.Len(results, 4)
	s.Equal(bob.ID, results[0].WinnerID)

	aliceStats, err := s.app.StatsAggregator.GetPlayerStats(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(1, aliceStats.GamesWon)
	s.Equal(1, aliceStats.GamesLost)
	s.Equal(1, aliceStats.TotalGames)

	guestStats, err := s.app.StatsAggregator.GetPlayerStats(s.ctx, guest.ID)
	s.Require().NoError(err)
	s.Equal(0, guestStats.GamesWon)
	s.Equal(1, guestStats.TotalGames)

	_, err = s.app.GameController.CloseGame(s.ctx, "WIND")
	s.Require().NoError(err)

	_, err = s.app.ResultRecorder.RecordResult(s.ctx, "WIND", alice.ID)
	s.ErrorIs(err, model.ErrNoActiveGame)
	s.Len(s.hook.calls(), 2)

	// Results stay readable after close
	results, err = s.app.ResultRecorder.GetResults(s.ctx, "WIND")
	s.Require().NoError(err)
	s.Len(results, 4)
}

func (s *IntegrationSuite) TestSessionLifecycle() {
	result, err := s.app.AuthService.Register(s.ctx, "carol", "carol@example.com", "password123")
	s.Require().NoError(err)
	token := result.Session.Token

	user, err := s.app.AuthService.CurrentUser(s.ctx, token)
	s.Require().NoError(err)
	s.Equal("carol", user.Username)

	s.app.MockClock.Advance(25 * time.Hour)
	_, err = s.app.AuthService.CurrentUser(s.ctx, token)
	s.ErrorIs(err, auth.ErrInvalidSession)

	// Expired sessions are dropped on lookup
	_, err = s.app.Sessions.GetSession(s.ctx, token)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *IntegrationSuite) TestPruneDropsUnusedExpiredSessions() {
	_, err := s.app.AuthService.Register(s.ctx, "frank", "frank@example.com", "password123")
	s.Require().NoError(err)

	s.Equal(0, s.app.SessionStore.Prune(s.app.MockClock.Now()))
	s.app.MockClock.Advance(25 * time.Hour)
	s.Equal(1, s.app.SessionStore.Prune(s.app.MockClock.Now()))
}

func (s *IntegrationSuite) TestSessionPrunerStopsWithContext() {
	result, err := s.app.AuthService.Register(s.ctx, "dave", "dave@example.com", "password123")
	s.Require().NoError(err)
	s.app.MockClock.Advance(25 * time.Hour)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.app.StartSessionPruner(ctx, time.Millisecond, testutil.NopLogger())

	s.Eventually(func() bool {
		_, err := s.app.Sessions.GetSession(s.ctx, result.Session.Token)
		return errors.Is(err, model.ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)
}

func (s *IntegrationSuite) TestNewFromMemoryConfig() {
	cfg := config.Default()
	cfg.Storage.Type = config.StorageMemory
	cfg.PostGame.Hook = config.HookSummary
	cfg.PostGame.Publisher = config.PublisherNone
	dir := s.T().TempDir()
	cfg.PostGame.SummaryDir = dir
	cfg.PostGame.LogPath = filepath.Join(dir, "game_log.txt")
	cfg.PostGame.SnapshotDir = ""

	app, err := New(s.ctx, &cfg, nil)
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	result, err := app.AuthService.Register(s.ctx, "erin", "erin@example.com", "password123")
	s.Require().NoError(err)
	game, err := app.GameController.CreateGame(s.ctx, result.Player.ID)
	s.Require().NoError(err)
	s.True(game.Code.Valid())

	_, err = app.ResultRecorder.RecordResult(s.ctx, game.Code, result.Player.ID)
	s.Require().NoError(err)
	app.PostGame.Wait()
	s.FileExists(filepath.Join(dir, fmt.Sprintf("game_%d_summary.json", game.ID)))
	s.FileExists(cfg.PostGame.LogPath)
}

func (s *IntegrationSuite) TestNewRejectsUnknownHook() {
	cfg := config.Default()
	cfg.Storage.Type = config.StorageMemory
	cfg.PostGame.Hook = "carrier-pigeon"

	_, err := New(s.ctx, &cfg, nil)
	s.Error(err)
}
