package result

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/game"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

type recordingNotifier struct {
	mu    sync.Mutex
	games []model.GameID
}

func (n *recordingNotifier) GameResultRecorded(ctx context.Context, gameID model.GameID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.games = append(n.games, gameID)
}

// failingStorage rejects every result write
type failingStorage struct {
	*memory.Storage
}

func (f failingStorage) RecordResults(ctx context.Context, results []model.Result) error {
	return errors.New("disk full")
}

type RecorderSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	games    *game.Controller
	notifier *recordingNotifier
	recorder *Recorder
	ctx      context.Context

	alice, bob, carol *model.Player
	game              *model.Game
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.games = game.NewController(s.storage, s.clock, s.random, nil, testutil.NopLogger(), 0)
	s.notifier = &recordingNotifier{}
	s.recorder = NewRecorder(s.storage, s.games, s.clock, s.notifier, nil, testutil.NopLogger())
	s.ctx = context.Background()

	s.alice = s.createPlayer("alice")
	s.bob = s.createPlayer("bob")
	s.carol = s.createPlayer("carol")

	s.random.QueueString("MJNG")
	g, err := s.games.CreateGame(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.game = g
	s.join(s.bob)
	s.join(s.carol)
}

func (s *RecorderSuite) createPlayer(name string) *model.Player {
	user := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "h", CreatedAt: s.clock.Now()}
	player := &model.Player{Name: name, CreatedAt: s.clock.Now()}
	s.Require().NoError(s.storage.CreateUser(s.ctx, user, player))
	return player
}

func (s *RecorderSuite) join(p *model.Player) {
	_, err := s.games.JoinGame(s.ctx, s.game.Code, p.ID)
	s.Require().NoError(err)
}

// RecordResult tests

func (s *RecorderSuite) TestRecordResultFansOutToEveryOtherMember() {
	ids, err := s.recorder.RecordResult(s.ctx, "MJNG", s.bob.ID)
	s.Require().NoError(err)
	s.Len(ids, 2)

	results, err := s.storage.ListResultsByPlayer(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Require().Len(results, 2)

	losers := map[model.PlayerID]bool{}
	for _, r := range results {
		s.Equal(s.bob.ID, r.WinnerID)
		s.Equal(s.game.ID, r.GameID)
		s.Equal(s.clock.Now(), r.CreatedAt)
		losers[r.LoserID] = true
	}
	s.Equal(map[model.PlayerID]bool{s.alice.ID: true, s.carol.ID: true}, losers)
}

func (s *RecorderSuite) TestRecordResultNotifiesAfterCommit() {
	_, err := s.recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Require().NoError(err)
	s.Equal([]model.GameID{s.game.ID}, s.notifier.games)
}

func (s *RecorderSuite) TestRecordResultAllowsRepeatedRounds() {
	_, err := s.recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)
	_, err = s.recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Require().NoError(err)

	results, err := s.recorder.GetResults(s.ctx, "MJNG")
	s.Require().NoError(err)
	s.Len(results, 4)
}

func (s *RecorderSuite) TestRecordResultSoleMemberRecordsNothing() {
	dave := s.createPlayer("dave")
	s.random.QueueString("SOLO")
	_, err := s.games.CreateGame(s.ctx, dave.ID)
	s.Require().NoError(err)

	ids, err := s.recorder.RecordResult(s.ctx, "SOLO", dave.ID)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *RecorderSuite) TestRecordResultMissingWinnerCheckedFirst() {
	_, err := s.recorder.RecordResult(s.ctx, "NOPE", 0)
	s.ErrorIs(err, model.ErrMissingWinner)
}

func (s *RecorderSuite) TestRecordResultUnknownGame() {
	_, err := s.recorder.RecordResult(s.ctx, "NOPE", s.alice.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
	s.Empty(s.notifier.games)
}

func (s *RecorderSuite) TestRecordResultClosedGame() {
	_, err := s.games.CloseGame(s.ctx, "MJNG")
	s.Require().NoError(err)

	_, err = s.recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *RecorderSuite) TestRecordResultWinnerMustBeMember() {
	outsider := s.createPlayer("outsider")

	_, err := s.recorder.RecordResult(s.ctx, "MJNG", outsider.ID)
	s.ErrorIs(err, model.ErrNotMember)

	results, err := s.recorder.GetResults(s.ctx, "MJNG")
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *RecorderSuite) TestRecordResultStorageFailureSkipsNotifier() {
	recorder := NewRecorder(failingStorage{s.storage}, s.games, s.clock, s.notifier, nil, testutil.NopLogger())

	_, err := recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Error(err)
	s.Empty(s.notifier.games)
}

func (s *RecorderSuite) TestRecordResultWithoutNotifier() {
	recorder := NewRecorder(s.storage, s.games, s.clock, nil, nil, testutil.NopLogger())
	ids, err := recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Require().NoError(err)
	s.Len(ids, 2)
}

// GetResults tests

func (s *RecorderSuite) TestGetResultsNewestFirstWithNames() {
	_, err := s.recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)
	_, err = s.recorder.RecordResult(s.ctx, "MJNG", s.carol.ID)
	s.Require().NoError(err)

	results, err := s.recorder.GetResults(s.ctx, "MJNG")
	s.Require().NoError(err)
	s.Require().Len(results, 4)

	s.Equal("carol", results[0].WinnerName)
	s.Equal("carol", results[1].WinnerName)
	s.Equal("alice", results[2].WinnerName)
	s.Equal("alice", results[3].WinnerName)
	s.Greater(results[0].ID, results[1].ID)
}

func (s *RecorderSuite) TestGetResultsOnClosedGame() {
	_, err := s.recorder.RecordResult(s.ctx, "MJNG", s.alice.ID)
	s.Require().NoError(err)
	_, err = s.games.CloseGame(s.ctx, "MJNG")
	s.Require().NoError(err)

	results, err := s.recorder.GetResults(s.ctx, "MJNG")
	s.Require().NoError(err)
	s.Len(results, 2)
}

func (s *RecorderSuite) TestGetResultsUnknownGame() {
	_, err := s.recorder.GetResults(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrGameNotFound)
}
