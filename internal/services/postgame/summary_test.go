package postgame

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

type fakePublisher struct {
	err       error
	summaries []*Summary
	paths     []string
}

func (p *fakePublisher) Publish(ctx context.Context, summary *Summary, path string) error {
	p.summaries = append(p.summaries, summary)
	p.paths = append(p.paths, path)
	return p.err
}

type SummaryHookSuite struct {
	suite.Suite
	store     *memory.Storage
	gameID    model.GameID
	dir       string
	logPath   string
	publisher *fakePublisher
	hook      *SummaryHook
	logs      *testutil.LogBuffer
}

func TestSummaryHookSuite(t *testing.T) {
	suite.Run(t, new(SummaryHookSuite))
}

func (s *SummaryHookSuite) SetupTest() {
	s.store = memory.New()
	s.gameID = seedGame(s.T(), s.store)
	tmp := s.T().TempDir()
	s.dir = filepath.Join(tmp, "game_summaries")
	s.logPath = filepath.Join(tmp, "game_log.txt")
	s.publisher = &fakePublisher{}

	logger, logs := testutil.CaptureLogger()
	s.logs = logs
	s.hook = NewSummaryHook(s.store, mocks.NewMockClock(fixtureTime), s.publisher, logger, SummaryConfig{
		Dir:     s.dir,
		LogPath: s.logPath,
	})
}

func (s *SummaryHookSuite) TestWritesSummaryFile() {
	s.Require().NoError(s.hook.OnGameResultRecorded(context.Background(), s.gameID))

	data, err := os.ReadFile(s.hook.Path(s.gameID))
	s.Require().NoError(err)
	s.True(strings.HasSuffix(s.hook.Path(s.gameID), "game_1_summary.json"))

	var summary Summary
	s.Require().NoError(json.Unmarshal(data, &summary))
	s.Equal(s.gameID, summary.GameID)
	s.Equal(model.GameCode("PLAY"), summary.GameCode)
	s.Equal("2024-06-01T19:30:00.000000", summary.CompletedAt)
	s.Equal(3, summary.TotalPlayers)
	s.Equal(2, summary.TotalResults)
	s.Equal(map[string]int{"alice": 2}, summary.WinnerCounts)
	s.Equal([]SummaryPlayer{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}, {ID: 3, Name: "carol"}}, summary.Players)
	s.Len(summary.Results, 2)
	s.Contains(string(data), "\n  \"game_code\": \"PLAY\"")
}

func (s *SummaryHookSuite) TestAppendsCompletionEntry() {
	s.Require().NoError(s.hook.OnGameResultRecorded(context.Background(), s.gameID))

	data, err := os.ReadFile(s.logPath)
	s.Require().NoError(err)

	var entry map[string]any
	s.Require().NoError(json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	s.Equal(map[string]any{
		"timestamp":    "2024-06-01T19:30:00.000000",
		"game_id":      float64(s.gameID),
		"result_count": float64(2),
		"player_count": float64(3),
		"status":       "completed",
	}, entry)
}

func (s *SummaryHookSuite) TestPublishesSummary() {
	s.Require().NoError(s.hook.OnGameResultRecorded(context.Background(), s.gameID))

	s.Require().Len(s.publisher.summaries, 1)
	s.Equal(s.gameID, s.publisher.summaries[0].GameID)
	s.Equal(s.hook.Path(s.gameID), s.publisher.paths[0])
}

func (s *SummaryHookSuite) TestPublishFailureIsLoggedNotReturned() {
	s.publisher.err = errors.New("remote rejected")

	s.NoError(s.hook.OnGameResultRecorded(context.Background(), s.gameID))
	s.Contains(s.logs.String(), "failed to publish game summary")
	s.Contains(s.logs.String(), "remote rejected")
}

func (s *SummaryHookSuite) TestUnknownGame() {
	err := s.hook.OnGameResultRecorded(context.Background(), 999)
	s.ErrorIs(err, model.ErrGameNotFound)
	s.Empty(s.publisher.summaries)
}

func (s *SummaryHookSuite) TestWithoutPublisher() {
	hook := NewSummaryHook(s.store, mocks.NewMockClock(fixtureTime), nil, testutil.NopLogger(), SummaryConfig{
		Dir:     s.dir,
		LogPath: s.logPath,
	})
	s.NoError(hook.OnGameResultRecorded(context.Background(), s.gameID))
	s.FileExists(hook.Path(s.gameID))
}
