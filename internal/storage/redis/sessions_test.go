package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/model"
)

type SessionStoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	clock *mocks.MockClock
	store *SessionStore
	ctx   context.Context
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.store = NewSessionStoreWithClient(client, s.clock, DefaultConfig())
	s.ctx = context.Background()
}

func (s *SessionStoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *SessionStoreSuite) newSession(token string, userID model.UserID, ttl time.Duration) *model.Session {
	now := s.clock.Now()
	return &model.Session{Token: token, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func (s *SessionStoreSuite) TestSaveAndGetSession() {
	session := s.newSession("sess_1", 42, time.Hour)
	s.Require().NoError(s.store.SaveSession(s.ctx, session))

	got, err := s.store.GetSession(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Equal(model.UserID(42), got.UserID)
	s.True(got.ExpiresAt.Equal(session.ExpiresAt))
}

func (s *SessionStoreSuite) TestSessionKeyHasTTL() {
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_1", 42, time.Hour)))

	s.Equal(time.Hour, s.mini.TTL(sessionKey("sess_1")))
}

func (s *SessionStoreSuite) TestSessionExpiresInRedis() {
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_1", 42, time.Hour)))

	s.mini.FastForward(time.Hour + time.Second)

	_, err := s.store.GetSession(s.ctx, "sess_1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *SessionStoreSuite) TestPastExpiryGetsMinimumTTL() {
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_1", 42, -time.Hour)))

	s.Equal(DefaultConfig().MinSessionTTL, s.mini.TTL(sessionKey("sess_1")))
}

func (s *SessionStoreSuite) TestGetSessionNotFound() {
	_, err := s.store.GetSession(s.ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *SessionStoreSuite) TestDeleteSession() {
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_1", 42, time.Hour)))
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_2", 42, time.Hour)))

	count, err := s.store.UserSessionCount(s.ctx, 42)
	s.Require().NoError(err)
	s.EqualValues(2, count)

	s.Require().NoError(s.store.DeleteSession(s.ctx, "sess_1"))

	_, err = s.store.GetSession(s.ctx, "sess_1")
	s.ErrorIs(err, model.ErrSessionNotFound)

	count, err = s.store.UserSessionCount(s.ctx, 42)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *SessionStoreSuite) TestUserIndexExpiresWithLongestSession() {
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_1", 42, 3*time.Hour)))
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_2", 42, time.Hour)))

	s.Equal(3*time.Hour, s.mini.TTL(userSessionsKey(42)))

	s.mini.FastForward(4 * time.Hour)
	s.False(s.mini.Exists(userSessionsKey(42)))
}

func (s *SessionStoreSuite) TestUserSessionCountDropsExpiredTokens() {
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_1", 42, time.Hour)))
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("sess_2", 42, 3*time.Hour)))

	s.mini.FastForward(2 * time.Hour)

	count, err := s.store.UserSessionCount(s.ctx, 42)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	members, err := s.mini.Members(userSessionsKey(42))
	s.Require().NoError(err)
	s.Equal([]string{"sess_2"}, members)
}

func (s *SessionStoreSuite) TestDeleteMissingSessionIsNoop() {
	s.NoError(s.store.DeleteSession(s.ctx, "missing"))
}
