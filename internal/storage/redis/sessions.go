package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// SessionStore is a Redis-backed session store. Each session key carries a
// TTL matching the session expiry, so Redis evicts expired logins itself.
type SessionStore struct {
	client *redis.Client
	clock  clock.Clock
	cfg    Config
}

// Ensure SessionStore implements the interface
var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore connects to Redis and verifies the connection
func NewSessionStore(cfg Config, clk clock.Clock) (*SessionStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewSessionStoreWithClient(client, clk, cfg), nil
}

// NewSessionStoreWithClient creates a session store with an existing client (for testing)
func NewSessionStoreWithClient(client *redis.Client, clk clock.Clock, cfg Config) *SessionStore {
	return &SessionStore{
		client: client,
		clock:  clk,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *SessionStore) Close() error {
	return s.client.Close()
}

func (s *SessionStore) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl < s.cfg.MinSessionTTL {
		ttl = s.cfg.MinSessionTTL
	}

	indexKey := userSessionsKey(int64(session.UserID))
	// The index lives as long as the user's longest session
	indexTTL, err := s.client.TTL(ctx, indexKey).Result()
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.Token), data, ttl)
	pipe.SAdd(ctx, indexKey, session.Token)
	if ttl > indexTTL {
		pipe.Expire(ctx, indexKey, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	session, err := s.GetSession(ctx, token)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	pipe.SRem(ctx, userSessionsKey(int64(session.UserID)), token)
	_, err = pipe.Exec(ctx)
	return err
}

// UserSessionCount returns how many live sessions a user has. Tokens whose
// session key Redis has already expired are dropped from the index.
func (s *SessionStore) UserSessionCount(ctx context.Context, userID model.UserID) (int64, error) {
	indexKey := userSessionsKey(int64(userID))
	tokens, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, err
	}

	var live int64
	var stale []any
	for _, token := range tokens {
		n, err := s.client.Exists(ctx, sessionKey(token)).Result()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			stale = append(stale, token)
			continue
		}
		live++
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return 0, err
		}
	}
	return live, nil
}
