package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/mahjongtracker/internal/dependencies/clock"
	"github.com/mcoot/mahjongtracker/internal/dependencies/random"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

const (
	// MinPasswordLength is the shortest password accepted at registration
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest password bcrypt can hash
	MaxPasswordBytes = 72
)

// Result is the outcome of a successful registration or login
type Result struct {
	Session *model.Session
	User    *model.User
	// Player is the user's default player, nil if it no longer exists
	Player *model.Player
}

// Service handles registration, login and session management
type Service struct {
	storage  storage.Storage
	sessions storage.SessionStore
	clock    clock.Clock
	random   random.Random
	metrics  *metrics.Metrics
	logger   *slog.Logger

	sessionDuration time.Duration
	bcryptCost      int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	BcryptCost      int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(store storage.Storage, sessions storage.SessionStore, clk clock.Clock, rnd random.Random, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		storage:         store,
		sessions:        sessions,
		clock:           clk,
		random:          rnd,
		metrics:         m,
		logger:          logger,
		sessionDuration: cfg.SessionDuration,
		bcryptCost:      cfg.BcryptCost,
	}
}

// Register creates a user with a default player of the same name and logs them in
func (s *Service) Register(ctx context.Context, username, email, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, model.InvalidInput("Username, email, and password are required")
	}
	if len(password) < MinPasswordLength {
		return nil, model.InvalidInput(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return nil, model.InvalidInput(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	player := &model.Player{
		Name:      username,
		CreatedAt: now,
	}

	// The store enforces username and email uniqueness
	if err := s.storage.CreateUser(ctx, user, player); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.UserRegistered()
	s.logger.Info("user registered",
		slog.Int64("user_id", int64(user.ID)),
		slog.String("username", user.Username),
	)

	return &Result{Session: session, User: user, Player: player}, nil
}

// Login verifies credentials and creates a session.
// Legacy unsalted SHA-256 hashes are accepted once and upgraded to bcrypt.
func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.InvalidInput("Username and password are required")
	}

	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.metrics.LoginAttempt(false)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, legacy := checkPassword(user.PasswordHash, password)
	if !ok {
		s.metrics.LoginAttempt(false)
		return nil, ErrInvalidCredentials
	}
	if legacy {
		s.upgradeLegacyHash(ctx, user, password)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginAttempt(true)

	player, err := s.DefaultPlayer(ctx, user)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	return &Result{Session: session, User: user, Player: player}, nil
}

// Logout invalidates the session token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(ctx context.Context, token string) (*model.Session, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if session.Expired(s.clock.Now()) {
		_ = s.sessions.DeleteSession(ctx, token)
		return nil, ErrInvalidSession
	}

	return session, nil
}

// CurrentUser resolves a session token to its user
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

// DefaultPlayer returns the user's player named after the username
func (s *Service) DefaultPlayer(ctx context.Context, user *model.User) (*model.Player, error) {
	return s.storage.FindPlayerByName(ctx, user.ID, user.Username)
}

func (s *Service) createSession(ctx context.Context, userID model.UserID) (*model.Session, error) {
	now := s.clock.Now()
	session := &model.Session{
		Token:     "sess_" + s.random.Token(16),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (s *Service) upgradeLegacyHash(ctx context.Context, user *model.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err == nil {
		err = s.storage.UpdatePasswordHash(ctx, user.ID, string(hash))
	}
	if err != nil {
		s.logger.Warn("failed to upgrade legacy password hash",
			slog.Int64("user_id", int64(user.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	user.PasswordHash = string(hash)
	s.logger.Info("upgraded legacy password hash", slog.Int64("user_id", int64(user.ID)))
}

// checkPassword compares a password against a stored hash.
// legacy is true when the stored hash is an unsalted SHA-256 hex digest.
func checkPassword(stored, password string) (ok, legacy bool) {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(LegacyHash(password))) == 1, true
}

// LegacyHash returns the unsalted SHA-256 hex digest older databases stored
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
