package factory

import (
	"time"

	"github.com/mcoot/mahjongtracker/internal/dependencies/mocks"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
	"github.com/mcoot/mahjongtracker/internal/services/postgame"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

// TestMaxCodeAttempts bounds game code generation in test apps
const TestMaxCodeAttempts = 8

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	// SessionStore is the concrete in-memory session store
	SessionStore *memory.SessionStore
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithHook(nil)
}

// NewTestAppWithHook is NewTestApp with a post-game hook run synchronously
// after each recorded result
func NewTestAppWithHook(hook postgame.Hook) *TestApp {
	store := memory.New()
	sessions := memory.NewSessionStore()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := auth.DefaultConfig()
	// Minimum bcrypt cost keeps tests fast
	cfg.BcryptCost = 4

	app := newWithDependencies(store, sessions, mockClock, mockRandom, metrics.New(), Options{
		AuthConfig:      cfg,
		MaxCodeAttempts: TestMaxCodeAttempts,
		Hook:            hook,
	}, testutil.NopLogger())

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		SessionStore: sessions,
	}
}
