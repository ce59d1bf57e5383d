package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/mahjongtracker/internal/model"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	session := &model.Session{Token: "sess_abc", UserID: 7, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, model.UserID(7), got.UserID)

	require.NoError(t, store.DeleteSession(ctx, "sess_abc"))
	_, err = store.GetSession(ctx, "sess_abc")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestSessionStorePrune(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveSession(ctx, &model.Session{Token: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.SaveSession(ctx, &model.Session{Token: "new", ExpiresAt: now.Add(time.Minute)}))

	assert.Equal(t, 1, store.Prune(now))

	_, err := store.GetSession(ctx, "old")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = store.GetSession(ctx, "new")
	assert.NoError(t, err)
}
