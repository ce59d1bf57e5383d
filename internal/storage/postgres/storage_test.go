package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mcoot/mahjongtracker/internal/storage"
	"github.com/mcoot/mahjongtracker/internal/storage/storagetest"
	"github.com/mcoot/mahjongtracker/internal/testutil"
)

// startPostgres runs a throwaway Postgres container and returns its URL
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("mahjong_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		tcpostgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{"test": "mahjongtracker-storage"}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, MigrateUp(url, testutil.NopLogger()))
	return url
}

func TestStorageSuite(t *testing.T) {
	url := startPostgres(t)

	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage {
			ctx := context.Background()
			s, err := New(ctx, url, testutil.NopLogger())
			require.NoError(t, err)
			_, err = s.pool.Exec(ctx, `TRUNCATE results, game_players, games, players, users RESTART IDENTITY CASCADE`)
			require.NoError(t, err)
			return s
		},
	})
}

func TestMigrationsRoundTrip(t *testing.T) {
	url := startPostgres(t)
	logger := testutil.NopLogger()

	status, err := Status(url)
	require.NoError(t, err)
	require.True(t, status.Applied)
	require.EqualValues(t, 1, status.Version)
	require.False(t, status.Dirty)

	require.NoError(t, MigrateDown(url, 1, logger))
	status, err = Status(url)
	require.NoError(t, err)
	require.False(t, status.Applied)

	require.NoError(t, MigrateUp(url, logger))
	require.NoError(t, MigrateUp(url, logger))
}
