package postgame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage/memory"
)

var fixtureTime = time.Date(2024, 6, 1, 19, 30, 0, 0, time.UTC)

// seedGame stores a game "PLAY" with alice, bob and carol, where alice
// won one round against the other two
func seedGame(t *testing.T, store *memory.Storage) model.GameID {
	t.Helper()
	ctx := context.Background()

	var players []*model.Player
	for _, name := range []string{"alice", "bob", "carol"} {
		user := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "h", CreatedAt: fixtureTime}
		player := &model.Player{Name: name, CreatedAt: fixtureTime}
		require.NoError(t, store.CreateUser(ctx, user, player))
		players = append(players, player)
	}

	game := &model.Game{Code: "PLAY", Status: model.GameStatusActive, CreatedAt: fixtureTime}
	require.NoError(t, store.CreateGame(ctx, game, players[0].ID))
	for _, p := range players[1:] {
		require.NoError(t, store.AddMember(ctx, model.Membership{GameID: game.ID, PlayerID: p.ID, JoinedAt: fixtureTime}))
	}

	require.NoError(t, store.RecordResults(ctx, []model.Result{
		{GameID: game.ID, WinnerID: players[0].ID, LoserID: players[1].ID, CreatedAt: fixtureTime},
		{GameID: game.ID, WinnerID: players[0].ID, LoserID: players[2].ID, CreatedAt: fixtureTime},
	}))
	return game.ID
}
