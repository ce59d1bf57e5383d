package storage

import (
	"context"
	"time"

	"github.com/mcoot/mahjongtracker/internal/model"
)

// Storage defines the interface for data persistence.
//
// Uniqueness (usernames, emails, game codes, memberships) is enforced by the
// store and reported with the matching model sentinel error, so callers can
// treat the store as the final arbiter under concurrent requests.
type Storage interface {
	// User operations

	// CreateUser inserts the user and its default player atomically and
	// fills in their IDs. Returns model.ErrUserExists on a username or
	// email collision.
	CreateUser(ctx context.Context, user *model.User, player *model.Player) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id model.UserID, hash string) error

	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// ListPlayersByUser returns the user's players ordered by name
	ListPlayersByUser(ctx context.Context, userID model.UserID) ([]model.Player, error)
	FindPlayerByName(ctx context.Context, userID model.UserID, name string) (*model.Player, error)

	// Game operations

	// CreateGame inserts the game and the creator's membership atomically.
	// Returns model.ErrCodeTaken if the code is already in use.
	CreateGame(ctx context.Context, game *model.Game, creator model.PlayerID) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	GetGameByCode(ctx context.Context, code model.GameCode) (*model.Game, error)
	GameCodeExists(ctx context.Context, code model.GameCode) (bool, error)
	SetGameStatus(ctx context.Context, id model.GameID, status model.GameStatus) error

	// Membership operations

	// AddMember returns model.ErrAlreadyMember if the membership exists
	AddMember(ctx context.Context, m model.Membership) error
	// ListMembers returns the game's players ordered by name, then id
	ListMembers(ctx context.Context, gameID model.GameID) ([]model.Player, error)

	// Result operations

	// RecordResults inserts all results in one transaction and fills in
	// their IDs. Either every row is stored or none is.
	RecordResults(ctx context.Context, results []model.Result) error
	// ListResultsByGame returns the game's results newest first
	ListResultsByGame(ctx context.Context, gameID model.GameID) ([]model.ResultDetail, error)
	// ListResultsByPlayer returns every result the player won or lost
	ListResultsByPlayer(ctx context.Context, playerID model.PlayerID) ([]model.Result, error)

	Close() error
}

// Snapshotter is implemented by stores that can copy themselves to a file
type Snapshotter interface {
	// Snapshot writes a copy of the store into dir and returns its path
	Snapshot(ctx context.Context, dir string, at time.Time) (string, error)
}

// SnapshotFileName returns the file name used for a snapshot taken at the given time
func SnapshotFileName(at time.Time) string {
	return "mahjong_" + at.UTC().Format("20060102_150405") + ".db"
}
