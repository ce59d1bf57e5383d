package model

import "time"

// GameID uniquely identifies a game
type GameID int64

// GameCode is the short join code for a game, 4 uppercase letters
type GameCode string

const (
	// GameCodeLength is the number of letters in a game code
	GameCodeLength = 4
	// GameCodeAlphabet is the set of characters codes are drawn from
	GameCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Valid reports whether the code has the expected shape
func (c GameCode) Valid() bool {
	if len(c) != GameCodeLength {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// GameStatus represents whether a game accepts joins and results
type GameStatus string

const (
	GameStatusActive GameStatus = "active"
	GameStatusClosed GameStatus = "closed"
)

// Game is a table session that players join and record results against
type Game struct {
	ID        GameID
	Code      GameCode
	Status    GameStatus
	CreatedAt time.Time
}

// IsActive returns true if the game accepts joins and results
func (g *Game) IsActive() bool {
	return g.Status == GameStatusActive
}

// Membership links a player to a game. (GameID, PlayerID) is unique.
type Membership struct {
	GameID   GameID
	PlayerID PlayerID
	JoinedAt time.Time
}

// GameDetail is a game together with its current members, ordered by name
type GameDetail struct {
	Game    Game
	Players []Player
}

// TimestampLayout is the wire format for timestamps: ISO 8601 in UTC with
// microseconds and no zone suffix
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
