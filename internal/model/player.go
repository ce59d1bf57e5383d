package model

import "time"

// UserID uniquely identifies a registered account
type UserID int64

// User is a registered account. Usernames and emails are unique.
type User struct {
	ID           UserID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PlayerID uniquely identifies a player
type PlayerID int64

// Player is a named participant owned by a user.
// Registration creates a default player named after the user.
type Player struct {
	ID        PlayerID
	UserID    UserID
	Name      string
	CreatedAt time.Time
}

// PlayerStats summarises a player's results across all games
type PlayerStats struct {
	Player     Player
	GamesWon   int // distinct games with at least one win
	GamesLost  int // distinct games with at least one loss
	TotalGames int // distinct games with any result
}
