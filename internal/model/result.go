package model

import "time"

// ResultID uniquely identifies a result row
type ResultID int64

// Result records that the winner beat the loser in a game.
// One winner declaration produces one Result per other member.
type Result struct {
	ID        ResultID
	GameID    GameID
	WinnerID  PlayerID
	LoserID   PlayerID
	CreatedAt time.Time
}

// ResultDetail is a Result with the winner and loser names resolved
type ResultDetail struct {
	Result
	WinnerName string
	LoserName  string
}
