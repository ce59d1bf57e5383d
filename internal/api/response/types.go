package response

import (
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
)

// Success is the body of operations that only report success
type Success struct {
	Success bool `json:"success"`
}

// Auth is the response for register and login. The player fields are
// omitted when the user's default player no longer exists.
type Auth struct {
	Success    bool            `json:"success"`
	UserID     model.UserID    `json:"user_id"`
	Username   string          `json:"username"`
	PlayerID   *model.PlayerID `json:"player_id,omitempty"`
	PlayerName *string         `json:"player_name,omitempty"`
}

// AuthFromResult converts an auth.Result
func AuthFromResult(r *auth.Result) Auth {
	resp := Auth{
		Success:  true,
		UserID:   r.User.ID,
		Username: r.User.Username,
	}
	if r.Player != nil {
		resp.PlayerID = &r.Player.ID
		resp.PlayerName = &r.Player.Name
	}
	return resp
}

// Me describes the logged in user
type Me struct {
	ID         model.UserID    `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	PlayerID   *model.PlayerID `json:"player_id,omitempty"`
	PlayerName *string         `json:"player_name,omitempty"`
}

// MeFromModel converts a user and its default player, which may be nil
func MeFromModel(u *model.User, p *model.Player) Me {
	resp := Me{ID: u.ID, Username: u.Username, Email: u.Email}
	if p != nil {
		resp.PlayerID = &p.ID
		resp.PlayerName = &p.Name
	}
	return resp
}

// Player represents a player in API responses
type Player struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{ID: p.ID, Name: p.Name}
}

// PlayersFromModel converts a list of players, never returning nil
func PlayersFromModel(players []model.Player) []Player {
	out := make([]Player, len(players))
	for i := range players {
		out[i] = PlayerFromModel(&players[i])
	}
	return out
}

// PlayerStats is the response for a player's statistics
type PlayerStats struct {
	Name       string `json:"name"`
	GamesWon   int    `json:"games_won"`
	GamesLost  int    `json:"games_lost"`
	TotalGames int    `json:"total_games"`
}

// PlayerStatsFromModel converts model.PlayerStats
func PlayerStatsFromModel(s *model.PlayerStats) PlayerStats {
	return PlayerStats{
		Name:       s.Player.Name,
		GamesWon:   s.GamesWon,
		GamesLost:  s.GamesLost,
		TotalGames: s.TotalGames,
	}
}

// GameCreated is the response for creating a game
type GameCreated struct {
	ID   model.GameID   `json:"id"`
	Code model.GameCode `json:"code"`
}

// GameJoined is the response for joining a game
type GameJoined struct {
	Success bool         `json:"success"`
	GameID  model.GameID `json:"gameId"`
}

// Game is a game with its members
type Game struct {
	ID        model.GameID     `json:"id"`
	Code      model.GameCode   `json:"code"`
	Status    model.GameStatus `json:"status"`
	CreatedAt string           `json:"created_at"`
	Players   []Player         `json:"players"`
}

// GameFromModel converts model.GameDetail
func GameFromModel(g *model.GameDetail) Game {
	return Game{
		ID:        g.Game.ID,
		Code:      g.Game.Code,
		Status:    g.Game.Status,
		CreatedAt: model.FormatTimestamp(g.Game.CreatedAt),
		Players:   PlayersFromModel(g.Players),
	}
}

// ResultRecorded is the response for declaring a winner
type ResultRecorded struct {
	Success   bool             `json:"success"`
	ResultIDs []model.ResultID `json:"resultIds"`
}

// Result is one recorded win/loss
type Result struct {
	ID         model.ResultID `json:"id"`
	CreatedAt  string         `json:"created_at"`
	WinnerName string         `json:"winner_name"`
	LoserName  string         `json:"loser_name"`
}

// ResultsFromModel converts result details, never returning nil
func ResultsFromModel(results []model.ResultDetail) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{
			ID:         r.ID,
			CreatedAt:  model.FormatTimestamp(r.CreatedAt),
			WinnerName: r.WinnerName,
			LoserName:  r.LoserName,
		}
	}
	return out
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
}
