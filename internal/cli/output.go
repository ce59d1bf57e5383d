package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return NewOutputTo(format, os.Stdout, os.Stderr)
}

// NewOutputTo creates an Output writing to the given streams
func NewOutputTo(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		body := map[string]string{"error": err.Error()}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			body = map[string]string{"error": apiErr.Message, "code": apiErr.Code}
		}
		data, _ := json.Marshal(body)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AuthResult:
		o.printAuthResult(v)
	case Me:
		o.printMe(v)
	case Player:
		o.printPlayer(v)
	case []Player:
		o.printPlayers(v)
	case PlayerStats:
		o.printPlayerStats(v)
	case GameCreated:
		o.printf("Game created: %s (id %d)\n", v.Code, v.ID)
	case GameJoined:
		o.printf("Joined game %d\n", v.GameID)
	case Game:
		o.printGame(v)
	case ResultRecorded:
		o.printf("Recorded %d result(s)\n", len(v.ResultIDs))
	case []Result:
		o.printResults(v)
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// AuthResult is the response for register and login
type AuthResult struct {
	Success    bool    `json:"success"`
	UserID     int64   `json:"user_id"`
	Username   string  `json:"username"`
	PlayerID   *int64  `json:"player_id,omitempty"`
	PlayerName *string `json:"player_name,omitempty"`
}

// Me describes the logged in user
type Me struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	PlayerID   *int64  `json:"player_id,omitempty"`
	PlayerName *string `json:"player_name,omitempty"`
}

// Player response type (matches API)
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PlayerStats response type
type PlayerStats struct {
	Name       string `json:"name"`
	GamesWon   int    `json:"games_won"`
	GamesLost  int    `json:"games_lost"`
	TotalGames int    `json:"total_games"`
}

// GameCreated response type
type GameCreated struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// GameJoined response type
type GameJoined struct {
	Success bool  `json:"success"`
	GameID  int64 `json:"gameId"`
}

// Game response type
type Game struct {
	ID        int64    `json:"id"`
	Code      string   `json:"code"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"created_at"`
	Players   []Player `json:"players"`
}

// ResultRecorded response type
type ResultRecorded struct {
	Success   bool    `json:"success"`
	ResultIDs []int64 `json:"resultIds"`
}

// Result response type
type Result struct {
	ID         int64  `json:"id"`
	CreatedAt  string `json:"created_at"`
	WinnerName string `json:"winner_name"`
	LoserName  string `json:"loser_name"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printf("User: %s (%d)\n", a.Username, a.UserID)
	if a.PlayerID != nil && a.PlayerName != nil {
		o.printf("Player: %s (%d)\n", *a.PlayerName, *a.PlayerID)
	}
}

func (o *Output) printMe(m Me) {
	o.printf("User: %s (%d)\n", m.Username, m.ID)
	o.printf("Email: %s\n", m.Email)
	if m.PlayerID != nil && m.PlayerName != nil {
		o.printf("Player: %s (%d)\n", *m.PlayerName, *m.PlayerID)
	}
}

func (o *Output) printPlayer(p Player) {
	o.printf("Player: %s (%d)\n", p.Name, p.ID)
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		o.printf("No players\n")
		return
	}
	for _, p := range players {
		o.printf("  %4d  %s\n", p.ID, p.Name)
	}
}

func (o *Output) printPlayerStats(s PlayerStats) {
	o.printf("Player: %s\n", s.Name)
	o.printf("Won: %d  Lost: %d  Total: %d\n", s.GamesWon, s.GamesLost, s.TotalGames)
}

func (o *Output) printGame(g Game) {
	o.printf("Game: %s (id %d)\n", g.Code, g.ID)
	o.printf("Status: %s\n", g.Status)
	o.printf("Created: %s\n", g.CreatedAt)
	names := make([]string, len(g.Players))
	for i, p := range g.Players {
		names[i] = fmt.Sprintf("%s (%d)", p.Name, p.ID)
	}
	o.printf("Players (%d): %s\n", len(g.Players), strings.Join(names, ", "))
}

func (o *Output) printResults(results []Result) {
	if len(results) == 0 {
		o.printf("No results\n")
		return
	}
	for _, r := range results {
		o.printf("  %s  %s beat %s\n", r.CreatedAt, r.WinnerName, r.LoserName)
	}
}
