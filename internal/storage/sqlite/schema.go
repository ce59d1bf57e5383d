package sqlite

import "time"

const schema = `CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS players (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_players_user_id ON players(user_id);

CREATE TABLE IF NOT EXISTS games (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'active',
  created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS game_players (
  game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
  player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
  joined_at TIMESTAMP NOT NULL,
  CONSTRAINT unq_game_player UNIQUE (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
  winner_id INTEGER NOT NULL REFERENCES players(id),
  loser_id INTEGER NOT NULL REFERENCES players(id),
  created_at TIMESTAMP NOT NULL,
  CHECK (winner_id <> loser_id)
);

CREATE INDEX IF NOT EXISTS idx_results_game_id ON results(game_id);
CREATE INDEX IF NOT EXISTS idx_results_winner_id ON results(winner_id);
CREATE INDEX IF NOT EXISTS idx_results_loser_id ON results(loser_id);`

type userRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type playerRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type gameRow struct {
	ID        int64     `db:"id"`
	Code      string    `db:"code"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

type resultRow struct {
	ID         int64     `db:"id"`
	GameID     int64     `db:"game_id"`
	WinnerID   int64     `db:"winner_id"`
	LoserID    int64     `db:"loser_id"`
	CreatedAt  time.Time `db:"created_at"`
	WinnerName string    `db:"winner_name"`
	LoserName  string    `db:"loser_name"`
}
