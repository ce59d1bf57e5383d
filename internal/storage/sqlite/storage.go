package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Ensure Storage implements the interfaces
var (
	_ storage.Storage     = (*Storage)(nil)
	_ storage.Snapshotter = (*Storage)(nil)
)

// New opens (creating if needed) the database file at path and applies the schema
func New(path string, logger *slog.Logger) (*Storage, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and keeps in-memory databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("sqlite database ready", slog.String("path", path))
	return &Storage{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Snapshot copies the database into dir using VACUUM INTO
func (s *Storage) Snapshot(ctx context.Context, dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, storage.SnapshotFileName(at))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove stale snapshot: %w", err)
	}

	query := "VACUUM INTO '" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}

// withTx runs fn in a transaction, committing if fn returns nil
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User, player *model.Player) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrUserExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		userID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO players (user_id, name, created_at) VALUES (?, ?, ?)`,
			userID, player.Name, player.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert default player: %w", err)
		}
		playerID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		user.ID = model.UserID(userID)
		player.ID = model.PlayerID(playerID)
		player.UserID = user.ID
		return nil
	})
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, id model.UserID, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return requireAffected(res, model.ErrUserNotFound)
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (user_id, name, created_at) VALUES (?, ?, ?)`,
		player.UserID, player.Name, player.CreatedAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	player.ID = model.PlayerID(id)
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var row playerRow
	err := s.db.GetContext(ctx, &row, `SELECT id, user_id, name, created_at FROM players WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

func (s *Storage) ListPlayersByUser(ctx context.Context, userID model.UserID) ([]model.Player, error) {
	var rows []playerRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, name, created_at FROM players WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return playersFromRows(rows), nil
}

func (s *Storage) FindPlayerByName(ctx context.Context, userID model.UserID, name string) (*model.Player, error) {
	var row playerRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, user_id, name, created_at FROM players WHERE user_id = ? AND name = ? ORDER BY id LIMIT 1`,
		userID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("find player: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, creator model.PlayerID) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO games (code, status, created_at) VALUES (?, ?, ?)`,
			game.Code, game.Status, game.CreatedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrCodeTaken
			}
			return fmt.Errorf("insert game: %w", err)
		}
		gameID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, player_id, joined_at) VALUES (?, ?, ?)`,
			gameID, creator, game.CreatedAt.UTC())
		if err != nil {
			if isForeignKeyViolation(err) {
				return model.ErrPlayerNotFound
			}
			return fmt.Errorf("insert creator membership: %w", err)
		}

		game.ID = model.GameID(gameID)
		return nil
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return s.getGame(ctx, `SELECT id, code, status, created_at FROM games WHERE id = ?`, id)
}

func (s *Storage) GetGameByCode(ctx context.Context, code model.GameCode) (*model.Game, error) {
	return s.getGame(ctx, `SELECT id, code, status, created_at FROM games WHERE code = ?`, code)
}

func (s *Storage) getGame(ctx context.Context, query string, arg any) (*model.Game, error) {
	var row gameRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) GameCodeExists(ctx context.Context, code model.GameCode) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM games WHERE code = ?)`, code)
	if err != nil {
		return false, fmt.Errorf("check game code: %w", err)
	}
	return exists, nil
}

func (s *Storage) SetGameStatus(ctx context.Context, id model.GameID, status model.GameStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	return requireAffected(res, model.ErrGameNotFound)
}

// Membership operations

func (s *Storage) AddMember(ctx context.Context, m model.Membership) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_players (game_id, player_id, joined_at) VALUES (?, ?, ?)`,
		m.GameID, m.PlayerID, m.JoinedAt.UTC())
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return model.ErrAlreadyMember
		case isForeignKeyViolation(err):
			return model.ErrPlayerNotFound
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *Storage) ListMembers(ctx context.Context, gameID model.GameID) ([]model.Player, error) {
	var rows []playerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.user_id, p.name, p.created_at
		FROM players p
		JOIN game_players gp ON gp.player_id = p.id
		WHERE gp.game_id = ?
		ORDER BY p.name, p.id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return playersFromRows(rows), nil
}

// Result operations

func (s *Storage) RecordResults(ctx context.Context, results []model.Result) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx,
			`INSERT INTO results (game_id, winner_id, loser_id, created_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare result insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		ids := make([]model.ResultID, len(results))
		for i, r := range results {
			res, err := stmt.ExecContext(ctx, r.GameID, r.WinnerID, r.LoserID, r.CreatedAt.UTC())
			if err != nil {
				return fmt.Errorf("insert result: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids[i] = model.ResultID(id)
		}

		for i := range results {
			results[i].ID = ids[i]
		}
		return nil
	})
}

func (s *Storage) ListResultsByGame(ctx context.Context, gameID model.GameID) ([]model.ResultDetail, error) {
	var rows []resultRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.game_id, r.winner_id, r.loser_id, r.created_at,
		       w.name AS winner_name, l.name AS loser_name
		FROM results r
		JOIN players w ON w.id = r.winner_id
		JOIN players l ON l.id = r.loser_id
		WHERE r.game_id = ?
		ORDER BY r.created_at DESC, r.id DESC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	details := make([]model.ResultDetail, len(rows))
	for i, row := range rows {
		details[i] = model.ResultDetail{
			Result:     row.toModel(),
			WinnerName: row.WinnerName,
			LoserName:  row.LoserName,
		}
	}
	return details, nil
}

func (s *Storage) ListResultsByPlayer(ctx context.Context, playerID model.PlayerID) ([]model.Result, error) {
	var rows []resultRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, game_id, winner_id, loser_id, created_at
		FROM results
		WHERE winner_id = ? OR loser_id = ?
		ORDER BY id`, playerID, playerID)
	if err != nil {
		return nil, fmt.Errorf("list player results: %w", err)
	}

	results := make([]model.Result, len(rows))
	for i, row := range rows {
		results[i] = row.toModel()
	}
	return results, nil
}

// Helpers

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:           model.UserID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func (r playerRow) toModel() model.Player {
	return model.Player{
		ID:        model.PlayerID(r.ID),
		UserID:    model.UserID(r.UserID),
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}
}

func playersFromRows(rows []playerRow) []model.Player {
	players := make([]model.Player, len(rows))
	for i, row := range rows {
		players[i] = row.toModel()
	}
	return players
}

func (r gameRow) toModel() *model.Game {
	return &model.Game{
		ID:        model.GameID(r.ID),
		Code:      model.GameCode(r.Code),
		Status:    model.GameStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func (r resultRow) toModel() model.Result {
	return model.Result{
		ID:        model.ResultID(r.ID),
		GameID:    model.GameID(r.GameID),
		WinnerID:  model.PlayerID(r.WinnerID),
		LoserID:   model.PlayerID(r.LoserID),
		CreatedAt: r.CreatedAt,
	}
}
