package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/storage"
)

// Postgres error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Storage is a PostgreSQL-backed implementation of the storage interface.
// The schema is managed by the embedded migrations (see MigrateUp).
type Storage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New connects to the database at databaseURL
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Storage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres connection pool ready")
	return &Storage{pool: pool, logger: logger}, nil
}

// Close closes the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// withTransaction runs fn in a transaction, rolling back if fn fails
func (s *Storage) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User, player *model.Player) error {
	return s.withTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			user.Username, user.Email, user.PasswordHash, user.CreatedAt,
		).Scan(&user.ID)
		if err != nil {
			if pgErrorCode(err) == codeUniqueViolation {
				return model.ErrUserExists
			}
			return fmt.Errorf("insert user: %w", err)
		}

		player.UserID = user.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO players (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
			player.UserID, player.Name, player.CreatedAt,
		).Scan(&player.ID)
		if err != nil {
			return fmt.Errorf("insert default player: %w", err)
		}
		return nil
	})
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, id model.UserID, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO players (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		player.UserID, player.Name, player.CreatedAt,
	).Scan(&player.ID)
	if err != nil {
		if pgErrorCode(err) == codeForeignKeyViolation {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var p model.Player
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

func (s *Storage) ListPlayersByUser(ctx context.Context, userID model.UserID) ([]model.Player, error) {
	return s.queryPlayers(ctx,
		`SELECT id, user_id, name, created_at FROM players WHERE user_id = $1 ORDER BY name, id`, userID)
}

func (s *Storage) FindPlayerByName(ctx context.Context, userID model.UserID, name string) (*model.Player, error) {
	var p model.Player
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM players WHERE user_id = $1 AND name = $2 ORDER BY id LIMIT 1`,
		userID, name,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("find player: %w", err)
	}
	return &p, nil
}

func (s *Storage) queryPlayers(ctx context.Context, query string, args ...any) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	players := []model.Player{}
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, creator model.PlayerID) error {
	return s.withTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO games (code, status, created_at) VALUES ($1, $2, $3) RETURNING id`,
			game.Code, game.Status, game.CreatedAt,
		).Scan(&game.ID)
		if err != nil {
			if pgErrorCode(err) == codeUniqueViolation {
				return model.ErrCodeTaken
			}
			return fmt.Errorf("insert game: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO game_players (game_id, player_id, joined_at) VALUES ($1, $2, $3)`,
			game.ID, creator, game.CreatedAt)
		if err != nil {
			if pgErrorCode(err) == codeForeignKeyViolation {
				return model.ErrPlayerNotFound
			}
			return fmt.Errorf("insert creator membership: %w", err)
		}
		return nil
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return s.getGame(ctx, `SELECT id, code, status, created_at FROM games WHERE id = $1`, id)
}

func (s *Storage) GetGameByCode(ctx context.Context, code model.GameCode) (*model.Game, error) {
	return s.getGame(ctx, `SELECT id, code, status, created_at FROM games WHERE code = $1`, code)
}

func (s *Storage) getGame(ctx context.Context, query string, arg any) (*model.Game, error) {
	var g model.Game
	err := s.pool.QueryRow(ctx, query, arg).Scan(&g.ID, &g.Code, &g.Status, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &g, nil
}

func (s *Storage) GameCodeExists(ctx context.Context, code model.GameCode) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check game code: %w", err)
	}
	return exists, nil
}

func (s *Storage) SetGameStatus(ctx context.Context, id model.GameID, status model.GameStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE games SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrGameNotFound
	}
	return nil
}

// Membership operations

func (s *Storage) AddMember(ctx context.Context, m model.Membership) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_players (game_id, player_id, joined_at) VALUES ($1, $2, $3)`,
		m.GameID, m.PlayerID, m.JoinedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case codeUniqueViolation:
			return model.ErrAlreadyMember
		case codeForeignKeyViolation:
			return model.ErrPlayerNotFound
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *Storage) ListMembers(ctx context.Context, gameID model.GameID) ([]model.Player, error) {
	return s.queryPlayers(ctx, `
		SELECT p.id, p.user_id, p.name, p.created_at
		FROM players p
		JOIN game_players gp ON gp.player_id = p.id
		WHERE gp.game_id = $1
		ORDER BY p.name, p.id`, gameID)
}

// Result operations

func (s *Storage) RecordResults(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}

	return s.withTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range results {
			batch.Queue(
				`INSERT INTO results (game_id, winner_id, loser_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
				r.GameID, r.WinnerID, r.LoserID, r.CreatedAt)
		}

		br := tx.SendBatch(ctx, batch)
		ids := make([]model.ResultID, len(results))
		for i := range results {
			if err := br.QueryRow().Scan(&ids[i]); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert result: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close result batch: %w", err)
		}

		for i := range results {
			results[i].ID = ids[i]
		}
		return nil
	})
}

func (s *Storage) ListResultsByGame(ctx context.Context, gameID model.GameID) ([]model.ResultDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.game_id, r.winner_id, r.loser_id, r.created_at, w.name, l.name
		FROM results r
		JOIN players w ON w.id = r.winner_id
		JOIN players l ON l.id = r.loser_id
		WHERE r.game_id = $1
		ORDER BY r.created_at DESC, r.id DESC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	details := []model.ResultDetail{}
	for rows.Next() {
		var d model.ResultDetail
		if err := rows.Scan(&d.ID, &d.GameID, &d.WinnerID, &d.LoserID, &d.CreatedAt, &d.WinnerName, &d.LoserName); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *Storage) ListResultsByPlayer(ctx context.Context, playerID model.PlayerID) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_id, winner_id, loser_id, created_at
		FROM results
		WHERE winner_id = $1 OR loser_id = $1
		ORDER BY id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list player results: %w", err)
	}
	defer rows.Close()

	results := []model.Result{}
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.ID, &r.GameID, &r.WinnerID, &r.LoserID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
