package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_chess_games (
	game_id      TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	base_ms      BIGINT NOT NULL,
	increment_ms BIGINT NOT NULL,
	result       TEXT NOT NULL,
	method       TEXT NOT NULL,
	winner       TEXT NOT NULL DEFAULT '',
	plies        INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
)`

// Repository archives finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenRepository connects to DATABASE_URL, pings and creates the table if needed.
func OpenRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := NewRepository(db)
	if err := r.Migrate(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create local_chess_games: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, game domain.FinishedGame) error {
	const query = `
		INSERT INTO local_chess_games (
			game_id, mode, base_ms, increment_ms,
			result, method, winner, plies,
			started_at, ended_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (game_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		game.ID,
		game.Mode,
		game.BaseTimeMs,
		game.IncrementMs,
		game.Result,
		game.Method,
		game.Winner,
		game.Plies,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert finished game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateGame
	}
	return nil
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]domain.FinishedGame, error) {
	const query = `
		SELECT game_id, mode, base_ms, increment_ms, result, method, winner,
			plies, started_at, ended_at, duration_ms
		FROM local_chess_games
		ORDER BY ended_at DESC
		LIMIT $1`

	limit = normalizeLimit(limit)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select finished games: %w", err)
	}
	defer rows.Close()

	games := make([]domain.FinishedGame, 0, limit)
	for rows.Next() {
		var (
			g          domain.FinishedGame
			durationMS int64
		)
		if err := rows.Scan(
			&g.ID,
			&g.Mode,
			&g.BaseTimeMs,
			&g.IncrementMs,
			&g.Result,
			&g.Method,
			&g.Winner,
			&g.Plies,
			&g.StartedAt,
			&g.EndedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan finished game: %w", err)
		}
		g.Duration = time.Duration(durationMS) * time.Millisecond
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finished games: %w", err)
	}
	return games, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
