package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL CHECK (title <> ''),
	description TEXT NOT NULL CHECK (description <> ''),
	avatar      TEXT NOT NULL CHECK (avatar <> ''),
	owner       TEXT NOT NULL,
	members     TEXT[] NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NULL CHECK (updated_at IS NULL OR updated_at >= created_at)
);

CREATE TABLE IF NOT EXISTS game_messages (
	id         TEXT PRIMARY KEY,
	game_id    TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	author     TEXT NOT NULL,
	body       TEXT NOT NULL CHECK (body <> ''),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS game_messages_game_id_idx ON game_messages (game_id, created_at);
`

// Connect opens and pings a connection pool. The caller closes it.
func Connect(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// Try pinging to make sure it's valid
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Migrate creates the game tables when they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
