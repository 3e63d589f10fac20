package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PgStore is the PostgreSQL backend. The schema lives in db.Migrate.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const gameColumns = `id, title, description, avatar, owner, members, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var (
		game    models.Game
		owner   string
		members []string
	)
	err := row.Scan(
		&game.ID,
		&game.Title,
		&game.Description,
		&game.Avatar,
		&owner,
		&members,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if game.Owner, err = models.ParseIdentity(owner); err != nil {
		return nil, fmt.Errorf("game %s has invalid owner: %w", game.ID, err)
	}
	if game.Members, err = models.ParseIdentities(members); err != nil {
		return nil, fmt.Errorf("game %s has invalid member: %w", game.ID, err)
	}
	return &game, nil
}

func (s *PgStore) GetGame(ctx context.Context, id string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // game not found
		}
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}
	return game, nil
}

func (s *PgStore) ListGames(ctx context.Context) ([]models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := []models.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *PgStore) InsertGame(ctx context.Context, game models.Game) error {
	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		game.ID,
		game.Title,
		game.Description,
		game.Avatar,
		game.Owner.String(),
		models.IdentityStrings(game.Members),
		game.CreatedAt,
		game.UpdatedAt,
	)
	if err != nil {
		return mapPgError("failed to insert game", err)
	}
	return nil
}

// ReplaceGame overwrites the mutable columns. id, owner and created_at are
// never rewritten.
func (s *PgStore) ReplaceGame(ctx context.Context, game models.Game) error {
	query := `
		UPDATE games
		SET title = $2, description = $3, avatar = $4, members = $5, updated_at = $6
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		game.ID,
		game.Title,
		game.Description,
		game.Avatar,
		models.IdentityStrings(game.Members),
		game.UpdatedAt,
	)
	if err != nil {
		return mapPgError("failed to update game", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGame relies on ON DELETE CASCADE to drop the game's messages.
func (s *PgStore) DeleteGame(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mapPgError turns constraint violations into store sentinels.
func mapPgError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", msg, ErrAlreadyExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", msg, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
