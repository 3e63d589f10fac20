package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, game_id, author, body, created_at`

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		msg    models.Message
		author string
	)
	if err := row.Scan(&msg.ID, &msg.GameID, &author, &msg.Body, &msg.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if msg.Author, err = models.ParseIdentity(author); err != nil {
		return nil, fmt.Errorf("message %s has invalid author: %w", msg.ID, err)
	}
	return &msg, nil
}

func (s *PgStore) InsertMessage(ctx context.Context, msg models.Message) error {
	query := `
		INSERT INTO game_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query, msg.ID, msg.GameID, msg.Author.String(), msg.Body, msg.CreatedAt)
	if err != nil {
		return mapPgError("failed to insert message", err)
	}
	return nil
}

func (s *PgStore) GetMessage(ctx context.Context, gameID, messageID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM game_messages WHERE game_id = $1 AND id = $2`

	msg, err := scanMessage(s.db.QueryRow(ctx, query, gameID, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

func (s *PgStore) ListMessages(ctx context.Context, gameID string) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM game_messages WHERE game_id = $1 ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

func (s *PgStore) DeleteMessage(ctx context.Context, gameID, messageID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM game_messages WHERE game_id = $1 AND id = $2`, gameID, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
