package store

import (
	"context"
	"errors"

	"github.com/avvvet/game-services/internal/gamesvc/models"
)

var (
	// ErrNotFound is returned by writers when the target record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrAlreadyExists is returned when inserting a record whose id is taken.
	ErrAlreadyExists = errors.New("store: record already exists")
)

// GameStore is a storage backend for games and their messages. Getters
// return nil, nil when the record is absent.
type GameStore interface {
	GetGame(ctx context.Context, id string) (*models.Game, error)
	ListGames(ctx context.Context) ([]models.Game, error)
	InsertGame(ctx context.Context, game models.Game) error
	ReplaceGame(ctx context.Context, game models.Game) error
	// DeleteGame removes the game and every message posted to it.
	DeleteGame(ctx context.Context, id string) error

	InsertMessage(ctx context.Context, msg models.Message) error
	GetMessage(ctx context.Context, gameID, messageID string) (*models.Message, error)
	ListMessages(ctx context.Context, gameID string) ([]models.Message, error)
	DeleteMessage(ctx context.Context, gameID, messageID string) error
}

var (
	_ GameStore = (*MemoryStore)(nil)
	_ GameStore = (*PgStore)(nil)
	_ GameStore = (*MongoStore)(nil)
)
