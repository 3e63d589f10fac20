package store

import (
	"context"
	"sort"
	"sync"

	"github.com/avvvet/game-services/internal/gamesvc/models"
)

// MemoryStore keeps games for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	games    map[string]models.Game
	messages map[string]map[string]models.Message // game id -> message id -> message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:    map[string]models.Game{},
		messages: map[string]map[string]models.Message{},
	}
}

func (s *MemoryStore) GetGame(ctx context.Context, id string) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	c := g.Clone()
	return &c, nil
}

func (s *MemoryStore) ListGames(ctx context.Context) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g.Clone())
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

func (s *MemoryStore) InsertGame(ctx context.Context, game models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[game.ID]; ok {
		return ErrAlreadyExists
	}
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *MemoryStore) ReplaceGame(ctx context.Context, game models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[game.ID]; !ok {
		return ErrNotFound
	}
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *MemoryStore) DeleteGame(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; !ok {
		return ErrNotFound
	}
	delete(s.games, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) InsertMessage(ctx context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[msg.GameID]; !ok {
		return ErrNotFound
	}
	board, ok := s.messages[msg.GameID]
	if !ok {
		board = map[string]models.Message{}
		s.messages[msg.GameID] = board
	}
	if _, ok := board[msg.ID]; ok {
		return ErrAlreadyExists
	}
	board[msg.ID] = msg
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, gameID, messageID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[gameID][messageID]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, gameID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	board := s.messages[gameID]
	msgs := make([]models.Message, 0, len(board))
	for _, m := range board {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, gameID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[gameID][messageID]; !ok {
		return ErrNotFound
	}
	delete(s.messages[gameID], messageID)
	return nil
}
