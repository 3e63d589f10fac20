package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/avvvet/game-services/internal/gamesvc/apperror"
	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/avvvet/game-services/internal/gamesvc/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// GameService owns every game record. All mutations run their checks and
// their write under one lock, so no caller observes a half-applied change.
type GameService struct {
	mu        sync.RWMutex
	gameStore store.GameStore
	publisher Publisher // nil disables events

	now   func() time.Time
	newID func() string
}

func NewGameService(gameStore store.GameStore, publisher Publisher) *GameService {
	return &GameService{
		gameStore: gameStore,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Create registers a new game owned by caller.
func (s *GameService) Create(ctx context.Context, caller models.Identity, payload models.GamePayload) (models.Game, error) {
	if !caller.IsValid() {
		return models.Game{}, apperror.New(apperror.InvalidCaller, "Only principals can add games.")
	}
	if !payload.Complete() {
		return models.Game{}, apperror.New(apperror.ValidationError,
			"Title, description, and avatar are required fields for the game.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game := models.Game{
		ID:          s.newID(),
		Title:       payload.Title,
		Description: payload.Description,
		Avatar:      payload.Avatar,
		Owner:       caller,
		Members:     []models.Identity{caller},
		CreatedAt:   s.clock(),
	}

	// ids are never client supplied, so a collision here is a generator fault
	if err := s.gameStore.InsertGame(ctx, game); err != nil {
		return models.Game{}, apperror.Wrap(apperror.StorageFailure, "Failed to add game", err)
	}

	log.WithFields(log.Fields{"game_id": game.ID, "owner": caller.String()}).Info("game created")
	s.publishGame(comm.GameCreated, game)
	return game, nil
}

// Update replaces the editable fields of the game. Only the owner may
// update; id, owner, members and creation time are kept.
func (s *GameService) Update(ctx context.Context, caller models.Identity, id string, payload models.GamePayload) (models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.getGame(ctx, id, "Couldn't update a game with id="+id+". Game not found.")
	if err != nil {
		return models.Game{}, err
	}
	if !caller.Equal(game.Owner) {
		return models.Game{}, apperror.New(apperror.Unauthorized, "You are not authorized to update the game.")
	}
	if !payload.Complete() {
		return models.Game{}, apperror.New(apperror.ValidationError,
			"Title, description, and avatar are required fields for the update.")
	}

	game.Title = payload.Title
	game.Description = payload.Description
	game.Avatar = payload.Avatar
	s.touch(&game)

	if err := s.gameStore.ReplaceGame(ctx, game); err != nil {
		return models.Game{}, apperror.Wrap(apperror.StorageFailure, "Failed to update game", err)
	}

	log.WithField("game_id", id).Info("game updated")
	s.publishGame(comm.GameUpdated, game)
	return game, nil
}

func (s *GameService) Get(ctx context.Context, id string) (models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getGame(ctx, id, "Game with id="+id+" not found.")
}

// List returns every game, oldest first.
func (s *GameService) List(ctx context.Context) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games, err := s.gameStore.ListGames(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.StorageFailure, "Failed to list games", err)
	}
	return games, nil
}

// AddMember appends member to the game's member list. Owner only.
func (s *GameService) AddMember(ctx context.Context, caller models.Identity, id string, member models.Identity) (models.Game, error) {
	if !caller.IsValid() {
		return models.Game{}, apperror.New(apperror.InvalidCaller, "Only principals can add members.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.getGame(ctx, id, "Couldn't add a member to a game with id="+id+". Game not found.")
	if err != nil {
		return models.Game{}, err
	}
	if !caller.Equal(game.Owner) {
		return models.Game{}, apperror.New(apperror.Unauthorized, "You are not authorized to add members to the game.")
	}
	if !member.IsValid() {
		return models.Game{}, apperror.New(apperror.ValidationError, "A valid member identity is required.")
	}
	if game.HasMember(member) {
		return models.Game{}, apperror.New(apperror.ValidationError, member.String()+" is already a member of the game.")
	}

	game.Members = append(game.Members, member)
	s.touch(&game)

	if err := s.gameStore.ReplaceGame(ctx, game); err != nil {
		return models.Game{}, apperror.Wrap(apperror.StorageFailure, "Failed to add member", err)
	}

	log.WithFields(log.Fields{"game_id": id, "member": member.String()}).Info("member added")
	s.publishGame(comm.MemberAdded, game)
	return game, nil
}

// Delete removes the game together with its messages. Owner only.
func (s *GameService) Delete(ctx context.Context, caller models.Identity, id string) (models.Game, error) {
	if !caller.IsValid() {
		return models.Game{}, apperror.New(apperror.InvalidCaller, "Only principals can delete games.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.getGame(ctx, id, "Couldn't delete a game with id="+id+". Game not found.")
	if err != nil {
		return models.Game{}, err
	}
	if !caller.Equal(game.Owner) {
		return models.Game{}, apperror.New(apperror.Unauthorized, "You are not authorized to delete the game.")
	}

	if err := s.gameStore.DeleteGame(ctx, id); err != nil {
		return models.Game{}, apperror.Wrap(apperror.StorageFailure, "Failed to delete game", err)
	}

	log.WithField("game_id", id).Info("game deleted")
	s.publishGame(comm.GameDeleted, game)
	return game, nil
}

// Subscribe checks that caller may follow the game's events. Members only.
func (s *GameService) Subscribe(ctx context.Context, caller models.Identity, id string) (models.Game, error) {
	if !caller.IsValid() {
		return models.Game{}, apperror.New(apperror.InvalidCaller, "Only principals can subscribe to games.")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.getGame(ctx, id, "Couldn't subscribe to a game with id="+id+". Game not found.")
	if err != nil {
		return models.Game{}, err
	}
	if !game.HasMember(caller) {
		return models.Game{}, apperror.New(apperror.Unauthorized, "Only members can subscribe to the game.")
	}
	return game, nil
}

// clock reads the time at the precision the stores keep, so a returned
// record matches what a later read loads.
func (s *GameService) clock() time.Time {
	return models.Timestamp(s.now())
}

// getGame loads a game or fails with NotFound carrying notFoundMsg.
// Callers hold s.mu.
func (s *GameService) getGame(ctx context.Context, id, notFoundMsg string) (models.Game, error) {
	game, err := s.gameStore.GetGame(ctx, id)
	if err != nil {
		return models.Game{}, apperror.Wrap(apperror.StorageFailure, "Failed to load game", err)
	}
	if game == nil {
		return models.Game{}, apperror.New(apperror.NotFound, notFoundMsg)
	}
	return *game, nil
}

// touch stamps the mutation time, never moving UpdatedAt backwards or
// before CreatedAt.
func (s *GameService) touch(g *models.Game) {
	t := s.clock()
	if t.Before(g.CreatedAt) {
		t = g.CreatedAt
	}
	if g.UpdatedAt != nil && t.Before(*g.UpdatedAt) {
		t = *g.UpdatedAt
	}
	g.UpdatedAt = &t
}

func (s *GameService) publishGame(eventType string, game models.Game) {
	s.publish(eventType, game.ID, game)
}

// publish announces a committed change. A failed publish is logged only;
// the mutation has already been stored.
func (s *GameService) publish(eventType, gameID string, v any) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("unable to marshal %s event for game %s: %s", eventType, gameID, err)
		return
	}
	payload, err := json.Marshal(comm.Event{Type: eventType, GameId: gameID, Data: data})
	if err != nil {
		log.Errorf("unable to marshal %s event for game %s: %s", eventType, gameID, err)
		return
	}

	if err := s.publisher.Publish(comm.EventTopic, payload); err != nil {
		log.Errorf("Error publishing %s to topic %s: %s", eventType, comm.EventTopic, err)
	}
}
