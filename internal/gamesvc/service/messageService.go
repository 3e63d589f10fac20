package service

import (
	"context"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/avvvet/game-services/internal/gamesvc/apperror"
	"github.com/avvvet/game-services/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
)

// SendMessage posts a message to the game's board. Any member may post.
func (s *GameService) SendMessage(ctx context.Context, caller models.Identity, gameID string, payload models.MessagePayload) (models.Message, error) {
	if !caller.IsValid() {
		return models.Message{}, apperror.New(apperror.InvalidCaller, "Only principals can send messages.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.getGame(ctx, gameID, "Couldn't send a message to a game with id="+gameID+". Game not found.")
	if err != nil {
		return models.Message{}, err
	}
	if !game.HasMember(caller) {
		return models.Message{}, apperror.New(apperror.Unauthorized, "Only members can send messages to the game.")
	}
	if payload.Body == "" {
		return models.Message{}, apperror.New(apperror.ValidationError, "Message body is required.")
	}

	msg := models.Message{
		ID:        s.newID(),
		GameID:    gameID,
		Author:    caller,
		Body:      payload.Body,
		CreatedAt: s.clock(),
	}
	if err := s.gameStore.InsertMessage(ctx, msg); err != nil {
		return models.Message{}, apperror.Wrap(apperror.StorageFailure, "Failed to send message", err)
	}

	log.WithFields(log.Fields{"game_id": gameID, "message_id": msg.ID}).Info("message sent")
	s.publish(comm.MessageSent, gameID, msg)
	return msg, nil
}

// ListMessages returns the game's messages, oldest first. Members only.
func (s *GameService) ListMessages(ctx context.Context, caller models.Identity, gameID string) ([]models.Message, error) {
	if !caller.IsValid() {
		return nil, apperror.New(apperror.InvalidCaller, "Only principals can read messages.")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	game, err := s.getGame(ctx, gameID, "Couldn't get messages for a game with id="+gameID+". Game not found.")
	if err != nil {
		return nil, err
	}
	if !game.HasMember(caller) {
		return nil, apperror.New(apperror.Unauthorized, "Only members can read messages of the game.")
	}

	msgs, err := s.gameStore.ListMessages(ctx, gameID)
	if err != nil {
		return nil, apperror.Wrap(apperror.StorageFailure, "Failed to list messages", err)
	}
	return msgs, nil
}

// DeleteMessage removes a message. The author and the game owner may delete.
func (s *GameService) DeleteMessage(ctx context.Context, caller models.Identity, gameID, messageID string) (models.Message, error) {
	if !caller.IsValid() {
		return models.Message{}, apperror.New(apperror.InvalidCaller, "Only principals can delete messages.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.getGame(ctx, gameID, "Couldn't delete a message of a game with id="+gameID+". Game not found.")
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.gameStore.GetMessage(ctx, gameID, messageID)
	if err != nil {
		return models.Message{}, apperror.Wrap(apperror.StorageFailure, "Failed to load message", err)
	}
	if msg == nil {
		return models.Message{}, apperror.New(apperror.NotFound, "Message with id="+messageID+" not found.")
	}
	if !caller.Equal(msg.Author) && !caller.Equal(game.Owner) {
		return models.Message{}, apperror.New(apperror.Unauthorized, "You are not authorized to delete the message.")
	}

	if err := s.gameStore.DeleteMessage(ctx, gameID, messageID); err != nil {
		return models.Message{}, apperror.Wrap(apperror.StorageFailure, "Failed to delete message", err)
	}

	log.WithFields(log.Fields{"game_id": gameID, "message_id": messageID}).Info("message deleted")
	s.publish(comm.MessageDeleted, gameID, msg)
	return *msg, nil
}
