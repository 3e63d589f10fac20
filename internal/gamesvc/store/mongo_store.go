package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/game-services/internal/gamesvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	gamesCollection    = "games"
	messagesCollection = "game_messages"
)

// MongoStore is the MongoDB backend.
type MongoStore struct {
	games    *mongo.Collection
	messages *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		games:    db.Collection(gamesCollection),
		messages: db.Collection(messagesCollection),
	}
}

type gameDocument struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Avatar      string     `bson:"avatar"`
	Owner       string     `bson:"owner"`
	Members     []string   `bson:"members"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   *time.Time `bson:"updated_at,omitempty"`
}

type messageDocument struct {
	ID        string    `bson:"_id"`
	GameID    string    `bson:"game_id"`
	Author    string    `bson:"author"`
	Body      string    `bson:"body"`
	CreatedAt time.Time `bson:"created_at"`
}

func toGameDocument(g models.Game) gameDocument {
	return gameDocument{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Avatar:      g.Avatar,
		Owner:       g.Owner.String(),
		Members:     models.IdentityStrings(g.Members),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func (d gameDocument) toGame() (*models.Game, error) {
	owner, err := models.ParseIdentity(d.Owner)
	if err != nil {
		return nil, fmt.Errorf("game %s has invalid owner: %w", d.ID, err)
	}
	members, err := models.ParseIdentities(d.Members)
	if err != nil {
		return nil, fmt.Errorf("game %s has invalid member: %w", d.ID, err)
	}
	return &models.Game{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Avatar:      d.Avatar,
		Owner:       owner,
		Members:     members,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func toMessageDocument(m models.Message) messageDocument {
	return messageDocument{
		ID:        m.ID,
		GameID:    m.GameID,
		Author:    m.Author.String(),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func (d messageDocument) toMessage() (*models.Message, error) {
	author, err := models.ParseIdentity(d.Author)
	if err != nil {
		return nil, fmt.Errorf("message %s has invalid author: %w", d.ID, err)
	}
	return &models.Message{
		ID:        d.ID,
		GameID:    d.GameID,
		Author:    author,
		Body:      d.Body,
		CreatedAt: d.CreatedAt,
	}, nil
}

func sortByCreation() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
}

// EnsureIndexes creates the message lookup index. Games are keyed by _id.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "game_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}
	return nil
}

func (s *MongoStore) GetGame(ctx context.Context, id string) (*models.Game, error) {
	var doc gameDocument
	err := s.games.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}
	return doc.toGame()
}

func (s *MongoStore) ListGames(ctx context.Context) ([]models.Game, error) {
	cur, err := s.games.Find(ctx, bson.M{}, sortByCreation())
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	var docs []gameDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode games: %w", err)
	}

	games := make([]models.Game, 0, len(docs))
	for _, d := range docs {
		g, err := d.toGame()
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, nil
}

func (s *MongoStore) InsertGame(ctx context.Context, game models.Game) error {
	if _, err := s.games.InsertOne(ctx, toGameDocument(game)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to insert game: %w", ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (s *MongoStore) ReplaceGame(ctx context.Context, game models.Game) error {
	doc := toGameDocument(game)
	update := bson.M{"$set": bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"avatar":      doc.Avatar,
		"members":     doc.Members,
		"updated_at":  doc.UpdatedAt,
	}}

	res, err := s.games.UpdateOne(ctx, bson.M{"_id": game.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteGame(ctx context.Context, id string) error {
	res, err := s.games.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	if _, err := s.messages.DeleteMany(ctx, bson.M{"game_id": id}); err != nil {
		return fmt.Errorf("failed to delete messages of game %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg models.Message) error {
	if _, err := s.messages.InsertOne(ctx, toMessageDocument(msg)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to insert message: %w", ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) GetMessage(ctx context.Context, gameID, messageID string) (*models.Message, error) {
	var doc messageDocument
	err := s.messages.FindOne(ctx, bson.M{"_id": messageID, "game_id": gameID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return doc.toMessage()
}

func (s *MongoStore) ListMessages(ctx context.Context, gameID string) ([]models.Message, error) {
	cur, err := s.messages.Find(ctx, bson.M{"game_id": gameID}, sortByCreation())
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(docs))
	for _, d := range docs {
		m, err := d.toMessage()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, gameID, messageID string) error {
	res, err := s.messages.DeleteOne(ctx, bson.M{"_id": messageID, "game_id": gameID})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
