package comm

import (
	"encoding/json"
)

// NATS subjects shared by the game and socket services.
const (
	RequestTopic = "game.requests"
	EventTopic   = "game.events"
	QueueGroup   = "gamesvc"
)

// Request types accepted on RequestTopic.
const (
	CreateGame    = "create-game"
	UpdateGame    = "update-game"
	GetGame       = "get-game"
	ListGames     = "list-games"
	AddMember     = "add-member"
	DeleteGame    = "delete-game"
	SendMessage   = "send-message"
	ListMessages  = "list-messages"
	DeleteMessage = "delete-message"
	SubscribeGame = "subscribe-game"
)

// Event types published on EventTopic.
const (
	GameCreated    = "game-created"
	GameUpdated    = "game-updated"
	MemberAdded    = "member-added"
	GameDeleted    = "game-deleted"
	MessageSent    = "message-sent"
	MessageDeleted = "message-deleted"
)

// WSMessage is the frame exchanged with websocket clients.
type WSMessage struct {
	Type   string          `json:"type"` // e.g. "subscribe", "create-game"
	Data   json.RawMessage `json:"data"`
	GameId string          `json:"game_id,omitempty"`
	Id     string          `json:"message_id,omitempty"`
}

// Request is a game command sent over NATS. Caller is set by the socket
// service from the verified token, never by the client.
type Request struct {
	Type      string          `json:"type"`
	Caller    string          `json:"caller"`
	GameId    string          `json:"game_id,omitempty"`
	MessageId string          `json:"message_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type ReplyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Reply answers a Request with either Data or Error.
type Reply struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ReplyError     `json:"error,omitempty"`
}

// Event announces a committed change to a game.
type Event struct {
	Type   string          `json:"type"`
	GameId string          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

type Subscription struct {
	GameId string `json:"game_id"`
}

type MemberRequest struct {
	Member string `json:"member"`
}
