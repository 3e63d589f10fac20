package models

import "time"

// Message is a note posted to a game's board by one of its members.
type Message struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	Author    Identity  `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagePayload struct {
	Body string `json:"body"`
}
