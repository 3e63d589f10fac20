package models

import (
	"time"
)

// TimePrecision is the finest resolution every store keeps. Postgres
// keeps microseconds and Mongo milliseconds.
const TimePrecision = time.Millisecond

// Timestamp truncates t to TimePrecision in UTC.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}

// Game is a registered game record. Owner is set once at creation and is
// the only identity allowed to mutate the record.
type Game struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Avatar      string     `json:"avatar"`
	Owner       Identity   `json:"owner"`
	Members     []Identity `json:"members"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"` // nil until the first mutation
}

// GamePayload holds the client-editable fields of a game.
type GamePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
}

// Complete reports whether every required field is set.
func (p GamePayload) Complete() bool {
	return p.Title != "" && p.Description != "" && p.Avatar != ""
}

// HasMember reports whether id is in the member list.
func (g *Game) HasMember(id Identity) bool {
	for _, m := range g.Members {
		if m.Equal(id) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no mutable state with g.
func (g Game) Clone() Game {
	c := g
	if g.Members != nil {
		c.Members = make([]Identity, len(g.Members))
		copy(c.Members, g.Members)
	}
	if g.UpdatedAt != nil {
		t := *g.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}
