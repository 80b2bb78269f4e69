package models

import "github.com/google/uuid"

// Player is a participant in a Nomic game. Exactly one player is active
// at a time while the game is in the playing phase; points are adjusted
// only by proposal resolution.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Points   int       `json:"points"`
	IsActive bool      `json:"isActive"`
}
