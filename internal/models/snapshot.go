package models

import (
	"time"

	"github.com/google/uuid"
)

// GameSnapshot is a serializable view of a game at one point in time.
// Snapshots are what agents, persistence and the diff function see; they
// share no memory with the live game, so holders may read them freely.
type GameSnapshot struct {
	GameID         uuid.UUID  `json:"gameId"`
	Turn           int        `json:"turn"`
	Phase          GamePhase  `json:"phase"`
	ActivePlayerID uuid.UUID  `json:"activePlayerId"`
	Rules          []Rule     `json:"rules"`
	Players        []Player   `json:"players"`
	Proposals      []Proposal `json:"proposals"`
	Config         GameConfig `json:"config"`
	TakenAt        time.Time  `json:"takenAt"`
}

// RuleByID returns the rule with the given id, if present.
func (s GameSnapshot) RuleByID(id int) (Rule, bool) {
	for _, r := range s.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// PlayerByID returns the player with the given id, if present.
func (s GameSnapshot) PlayerByID(id uuid.UUID) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
