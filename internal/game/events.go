// internal/game/events.go
package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/nomic/internal/models"
)

// GameEventType is an enum-like type for lifecycle events published on
// the observation channel.
type GameEventType string

const (
	EventGameStart        GameEventType = "game_start"
	EventProposalSubmit   GameEventType = "proposal_submitted"
	EventProposalResolved GameEventType = "proposal_resolved"
	EventTurnComplete     GameEventType = "turn_complete"
	EventVictory          GameEventType = "victory"
	EventGamePaused       GameEventType = "game_paused"
	EventGameResumed      GameEventType = "game_resumed"
	EventError            GameEventType = "error"
)

// GameEvent holds data about a lifecycle event in a consistent format.
// Collaborators (persistence, UI, logging) consume these; the core never
// depends on any subscriber for correctness.
type GameEvent struct {
	Type     GameEventType    `json:"type"`
	GameID   uuid.UUID        `json:"gameId"`
	Turn     int              `json:"turn"`
	Phase    models.GamePhase `json:"phase"`
	PlayerID uuid.UUID        `json:"playerId,omitempty"`

	Proposal *models.Proposal `json:"proposal,omitempty"`

	// ScoreDeltas maps player id -> point change for proposal_resolved.
	ScoreDeltas map[uuid.UUID]int `json:"scoreDeltas,omitempty"`

	// Payload carries miscellaneous fields (cause strings, winner info).
	Payload map[string]interface{} `json:"payload,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
