package models

// GamePhase is the single source of truth for which game actions are
// legal. Transitions: setup → playing → {paused ⇄ playing} → completed.
type GamePhase string

const (
	PhaseSetup     GamePhase = "setup"
	PhasePlaying   GamePhase = "playing"
	PhasePaused    GamePhase = "paused"
	PhaseCompleted GamePhase = "completed"
)
