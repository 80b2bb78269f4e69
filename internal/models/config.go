package models

import "time"

// GameConfig is an immutable configuration snapshot supplied at game
// construction. It is passed by value and never mutated in place; callers
// that need different settings build a new config.
type GameConfig struct {
	// VictoryTarget is the point total at which a player wins.
	VictoryTarget int `json:"victoryTarget"`

	// ProposerPoints is awarded to the proposer when a proposal passes.
	ProposerPoints int `json:"proposerPoints"`

	// ForVoterPoints is awarded to each FOR voter when a proposal passes.
	ForVoterPoints int `json:"forVoterPoints"`

	// AgainstVoterPenalty is deducted (by absolute value) from each
	// AGAINST voter when a proposal passes.
	AgainstVoterPenalty int `json:"againstVoterPenalty"`

	// TurnDelay throttles the loop between turns. Not correctness-critical.
	TurnDelay time.Duration `json:"turnDelay"`

	// AgentTimeout bounds every individual agent call.
	AgentTimeout time.Duration `json:"agentTimeout"`

	// AgentConcurrency bounds the voting-phase fan-out.
	AgentConcurrency int `json:"agentConcurrency"`
}

// DefaultGameConfig returns the standard configuration used when no
// environment overrides are present.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		VictoryTarget:       100,
		ProposerPoints:      10,
		ForVoterPoints:      5,
		AgainstVoterPenalty: 2,
		TurnDelay:           2 * time.Second,
		AgentTimeout:        30 * time.Second,
		AgentConcurrency:    4,
	}
}
