// Package agent defines the capability interface the orchestrator uses
// to drive players, plus the proposal markup grammar and prompt
// construction shared by every backend. Concrete backends live in
// subpackages (anthropic, openai) or in this package (ScriptedAgent);
// the backend is selected once at construction and the core never
// inspects which one it got.
package agent

import (
	"context"

	"github.com/jason-s-yu/nomic/internal/models"
)

// Agent is the abstract capability implemented by any player-driving
// backend. All returned text is untrusted and must pass schema
// validation (ParseProposal, ParseVoteChoice) before use.
type Agent interface {
	// Propose returns proposal markup for the player's turn.
	Propose(ctx context.Context, snapshot models.GameSnapshot) (string, error)

	// Vote returns the player's stance on the given proposal text.
	Vote(ctx context.Context, proposalText string, snapshot models.GameSnapshot) (models.VoteChoice, error)

	// IsAvailable reports whether the backend is ready to serve calls.
	IsAvailable() bool
}
