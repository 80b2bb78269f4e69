// internal/agent/scripted.go
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/jason-s-yu/nomic/internal/models"
)

// ScriptedAgent is a deterministic in-process backend used by the local
// CLI runner and by tests that need a full game without network calls.
// It proposes a fresh Add each turn and votes FOR everything, so a game
// driven entirely by scripted agents always reaches the victory target.
type ScriptedAgent struct {
	Name string

	mu      sync.Mutex
	counter int
}

// NewScriptedAgent creates a scripted backend for the named player.
func NewScriptedAgent(name string) *ScriptedAgent {
	return &ScriptedAgent{Name: name}
}

// Propose adds a rule at the lowest free number above the proposal band.
func (a *ScriptedAgent) Propose(_ context.Context, snapshot models.GameSnapshot) (string, error) {
	a.mu.Lock()
	a.counter++
	n := a.counter
	a.mu.Unlock()

	num := freeRuleNumber(snapshot)
	return fmt.Sprintf("Add %d \"Scripted rule %d, enacted on behalf of %s.\"", num, n, a.Name), nil
}

// Vote always votes FOR.
func (a *ScriptedAgent) Vote(_ context.Context, _ string, _ models.GameSnapshot) (models.VoteChoice, error) {
	return models.VoteFor, nil
}

// IsAvailable always reports true; the scripted backend has no transport.
func (a *ScriptedAgent) IsAvailable() bool { return true }

// freeRuleNumber returns the smallest rule number above every existing
// rule and every reserved band.
func freeRuleNumber(snapshot models.GameSnapshot) int {
	max := 300
	for _, r := range snapshot.Rules {
		if r.ID > max {
			max = r.ID
		}
	}
	for _, p := range snapshot.Proposals {
		if p.RuleNumber > max {
			max = p.RuleNumber
		}
	}
	return max + 1
}
