package models

import "github.com/google/uuid"

// RuleChange describes a rule whose text or mutability differs between
// two snapshots.
type RuleChange struct {
	ID     int  `json:"id"`
	Before Rule `json:"before"`
	After  Rule `json:"after"`
}

// ScoreChange describes one player's point delta between two snapshots.
type ScoreChange struct {
	PlayerID uuid.UUID `json:"playerId"`
	Before   int       `json:"before"`
	After    int       `json:"after"`
	Delta    int       `json:"delta"`
}

// SnapshotDiff is a structural diff of two game snapshots, used by
// replay/debugging collaborators. It is derived purely from the two
// snapshots and carries no reference to the live game.
type SnapshotDiff struct {
	TurnDelta    int           `json:"turnDelta"`
	PhaseChanged bool          `json:"phaseChanged"`
	PhaseBefore  GamePhase     `json:"phaseBefore,omitempty"`
	PhaseAfter   GamePhase     `json:"phaseAfter,omitempty"`
	RulesAdded   []Rule        `json:"rulesAdded,omitempty"`
	RulesRemoved []Rule        `json:"rulesRemoved,omitempty"`
	RulesChanged []RuleChange  `json:"rulesChanged,omitempty"`
	ScoreChanges []ScoreChange `json:"scoreChanges,omitempty"`
	NewProposals []Proposal    `json:"newProposals,omitempty"`
}

// Empty reports whether the diff records no differences at all.
func (d SnapshotDiff) Empty() bool {
	return d.TurnDelta == 0 && !d.PhaseChanged &&
		len(d.RulesAdded) == 0 && len(d.RulesRemoved) == 0 &&
		len(d.RulesChanged) == 0 && len(d.ScoreChanges) == 0 &&
		len(d.NewProposals) == 0
}

// Diff computes a structural diff between two snapshots of the same game,
// oldest first. Both inputs are read-only; the result shares no memory
// with either.
func Diff(before, after GameSnapshot) SnapshotDiff {
	d := SnapshotDiff{
		TurnDelta: after.Turn - before.Turn,
	}
	if before.Phase != after.Phase {
		d.PhaseChanged = true
		d.PhaseBefore = before.Phase
		d.PhaseAfter = after.Phase
	}

	oldRules := make(map[int]Rule, len(before.Rules))
	for _, r := range before.Rules {
		oldRules[r.ID] = r
	}
	for _, r := range after.Rules {
		prev, ok := oldRules[r.ID]
		if !ok {
			d.RulesAdded = append(d.RulesAdded, r)
			continue
		}
		if prev.Text != r.Text || prev.Mutable != r.Mutable {
			d.RulesChanged = append(d.RulesChanged, RuleChange{ID: r.ID, Before: prev, After: r})
		}
		delete(oldRules, r.ID)
	}
	// Anything left in oldRules has no counterpart in the newer snapshot.
	for _, r := range before.Rules {
		if _, removed := oldRules[r.ID]; removed {
			d.RulesRemoved = append(d.RulesRemoved, r)
		}
	}

	oldPoints := make(map[uuid.UUID]int, len(before.Players))
	for _, p := range before.Players {
		oldPoints[p.ID] = p.Points
	}
	for _, p := range after.Players {
		if prev, ok := oldPoints[p.ID]; ok && prev != p.Points {
			d.ScoreChanges = append(d.ScoreChanges, ScoreChange{
				PlayerID: p.ID,
				Before:   prev,
				After:    p.Points,
				Delta:    p.Points - prev,
			})
		}
	}

	seen := make(map[int]bool, len(before.Proposals))
	for _, p := range before.Proposals {
		seen[p.ID] = true
	}
	for _, p := range after.Proposals {
		if !seen[p.ID] {
			d.NewProposals = append(d.NewProposals, p)
		}
	}

	return d
}
