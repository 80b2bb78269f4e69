package rules

import (
	"sort"
	"strings"

	"github.com/jason-s-yu/nomic/internal/models"
)

// Mutation is a candidate change to the rule set, normally derived from a
// parsed proposal. MakeMutable is only meaningful for transmutations and
// names the requested mutability (not a flip).
type Mutation struct {
	Type        models.ProposalType
	RuleNumber  int
	Text        string
	MakeMutable bool
}

// SortByPrecedence returns the rules ordered by ascending numeric id.
// Lower-numbered rules take priority when rules conflict. Ties are
// impossible because ids are unique. The input is not modified, and the
// function is idempotent.
func SortByPrecedence(rules []models.Rule) []models.Rule {
	sorted := make([]models.Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// Validate decides whether applying the mutation batch to the snapshot
// preserves consistency. Checks run in a fixed order and short-circuit on
// the first failure: target existence, the immutability guard (with the
// same-batch transmute-to-mutable allowance), no-op transmutation, id
// uniqueness after application, and non-empty resulting text.
//
// A batch is validated as a unit so that a proposal may transmute an
// immutable rule and repeal or amend it in the same proposal.
func Validate(snapshot []models.Rule, batch []Mutation) error {
	byID := make(map[int]models.Rule, len(snapshot))
	for _, r := range snapshot {
		byID[r.ID] = r
	}

	for _, m := range batch {
		target, exists := byID[m.RuleNumber]

		// Check 1: target existence.
		switch m.Type {
		case models.ProposalAdd:
			if exists {
				return failCheck(CheckExistence, m.RuleNumber, "cannot add: rule already exists")
			}
		default:
			if !exists {
				return failCheck(CheckExistence, m.RuleNumber, "cannot %s: rule does not exist", m.Type)
			}
		}

		// Check 2: immutability guard. A repeal or amendment of an
		// immutable rule is legal only when the same batch also
		// transmutes that rule to mutable.
		if (m.Type == models.ProposalRepeal || m.Type == models.ProposalAmend) && exists && !target.Mutable {
			if !batchTransmutesToMutable(batch, m.RuleNumber) {
				return failCheck(CheckImmutability, m.RuleNumber,
					"rule is immutable and the proposal does not transmute it")
			}
		}

		// Check 3: a transmutation to the current mutability is void.
		if m.Type == models.ProposalTransmute && exists && target.Mutable == m.MakeMutable {
			return failCheck(CheckTransmute, m.RuleNumber,
				"rule is already %s", mutabilityWord(m.MakeMutable))
		}
	}

	// Check 4: no two rules may share an id after the batch is applied.
	// The snapshot itself has unique ids, so duplicates can only come
	// from the batch adding the same id more than once.
	added := make(map[int]bool)
	for _, m := range batch {
		if m.Type != models.ProposalAdd {
			continue
		}
		if added[m.RuleNumber] {
			return failCheck(CheckUniqueness, m.RuleNumber, "batch adds rule id twice")
		}
		added[m.RuleNumber] = true
	}

	// Check 5: resulting rule text must be non-empty after trimming.
	for _, m := range batch {
		if m.Type == models.ProposalAdd || m.Type == models.ProposalAmend {
			if strings.TrimSpace(m.Text) == "" {
				return failCheck(CheckText, m.RuleNumber, "resulting rule text is empty")
			}
		}
	}

	return nil
}

// Apply validates the batch against the snapshot and, on success, returns
// a new rule set with the batch applied, in precedence order. The input
// snapshot is never modified; on validation failure it is returned
// unchanged alongside the error.
func Apply(snapshot []models.Rule, batch []Mutation) ([]models.Rule, error) {
	if err := Validate(snapshot, batch); err != nil {
		return snapshot, err
	}

	byID := make(map[int]models.Rule, len(snapshot)+len(batch))
	for _, r := range snapshot {
		byID[r.ID] = r
	}

	// Transmutations apply first so a transmute+repeal pair works
	// regardless of the order the batch lists them in.
	for _, m := range batch {
		if m.Type != models.ProposalTransmute {
			continue
		}
		if r, ok := byID[m.RuleNumber]; ok {
			r.Mutable = m.MakeMutable
			byID[m.RuleNumber] = r
		}
	}
	for _, m := range batch {
		switch m.Type {
		case models.ProposalAdd:
			// Newly enacted rules are mutable.
			byID[m.RuleNumber] = models.Rule{ID: m.RuleNumber, Text: m.Text, Mutable: true}
		case models.ProposalAmend:
			r := byID[m.RuleNumber]
			r.Text = m.Text
			byID[m.RuleNumber] = r
		case models.ProposalRepeal:
			delete(byID, m.RuleNumber)
		}
	}

	result := make([]models.Rule, 0, len(byID))
	for _, r := range byID {
		result = append(result, r)
	}
	return SortByPrecedence(result), nil
}

// batchTransmutesToMutable reports whether the batch contains a
// transmutation of the given rule to mutable.
func batchTransmutesToMutable(batch []Mutation, ruleID int) bool {
	for _, m := range batch {
		if m.Type == models.ProposalTransmute && m.RuleNumber == ruleID && m.MakeMutable {
			return true
		}
	}
	return false
}

func mutabilityWord(mutable bool) string {
	if mutable {
		return "mutable"
	}
	return "immutable"
}
