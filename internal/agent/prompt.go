// internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/nomic/internal/models"
	"github.com/jason-s-yu/nomic/internal/rules"
)

// SystemPrompt frames the game for LLM backends. The markup contract in
// it must stay in lockstep with ParseProposal.
const SystemPrompt = `You are a player in a game of Nomic. Players take turns proposing
changes to the game's own rules, then everyone votes. Lower-numbered
rules take precedence; immutable rules cannot be amended or repealed
until transmuted to mutable. You win by reaching the victory point
target.

When asked to propose, reply with EXACTLY one proposal block and
nothing else:

  Add <number> "<rule text>"
  Amend <number> "<new rule text>"
  Repeal <number>
  Transmute <number> "mutable"
  Transmute <number> "immutable"

When asked to vote, reply with exactly one word: FOR, AGAINST or ABSTAIN.`

// BuildProposePrompt renders the game snapshot into the user prompt for
// a proposal call.
func BuildProposePrompt(snapshot models.GameSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "It is turn %d and it is your turn to propose a rule change.\n\n", snapshot.Turn)
	writeStandings(&b, snapshot)
	writeRulebook(&b, snapshot)
	writeRecentProposals(&b, snapshot, 5)
	b.WriteString("\nReply with exactly one proposal block.")
	return b.String()
}

// BuildVotePrompt renders the snapshot plus the pending proposal into
// the user prompt for a vote call.
func BuildVotePrompt(proposalText string, snapshot models.GameSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "It is turn %d. The active player has proposed:\n\n  %s\n\n", snapshot.Turn, proposalText)
	writeStandings(&b, snapshot)
	writeRulebook(&b, snapshot)
	b.WriteString("\nReply with exactly one word: FOR, AGAINST or ABSTAIN.")
	return b.String()
}

func writeStandings(b *strings.Builder, snapshot models.GameSnapshot) {
	fmt.Fprintf(b, "Standings (victory at %d points):\n", snapshot.Config.VictoryTarget)
	for _, p := range snapshot.Players {
		marker := " "
		if p.IsActive {
			marker = "*"
		}
		fmt.Fprintf(b, "%s %s: %d points\n", marker, p.Name, p.Points)
	}
	b.WriteString("\n")
}

func writeRulebook(b *strings.Builder, snapshot models.GameSnapshot) {
	b.WriteString("Current rules, in precedence order:\n")
	for _, r := range rules.SortByPrecedence(snapshot.Rules) {
		class := "immutable"
		if r.Mutable {
			class = "mutable"
		}
		fmt.Fprintf(b, "%d (%s): %s\n", r.ID, class, r.Text)
	}
}

func writeRecentProposals(b *strings.Builder, snapshot models.GameSnapshot, n int) {
	if len(snapshot.Proposals) == 0 {
		return
	}
	b.WriteString("\nRecent proposals:\n")
	start := len(snapshot.Proposals) - n
	if start < 0 {
		start = 0
	}
	for _, p := range snapshot.Proposals[start:] {
		fmt.Fprintf(b, "#%d %s rule %d (%s)\n", p.ID, p.Type, p.RuleNumber, p.Status)
	}
}
