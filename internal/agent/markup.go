// internal/agent/markup.go
package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jason-s-yu/nomic/internal/models"
)

// Draft is a structured proposal parsed out of agent markup, before it
// is committed to the game as a numbered proposal.
type Draft struct {
	Type       models.ProposalType
	RuleNumber int
	RuleText   string
}

// ParseError marks proposal markup that failed schema validation. It is
// a local failure: it voids the active player's proposal attempt for the
// turn, never the game.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed proposal markup: %s", e.Reason)
}

// proposalRe matches the proposal block grammar:
//
//	<Add|Amend|Repeal|Transmute> <ruleNumber> "<text>"
//
// The type keyword is case-insensitive and may be prefixed with an
// optional "rule" before the number. The quoted text may span lines.
// Repeal takes no text; Transmute's text names the requested mutability.
var proposalRe = regexp.MustCompile(`(?is)^\s*(add|amend|repeal|transmute)\s+(?:rule\s+)?(\d+)\s*(?:"(.*)")?\s*$`)

// fenceRe strips a surrounding markdown code fence, which LLM backends
// habitually wrap output in despite instructions.
var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n?(.*?)\\n?```$")

var voteWordRe = regexp.MustCompile(`[A-Z]+`)

// ParseProposal validates raw agent output against the proposal markup
// grammar and returns the structured draft. Malformed input is rejected
// here, before it can reach the rule engine.
func ParseProposal(raw string) (*Draft, error) {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		trimmed = strings.TrimSpace(m[1])
	}
	if trimmed == "" {
		return nil, &ParseError{Input: raw, Reason: "empty proposal"}
	}

	m := proposalRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, &ParseError{Input: raw, Reason: "does not match <Type> <ruleNumber> \"<text>\""}
	}

	typ := models.ProposalType(strings.ToLower(m[1]))
	num, err := strconv.Atoi(m[2])
	if err != nil || num <= 0 {
		return nil, &ParseError{Input: raw, Reason: "invalid rule number"}
	}
	text := strings.TrimSpace(m[3])

	switch typ {
	case models.ProposalAdd, models.ProposalAmend:
		if text == "" {
			return nil, &ParseError{Input: raw, Reason: fmt.Sprintf("%s requires quoted rule text", typ)}
		}
	case models.ProposalRepeal:
		if text != "" {
			return nil, &ParseError{Input: raw, Reason: "repeal takes no rule text"}
		}
	case models.ProposalTransmute:
		if text != "" {
			lower := strings.ToLower(text)
			if lower != "mutable" && lower != "immutable" {
				return nil, &ParseError{Input: raw, Reason: `transmute text must be "mutable" or "immutable"`}
			}
			text = lower
		}
	}

	return &Draft{Type: typ, RuleNumber: num, RuleText: text}, nil
}

// ParseVoteChoice validates raw agent output as a vote. The first
// recognized keyword wins; anything else is rejected.
func ParseVoteChoice(raw string) (models.VoteChoice, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if m := fenceRe.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		normalized = strings.ToUpper(strings.TrimSpace(m[1]))
	}

	for _, word := range voteWordRe.FindAllString(normalized, -1) {
		switch word {
		case "FOR":
			return models.VoteFor, nil
		case "AGAINST":
			return models.VoteAgainst, nil
		case "ABSTAIN":
			return models.VoteAbstain, nil
		}
	}
	return "", &ParseError{Input: raw, Reason: "vote must be FOR, AGAINST or ABSTAIN"}
}
