package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalType enumerates the four kinds of rule mutation a proposal may carry.
type ProposalType string

const (
	ProposalAdd       ProposalType = "add"
	ProposalAmend     ProposalType = "amend"
	ProposalRepeal    ProposalType = "repeal"
	ProposalTransmute ProposalType = "transmute"
)

// ProposalStatus tracks the lifecycle of a proposal. A proposal starts
// pending and receives exactly one terminal resolution; it is immutable
// thereafter.
type ProposalStatus string

const (
	ProposalPending ProposalStatus = "pending"
	ProposalPassed  ProposalStatus = "passed"
	ProposalFailed  ProposalStatus = "failed"
)

// VoteChoice is a single voter's stance on a proposal.
type VoteChoice string

const (
	VoteFor     VoteChoice = "for"
	VoteAgainst VoteChoice = "against"
	VoteAbstain VoteChoice = "abstain"
)

// Vote records one voter's choice on a proposal. At most one vote per
// voter per proposal.
type Vote struct {
	VoterID uuid.UUID  `json:"voterId"`
	Choice  VoteChoice `json:"choice"`
}

// Proposal is a candidate rule mutation submitted by the active player.
// IDs are strictly increasing, starting above the statically reserved
// rule number bands.
type Proposal struct {
	ID         int            `json:"id"`
	ProposerID uuid.UUID      `json:"proposerId"`
	Type       ProposalType   `json:"type"`
	RuleNumber int            `json:"ruleNumber"`
	RuleText   string         `json:"ruleText"`
	Status     ProposalStatus `json:"status"`
	Votes      []Vote         `json:"votes"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Tally counts the FOR, AGAINST and ABSTAIN votes on a proposal.
func (p *Proposal) Tally() (forVotes, againstVotes, abstainVotes int) {
	for _, v := range p.Votes {
		switch v.Choice {
		case VoteFor:
			forVotes++
		case VoteAgainst:
			againstVotes++
		default:
			abstainVotes++
		}
	}
	return forVotes, againstVotes, abstainVotes
}
