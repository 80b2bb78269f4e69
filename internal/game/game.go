// internal/game/game.go
package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/models"
	"github.com/jason-s-yu/nomic/internal/rules"
)

// FirstProposalID is the id assigned to the first proposal. Proposal ids
// are strictly increasing and live above every reserved rule number band.
const FirstProposalID = 301

var (
	ErrWrongPhase     = errors.New("action not legal in current phase")
	ErrTooFewPlayers  = errors.New("at least two players are required to start")
	ErrUnknownPlayer  = errors.New("player is not part of this game")
	ErrNoSuchProposal = errors.New("no such proposal")
	ErrNotPending     = errors.New("proposal has already been resolved")
)

// Resolution describes the terminal outcome of one proposal.
type Resolution struct {
	Proposal      *models.Proposal
	Passed        bool
	ValidationErr error
	ScoreDeltas   map[uuid.UUID]int
	Winner        *models.Player
}

// NomicGame holds the entire state for a single game instance in memory.
// It owns the rule store exclusively; all mutation flows through the
// proposal lifecycle. The orchestrator is the single writer; the mutex
// exists so read-side collaborators (HTTP snapshot handlers, websocket
// feeds) can observe a consistent state.
type NomicGame struct {
	ID     uuid.UUID
	Config models.GameConfig

	Players   []*models.Player
	Rules     []models.Rule
	Proposals []*models.Proposal

	Turn               int
	CurrentPlayerIndex int
	Phase              models.GamePhase
	PauseCause         string

	nextProposalID int

	Mu sync.Mutex

	// Broker is the observation channel for lifecycle events.
	Broker *Broker
}

// NewNomicGame builds a game in the setup phase with the initial rulebook
// loaded and no players.
func NewNomicGame(cfg models.GameConfig) *NomicGame {
	id, _ := uuid.NewRandom()
	return &NomicGame{
		ID:             id,
		Config:         cfg,
		Rules:          InitialRules(),
		Phase:          models.PhaseSetup,
		nextProposalID: FirstProposalID,
		Broker:         NewBroker(),
	}
}

// AddPlayer registers a new player. Only legal during setup.
func (g *NomicGame) AddPlayer(name string) (*models.Player, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseSetup {
		return nil, fmt.Errorf("add player: %w", ErrWrongPhase)
	}
	p := &models.Player{ID: uuid.New(), Name: name}
	g.Players = append(g.Players, p)
	return p, nil
}

// Start transitions setup → playing. Requires at least two players.
// The first player in join order becomes active.
func (g *NomicGame) Start() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseSetup {
		return fmt.Errorf("start: %w", ErrWrongPhase)
	}
	if len(g.Players) < 2 {
		return ErrTooFewPlayers
	}
	g.Phase = models.PhasePlaying
	g.CurrentPlayerIndex = 0
	g.Players[0].IsActive = true

	g.publishLocked(GameEvent{Type: EventGameStart})
	return nil
}

// ActivePlayer returns the player whose turn it currently is.
func (g *NomicGame) ActivePlayer() *models.Player {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if len(g.Players) == 0 {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// CreateProposal assigns the next strictly increasing proposal id and
// records the proposal as pending. Only legal while playing.
func (g *NomicGame) CreateProposal(proposerID uuid.UUID, typ models.ProposalType, ruleNumber int, ruleText string) (*models.Proposal, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhasePlaying {
		return nil, fmt.Errorf("create proposal: %w", ErrWrongPhase)
	}
	if g.playerByIDLocked(proposerID) == nil {
		return nil, ErrUnknownPlayer
	}

	p := &models.Proposal{
		ID:         g.nextProposalID,
		ProposerID: proposerID,
		Type:       typ,
		RuleNumber: ruleNumber,
		RuleText:   ruleText,
		Status:     models.ProposalPending,
		Timestamp:  time.Now(),
	}
	g.nextProposalID++
	g.Proposals = append(g.Proposals, p)

	g.publishLocked(GameEvent{
		Type:     EventProposalSubmit,
		PlayerID: proposerID,
		Proposal: proposalCopy(p),
	})
	return p, nil
}

// ResolveProposal tallies the votes and settles the proposal. A proposal
// passes iff FOR votes strictly exceed AGAINST votes; abstentions are
// excluded from the comparison. On a tally pass the rule engine validates
// the mutation first: if validation fails the proposal is marked failed
// regardless of the tally, with no scoring and no rule change. On a
// validated pass the mutation is applied and scores adjusted: proposer
// +ProposerPoints, each FOR voter +ForVoterPoints, each AGAINST voter
// -|AgainstVoterPenalty|, abstainers unaffected.
func (g *NomicGame) ResolveProposal(proposalID int, votes []models.Vote) (*Resolution, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhasePlaying {
		return nil, fmt.Errorf("resolve proposal: %w", ErrWrongPhase)
	}
	p := g.proposalByIDLocked(proposalID)
	if p == nil {
		return nil, ErrNoSuchProposal
	}
	if p.Status != models.ProposalPending {
		return nil, ErrNotPending
	}

	p.Votes = dedupeVotes(votes)
	forVotes, againstVotes, _ := p.Tally()

	res := &Resolution{Proposal: p, ScoreDeltas: map[uuid.UUID]int{}}

	if forVotes > againstVotes {
		mutation := rules.Mutation{
			Type:        p.Type,
			RuleNumber:  p.RuleNumber,
			Text:        p.RuleText,
			MakeMutable: transmuteTarget(g.Rules, p),
		}
		applied, err := rules.Apply(g.Rules, []rules.Mutation{mutation})
		if err != nil {
			// Vote passed but the mutation is inconsistent: the proposal
			// fails, nothing is scored, no rule changes.
			p.Status = models.ProposalFailed
			res.ValidationErr = err
			log.WithFields(log.Fields{
				"game":     g.ID,
				"proposal": p.ID,
				"error":    err,
			}).Info("proposal passed vote but failed validation")
		} else {
			g.Rules = applied
			p.Status = models.ProposalPassed
			res.Passed = true
			g.applyScoresLocked(p, res.ScoreDeltas)
		}
	} else {
		p.Status = models.ProposalFailed
	}

	g.publishLocked(GameEvent{
		Type:        EventProposalResolved,
		PlayerID:    p.ProposerID,
		Proposal:    proposalCopy(p),
		ScoreDeltas: res.ScoreDeltas,
		Payload:     resolutionPayload(res),
	})

	// Victory is checked after every resolution.
	if winner := g.checkVictoryLocked(); winner != nil {
		res.Winner = winner
	}
	return res, nil
}

// NextTurn deactivates the current player, increments the turn counter,
// and activates players[turn % len(players)]. Only legal while playing.
func (g *NomicGame) NextTurn() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhasePlaying {
		return fmt.Errorf("next turn: %w", ErrWrongPhase)
	}
	g.Players[g.CurrentPlayerIndex].IsActive = false
	g.Turn++
	g.CurrentPlayerIndex = g.Turn % len(g.Players)
	g.Players[g.CurrentPlayerIndex].IsActive = true

	g.publishLocked(GameEvent{
		Type:     EventTurnComplete,
		PlayerID: g.Players[g.CurrentPlayerIndex].ID,
	})
	return nil
}

// CheckVictoryCondition reports the winning player, if any, transitioning
// the game to completed when a winner exists.
func (g *NomicGame) CheckVictoryCondition() *models.Player {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.checkVictoryLocked()
}

// Pause transitions playing → paused, recording the cause. Committed
// rules, scores and proposals are untouched; nothing rolls back.
func (g *NomicGame) Pause(cause string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhasePlaying {
		return fmt.Errorf("pause: %w", ErrWrongPhase)
	}
	g.Phase = models.PhasePaused
	g.PauseCause = cause

	g.publishLocked(GameEvent{
		Type:    EventGamePaused,
		Payload: map[string]interface{}{"cause": cause},
	})
	return nil
}

// Resume clears the pause cause and transitions paused → playing. The
// turn counter is untouched; play continues from the current turn.
func (g *NomicGame) Resume() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhasePaused {
		return fmt.Errorf("resume: %w", ErrWrongPhase)
	}
	g.Phase = models.PhasePlaying
	g.PauseCause = ""

	g.publishLocked(GameEvent{Type: EventGameResumed})
	return nil
}

// Snapshot returns a deep, serializable copy of the current game state.
func (g *NomicGame) Snapshot() models.GameSnapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotLocked()
}

// ReportError publishes an error event on the observation channel. Used
// by the orchestrator to surface agent failures.
func (g *NomicGame) ReportError(playerID uuid.UUID, phase string, cause error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.publishLocked(GameEvent{
		Type:     EventError,
		PlayerID: playerID,
		Payload: map[string]interface{}{
			"phase": phase,
			"cause": cause.Error(),
		},
	})
}

// --- locked helpers ---

func (g *NomicGame) playerByIDLocked(id uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *NomicGame) proposalByIDLocked(id int) *models.Proposal {
	for _, p := range g.Proposals {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// applyScoresLocked applies the configured point deltas for a validated
// pass and records them in deltas.
func (g *NomicGame) applyScoresLocked(p *models.Proposal, deltas map[uuid.UUID]int) {
	if proposer := g.playerByIDLocked(p.ProposerID); proposer != nil {
		proposer.Points += g.Config.ProposerPoints
		deltas[proposer.ID] += g.Config.ProposerPoints
	}
	penalty := g.Config.AgainstVoterPenalty
	if penalty < 0 {
		penalty = -penalty
	}
	for _, v := range p.Votes {
		voter := g.playerByIDLocked(v.VoterID)
		if voter == nil {
			continue
		}
		switch v.Choice {
		case models.VoteFor:
			voter.Points += g.Config.ForVoterPoints
			deltas[voter.ID] += g.Config.ForVoterPoints
		case models.VoteAgainst:
			voter.Points -= penalty
			deltas[voter.ID] -= penalty
		}
	}
}

func (g *NomicGame) checkVictoryLocked() *models.Player {
	if g.Phase != models.PhasePlaying && g.Phase != models.PhaseCompleted {
		return nil
	}
	for _, p := range g.Players {
		if p.Points >= g.Config.VictoryTarget {
			if g.Phase != models.PhaseCompleted {
				g.Phase = models.PhaseCompleted
				g.publishLocked(GameEvent{
					Type:     EventVictory,
					PlayerID: p.ID,
					Payload: map[string]interface{}{
						"winner": p.Name,
						"points": p.Points,
					},
				})
			}
			return p
		}
	}
	return nil
}

func (g *NomicGame) snapshotLocked() models.GameSnapshot {
	snap := models.GameSnapshot{
		GameID:  g.ID,
		Turn:    g.Turn,
		Phase:   g.Phase,
		Config:  g.Config,
		TakenAt: time.Now(),
	}
	if len(g.Players) > 0 {
		snap.ActivePlayerID = g.Players[g.CurrentPlayerIndex].ID
	}
	snap.Rules = make([]models.Rule, len(g.Rules))
	copy(snap.Rules, g.Rules)
	snap.Players = make([]models.Player, len(g.Players))
	for i, p := range g.Players {
		snap.Players[i] = *p
	}
	snap.Proposals = make([]models.Proposal, len(g.Proposals))
	for i, p := range g.Proposals {
		cp := *p
		cp.Votes = append([]models.Vote(nil), p.Votes...)
		snap.Proposals[i] = cp
	}
	return snap
}

// publishLocked stamps common fields and fans the event out. The broker
// never blocks, so holding the game mutex here is safe.
func (g *NomicGame) publishLocked(ev GameEvent) {
	ev.GameID = g.ID
	ev.Turn = g.Turn
	ev.Phase = g.Phase
	ev.Timestamp = time.Now()
	g.Broker.Publish(ev)
}

// --- free helpers ---

// dedupeVotes keeps the first vote per voter, preserving order.
func dedupeVotes(votes []models.Vote) []models.Vote {
	seen := make(map[uuid.UUID]bool, len(votes))
	out := make([]models.Vote, 0, len(votes))
	for _, v := range votes {
		if seen[v.VoterID] {
			continue
		}
		seen[v.VoterID] = true
		out = append(out, v)
	}
	return out
}

// transmuteTarget derives the requested mutability for a transmutation.
// The proposal text names the desired class ("mutable"/"immutable"); a
// proposal without an explicit direction flips the current flag.
// Non-transmute proposals ignore the result.
func transmuteTarget(ruleSet []models.Rule, p *models.Proposal) bool {
	if p.Type != models.ProposalTransmute {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(p.RuleText)) {
	case "mutable":
		return true
	case "immutable":
		return false
	}
	for _, r := range ruleSet {
		if r.ID == p.RuleNumber {
			return !r.Mutable
		}
	}
	return false
}

func proposalCopy(p *models.Proposal) *models.Proposal {
	cp := *p
	cp.Votes = append([]models.Vote(nil), p.Votes...)
	return &cp
}

func resolutionPayload(res *Resolution) map[string]interface{} {
	payload := map[string]interface{}{
		"outcome": string(res.Proposal.Status),
	}
	if res.ValidationErr != nil {
		payload["validationError"] = res.ValidationErr.Error()
	}
	return payload
}
