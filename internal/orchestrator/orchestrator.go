// Package orchestrator drives a Nomic game through the
// propose → vote → resolve → advance cycle. It is the single writer of
// game state: agent calls are the only points of concurrency, and no two
// turns ever overlap.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/agent"
	"github.com/jason-s-yu/nomic/internal/game"
	"github.com/jason-s-yu/nomic/internal/models"
)

// State is the orchestrator's own lifecycle, independent of but kept in
// sync with the game phase.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// ErrAgentTimeout marks an agent call that did not settle within the
// configured budget. The in-flight call is abandoned, not cancelled at
// the transport level; its late result is discarded.
var ErrAgentTimeout = errors.New("agent call timed out")

var (
	ErrNotIdle   = errors.New("orchestrator has already been started")
	ErrNotPaused = errors.New("orchestrator is not paused")
	ErrNoAgent   = errors.New("no agent registered for player")
)

// Persister is the optional persistence collaborator. It receives a
// snapshot after each turn and at victory; the orchestrator never
// depends on it succeeding.
type Persister interface {
	SaveSnapshot(ctx context.Context, snapshot models.GameSnapshot) error
}

// Orchestrator sequences the phases of a single game and translates
// agent failures into game pauses without losing committed state.
type Orchestrator struct {
	Game *game.NomicGame

	logger  *logrus.Logger
	agents  map[uuid.UUID]agent.Agent
	persist Persister

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an idle orchestrator for the given game.
func New(g *game.NomicGame, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		Game:   g,
		logger: logger,
		agents: make(map[uuid.UUID]agent.Agent),
		state:  StateIdle,
	}
}

// RegisterAgent binds a backend to a player. The binding is fixed for
// the life of the game; the loop never inspects which backend it got.
func (o *Orchestrator) RegisterAgent(playerID uuid.UUID, a agent.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[playerID] = a
}

// SetPersister attaches the optional persistence collaborator.
func (o *Orchestrator) SetPersister(p Persister) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.persist = p
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Done returns a channel closed when the current run loop exits (by
// stop, pause or victory). Nil before the first Start.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.doneCh
}

// Start transitions idle → running and launches the turn loop. The game
// must already be in the playing phase.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return ErrNotIdle
	}
	o.state = StateRunning
	o.launchLoopLocked(ctx)
	return nil
}

// Resume clears a pause: game paused → playing, orchestrator paused →
// running, and the loop restarts from the current turn. The failed turn
// is not replayed automatically.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePaused {
		return ErrNotPaused
	}
	if err := o.Game.Resume(); err != nil {
		return err
	}
	o.state = StateRunning
	o.launchLoopLocked(ctx)
	return nil
}

// Stop signals the loop to halt once the in-flight phase settles. It
// does not forcibly abort an in-flight agent call.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning || o.state == StatePaused {
		o.state = StateStopped
	}
	if o.stopCh != nil {
		select {
		case <-o.stopCh:
		default:
			close(o.stopCh)
		}
	}
}

func (o *Orchestrator) launchLoopLocked(ctx context.Context) {
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	go o.runLoop(ctx, o.stopCh, o.doneCh)
}

// runLoop executes turns serially until victory, pause or stop.
func (o *Orchestrator) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			o.Stop()
			return
		default:
		}

		switch o.runTurn(ctx) {
		case turnContinue:
			if !o.sleepBetweenTurns(ctx, stopCh) {
				return
			}
			if err := o.Game.NextTurn(); err != nil {
				// The game left the playing phase under us (external
				// pause or completion); stop driving it.
				o.logger.WithError(err).Warn("orchestrator: next turn refused, halting loop")
				o.syncStateToGame()
				return
			}
			o.persistSnapshot(ctx)
		case turnVictory:
			o.mu.Lock()
			o.state = StateStopped
			o.mu.Unlock()
			o.persistSnapshot(ctx)
			return
		case turnPaused:
			o.syncStateToGame()
			return
		}
	}
}

type turnOutcome int

const (
	turnContinue turnOutcome = iota
	turnVictory
	turnPaused
)

// runTurn plays one full turn: proposal, voting, resolution, victory
// check. Within the turn the proposal strictly precedes all votes, and
// resolution waits for every vote or its timeout.
func (o *Orchestrator) runTurn(ctx context.Context) turnOutcome {
	proposer := o.Game.ActivePlayer()
	if proposer == nil {
		o.pause(uuid.Nil, "proposal", errors.New("no active player"))
		return turnPaused
	}

	snapshot := o.Game.Snapshot()
	turnLog := o.logger.WithFields(logrus.Fields{
		"game":     o.Game.ID,
		"turn":     snapshot.Turn,
		"proposer": proposer.Name,
	})

	// Proposal phase. A transport error or a timeout on the proposer's
	// turn pauses the game; malformed markup only voids the attempt.
	backend, ok := o.agentFor(proposer.ID)
	if !ok {
		o.pause(proposer.ID, "proposal", ErrNoAgent)
		return turnPaused
	}
	raw, err := o.callPropose(ctx, backend, snapshot)
	if err != nil {
		o.pause(proposer.ID, "proposal", err)
		return turnPaused
	}

	draft, err := agent.ParseProposal(raw)
	if err != nil {
		turnLog.WithError(err).Info("proposal rejected by markup validation, skipping turn")
		o.Game.ReportError(proposer.ID, "proposal", err)
		return turnContinue
	}

	proposal, err := o.Game.CreateProposal(proposer.ID, draft.Type, draft.RuleNumber, draft.RuleText)
	if err != nil {
		// Phase changed between snapshot and commit; treat like a pause
		// already in effect.
		turnLog.WithError(err).Warn("create proposal refused")
		return turnPaused
	}
	turnLog.WithFields(logrus.Fields{
		"proposal": proposal.ID,
		"type":     proposal.Type,
		"rule":     proposal.RuleNumber,
	}).Info("proposal submitted")

	// Voting phase: bounded fan-out, each call independently time-bounded.
	votes := o.collectVotes(ctx, proposer.ID, raw)

	// Resolution phase.
	res, err := o.Game.ResolveProposal(proposal.ID, votes)
	if err != nil {
		turnLog.WithError(err).Warn("resolution refused")
		return turnPaused
	}
	turnLog.WithFields(logrus.Fields{
		"proposal": proposal.ID,
		"passed":   res.Passed,
	}).Info("proposal resolved")

	if res.Winner != nil {
		turnLog.WithField("winner", res.Winner.Name).Info("victory reached")
		return turnVictory
	}
	return turnContinue
}

// collectVotes invokes every non-proposing player's vote capability with
// bounded concurrency. A vote that errors or times out degrades to
// ABSTAIN for tally purposes; the failure is still reported on the
// observation channel. Missing votes defaulting to ABSTAIN is an engine
// policy, not a rule of the game itself.
func (o *Orchestrator) collectVotes(ctx context.Context, proposerID uuid.UUID, proposalText string) []models.Vote {
	snapshot := o.Game.Snapshot()

	concurrency := snapshot.Config.AgentConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var votes []models.Vote

	for _, p := range snapshot.Players {
		if p.ID == proposerID {
			continue
		}
		voter := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			choice := o.collectOneVote(ctx, voter, proposalText, snapshot)
			mu.Lock()
			votes = append(votes, models.Vote{VoterID: voter.ID, Choice: choice})
			mu.Unlock()
		}()
	}
	wg.Wait()
	return votes
}

func (o *Orchestrator) collectOneVote(ctx context.Context, voter models.Player, proposalText string, snapshot models.GameSnapshot) models.VoteChoice {
	backend, ok := o.agentFor(voter.ID)
	if !ok {
		o.Game.ReportError(voter.ID, "voting", ErrNoAgent)
		return models.VoteAbstain
	}
	choice, err := o.callVote(ctx, backend, proposalText, snapshot)
	if err != nil {
		o.logger.WithFields(logrus.Fields{
			"game":  o.Game.ID,
			"voter": voter.Name,
		}).WithError(err).Info("vote failed, recording abstention")
		o.Game.ReportError(voter.ID, "voting", err)
		return models.VoteAbstain
	}
	return choice
}

// callPropose races the propose call against the configured budget.
// Whichever settles first wins; a losing call is abandoned and its
// result discarded.
func (o *Orchestrator) callPropose(ctx context.Context, backend agent.Agent, snapshot models.GameSnapshot) (string, error) {
	if !backend.IsAvailable() {
		return "", fmt.Errorf("agent unavailable: %w", ErrNoAgent)
	}
	timeout := snapshot.Config.AgentTimeout
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := backend.Propose(cctx, snapshot)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("propose: %w", r.err)
		}
		return r.text, nil
	case <-cctx.Done():
		return "", fmt.Errorf("propose after %v: %w", timeout, ErrAgentTimeout)
	}
}

func (o *Orchestrator) callVote(ctx context.Context, backend agent.Agent, proposalText string, snapshot models.GameSnapshot) (models.VoteChoice, error) {
	if !backend.IsAvailable() {
		return "", fmt.Errorf("agent unavailable: %w", ErrNoAgent)
	}
	timeout := snapshot.Config.AgentTimeout
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		choice models.VoteChoice
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		choice, err := backend.Vote(cctx, proposalText, snapshot)
		ch <- result{choice, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("vote: %w", r.err)
		}
		return r.choice, nil
	case <-cctx.Done():
		return "", fmt.Errorf("vote after %v: %w", timeout, ErrAgentTimeout)
	}
}

// syncStateToGame aligns the orchestrator's lifecycle with the phase
// the game actually landed in when the loop halts. Pauses can originate
// outside the loop (the control API pauses the game directly), so the
// loop observes the game instead of assuming its own transition took
// effect: a completed game stops the orchestrator, anything else leaves
// it resumable.
func (o *Orchestrator) syncStateToGame() {
	o.Game.Mu.Lock()
	phase := o.Game.Phase
	o.Game.Mu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return
	}
	if phase == models.PhaseCompleted {
		o.state = StateStopped
		return
	}
	o.state = StatePaused
}

// pause transitions the game to paused, reports the failure on the
// observation channel, and marks the orchestrator paused. Committed
// rules, scores and proposals are untouched.
func (o *Orchestrator) pause(playerID uuid.UUID, phase string, cause error) {
	o.logger.WithFields(logrus.Fields{
		"game":   o.Game.ID,
		"player": playerID,
		"phase":  phase,
	}).WithError(cause).Warn("pausing game")

	o.Game.ReportError(playerID, phase, cause)
	if err := o.Game.Pause(cause.Error()); err != nil {
		o.logger.WithError(err).Warn("pause refused")
	}

	o.mu.Lock()
	if o.state == StateRunning {
		o.state = StatePaused
	}
	o.mu.Unlock()
}

// sleepBetweenTurns waits out the configured turn delay, returning false
// if the loop was stopped meanwhile. The delay is a throttle, not
// correctness-critical.
func (o *Orchestrator) sleepBetweenTurns(ctx context.Context, stopCh chan struct{}) bool {
	delay := o.Game.Config.TurnDelay
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) persistSnapshot(ctx context.Context) {
	o.mu.Lock()
	p := o.persist
	o.mu.Unlock()
	if p == nil {
		return
	}
	if err := p.SaveSnapshot(ctx, o.Game.Snapshot()); err != nil {
		o.logger.WithError(err).Warn("snapshot persistence failed, continuing")
	}
}

func (o *Orchestrator) agentFor(playerID uuid.UUID) (agent.Agent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.agents[playerID]
	return a, ok
}
