// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/nomic/internal/agent"
	"github.com/jason-s-yu/nomic/internal/game"
	"github.com/jason-s-yu/nomic/internal/models"
)

// mockAgent is a programmable backend for driving orchestrator tests.
type mockAgent struct {
	proposeFn func(ctx context.Context, snapshot models.GameSnapshot) (string, error)
	voteFn    func(ctx context.Context, proposalText string, snapshot models.GameSnapshot) (models.VoteChoice, error)
	offline   bool
}

func (m *mockAgent) Propose(ctx context.Context, snapshot models.GameSnapshot) (string, error) {
	if m.proposeFn != nil {
		return m.proposeFn(ctx, snapshot)
	}
	return agent.NewScriptedAgent("mock").Propose(ctx, snapshot)
}

func (m *mockAgent) Vote(ctx context.Context, proposalText string, snapshot models.GameSnapshot) (models.VoteChoice, error) {
	if m.voteFn != nil {
		return m.voteFn(ctx, proposalText, snapshot)
	}
	return models.VoteFor, nil
}

func (m *mockAgent) IsAvailable() bool { return !m.offline }

// mockPersister counts snapshot saves.
type mockPersister struct {
	mu    sync.Mutex
	saves []models.GameSnapshot
}

func (mp *mockPersister) SaveSnapshot(_ context.Context, snapshot models.GameSnapshot) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.saves = append(mp.saves, snapshot)
	return nil
}

func (mp *mockPersister) count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.saves)
}

func testConfig() models.GameConfig {
	cfg := models.DefaultGameConfig()
	cfg.TurnDelay = 0
	cfg.AgentTimeout = 200 * time.Millisecond
	cfg.AgentConcurrency = 2
	return cfg
}

// setupOrchestrator builds a started game with one mock agent per player.
func setupOrchestrator(t *testing.T, cfg models.GameConfig, agents []*mockAgent) (*Orchestrator, *game.NomicGame, []*models.Player) {
	t.Helper()
	g := game.NewNomicGame(cfg)
	players := make([]*models.Player, len(agents))
	for i := range agents {
		p, err := g.AddPlayer(string(rune('a' + i)))
		require.NoError(t, err)
		players[i] = p
	}
	require.NoError(t, g.Start())

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	o := New(g, logger)
	for i, a := range agents {
		o.RegisterAgent(players[i].ID, a)
	}
	return o, g, players
}

func waitDone(t *testing.T, o *Orchestrator) {
	t.Helper()
	select {
	case <-o.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not settle in time")
	}
}

func drainEvents(events <-chan game.GameEvent) []game.GameEvent {
	var out []game.GameEvent
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestRunToVictory(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryTarget = 25 // proposer earns 10/pass, so a few turns suffice

	o, g, _ := setupOrchestrator(t, cfg, []*mockAgent{{}, {}, {}})
	mp := &mockPersister{}
	o.SetPersister(mp)

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)

	assert.Equal(t, StateStopped, o.State())
	assert.Equal(t, models.PhaseCompleted, g.Phase)
	require.NotNil(t, g.CheckVictoryCondition())
	assert.GreaterOrEqual(t, g.CheckVictoryCondition().Points, cfg.VictoryTarget)

	// One save per completed turn plus the final one at victory.
	assert.Greater(t, mp.count(), 0)

	// Every resolved proposal passed: all mocks vote FOR.
	snap := g.Snapshot()
	for _, p := range snap.Proposals {
		assert.Equal(t, models.ProposalPassed, p.Status)
	}
}

func TestProposerTransportErrorPausesGame(t *testing.T) {
	cfg := testConfig()
	transportErr := errors.New("connection reset")
	agents := []*mockAgent{
		{proposeFn: func(context.Context, models.GameSnapshot) (string, error) {
			return "", transportErr
		}},
		{},
	}
	o, g, players := setupOrchestrator(t, cfg, agents)
	events, cancel := g.Broker.Subscribe(64)
	defer cancel()

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)

	assert.Equal(t, StatePaused, o.State())
	assert.Equal(t, models.PhasePaused, g.Phase)
	assert.Contains(t, g.PauseCause, "connection reset")

	// The failed turn is not consumed and nothing was committed.
	assert.Zero(t, g.Turn)
	assert.Empty(t, g.Snapshot().Proposals)

	var sawError, sawPaused bool
	for _, ev := range drainEvents(events) {
		switch ev.Type {
		case game.EventError:
			sawError = true
			assert.Equal(t, players[0].ID, ev.PlayerID)
		case game.EventGamePaused:
			sawPaused = true
		}
	}
	assert.True(t, sawError, "expected an error event")
	assert.True(t, sawPaused, "expected a paused event")
}

func TestProposerTimeoutPausesGame(t *testing.T) {
	cfg := testConfig()
	cfg.AgentTimeout = 50 * time.Millisecond
	agents := []*mockAgent{
		{proposeFn: func(ctx context.Context, _ models.GameSnapshot) (string, error) {
			<-ctx.Done() // never answers within the budget
			return "", ctx.Err()
		}},
		{},
	}
	o, g, _ := setupOrchestrator(t, cfg, agents)

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)

	assert.Equal(t, StatePaused, o.State())
	assert.Equal(t, models.PhasePaused, g.Phase)
	assert.Contains(t, g.PauseCause, ErrAgentTimeout.Error())
	assert.Zero(t, g.Turn)
}

func TestVoteTimeoutDegradesToAbstain(t *testing.T) {
	cfg := testConfig()
	cfg.AgentTimeout = 50 * time.Millisecond
	cfg.VictoryTarget = cfg.ProposerPoints // first pass wins, one turn total

	agents := []*mockAgent{
		{}, // proposer
		{}, // votes FOR
		{voteFn: func(ctx context.Context, _ string, _ models.GameSnapshot) (models.VoteChoice, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}},
	}
	o, g, players := setupOrchestrator(t, cfg, agents)
	events, cancel := g.Broker.Subscribe(64)
	defer cancel()

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)

	snap := g.Snapshot()
	require.Len(t, snap.Proposals, 1)
	p := snap.Proposals[0]
	assert.Equal(t, models.ProposalPassed, p.Status)

	// One FOR, one forced abstention; 1 > 0 passes.
	forVotes, againstVotes, abstainVotes := p.Tally()
	assert.Equal(t, 1, forVotes)
	assert.Zero(t, againstVotes)
	assert.Equal(t, 1, abstainVotes)

	// The stalled voter's failure was surfaced, not swallowed.
	var reported bool
	for _, ev := range drainEvents(events) {
		if ev.Type == game.EventError && ev.PlayerID == players[2].ID {
			reported = true
		}
	}
	assert.True(t, reported, "expected an error event for the stalled voter")
}

func TestMalformedProposalSkipsTurn(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryTarget = cfg.ProposerPoints

	var calls int
	var mu sync.Mutex
	agents := []*mockAgent{
		{proposeFn: func(ctx context.Context, snapshot models.GameSnapshot) (string, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				return "I humbly suggest we change everything", nil
			}
			return agent.NewScriptedAgent("recovered").Propose(ctx, snapshot)
		}},
		{},
	}
	o, g, _ := setupOrchestrator(t, cfg, agents)

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)

	// The garbled turn produced no proposal; play continued and the
	// second player's turn then player one's retry ran to victory.
	snap := g.Snapshot()
	assert.Equal(t, models.PhaseCompleted, snap.Phase)
	for _, p := range snap.Proposals {
		assert.NotEqual(t, models.ProposalPending, p.Status)
	}
	assert.Greater(t, snap.Turn, 0)
}

func TestResumeContinuesFromCurrentTurn(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryTarget = cfg.ProposerPoints

	var failed bool
	var mu sync.Mutex
	agents := []*mockAgent{
		{proposeFn: func(ctx context.Context, snapshot models.GameSnapshot) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if !failed {
				failed = true
				return "", errors.New("transient outage")
			}
			return agent.NewScriptedAgent("back-online").Propose(ctx, snapshot)
		}},
		{},
	}
	o, g, _ := setupOrchestrator(t, cfg, agents)

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)
	require.Equal(t, StatePaused, o.State())
	turnAtPause := g.Turn

	// A second Start is refused; Resume is the only way forward.
	assert.ErrorIs(t, o.Start(context.Background()), ErrNotIdle)

	require.NoError(t, o.Resume(context.Background()))
	waitDone(t, o)

	assert.Equal(t, StateStopped, o.State())
	assert.Equal(t, models.PhaseCompleted, g.Phase)
	// Victory fell on the very turn the pause interrupted: the failed
	// turn was replayed, not skipped.
	snap := g.Snapshot()
	require.NotEmpty(t, snap.Proposals)
	assert.Equal(t, turnAtPause, snap.Turn)
}

func TestOperatorPauseDuringTurnDelayThenResume(t *testing.T) {
	cfg := testConfig()
	cfg.TurnDelay = 300 * time.Millisecond
	cfg.VictoryTarget = 3 * cfg.ProposerPoints

	o, g, _ := setupOrchestrator(t, cfg, []*mockAgent{{}, {}})
	require.NoError(t, o.Start(context.Background()))

	// Pause through the game directly, the way the control API does,
	// while the loop is waiting out the turn delay.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, g.Pause("operator requested pause"))
	waitDone(t, o)

	// The orchestrator must observe the external pause, not report
	// itself still running.
	assert.Equal(t, StatePaused, o.State())
	assert.Equal(t, models.PhasePaused, g.Phase)

	require.NoError(t, o.Resume(context.Background()))
	waitDone(t, o)

	assert.Equal(t, StateStopped, o.State())
	assert.Equal(t, models.PhaseCompleted, g.Phase)
	require.NotNil(t, g.CheckVictoryCondition())
}

func TestResumeRequiresPause(t *testing.T) {
	o, _, _ := setupOrchestrator(t, testConfig(), []*mockAgent{{}, {}})
	assert.ErrorIs(t, o.Resume(context.Background()), ErrNotPaused)
}

func TestStopHaltsLoop(t *testing.T) {
	cfg := testConfig()
	cfg.TurnDelay = 20 * time.Millisecond
	o, _, _ := setupOrchestrator(t, cfg, []*mockAgent{{}, {}})

	require.NoError(t, o.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	o.Stop()
	waitDone(t, o)
	assert.Equal(t, StateStopped, o.State())
}

func TestOfflineProposerPausesGame(t *testing.T) {
	agents := []*mockAgent{{offline: true}, {}}
	o, g, _ := setupOrchestrator(t, testConfig(), agents)

	require.NoError(t, o.Start(context.Background()))
	waitDone(t, o)

	assert.Equal(t, StatePaused, o.State())
	assert.Equal(t, models.PhasePaused, g.Phase)
}
