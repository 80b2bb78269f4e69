// internal/game/game_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/nomic/internal/models"
	"github.com/jason-s-yu/nomic/internal/rules"
)

// setupTestGame builds a started game with numPlayers players.
func setupTestGame(t *testing.T, numPlayers int) (*NomicGame, []*models.Player) {
	t.Helper()
	g := NewNomicGame(models.DefaultGameConfig())
	players := make([]*models.Player, numPlayers)
	for i := 0; i < numPlayers; i++ {
		p, err := g.AddPlayer(string(rune('a' + i)))
		require.NoError(t, err)
		players[i] = p
	}
	require.NoError(t, g.Start())
	return g, players
}

func voteSlice(choices map[uuid.UUID]models.VoteChoice) []models.Vote {
	votes := make([]models.Vote, 0, len(choices))
	for id, c := range choices {
		votes = append(votes, models.Vote{VoterID: id, Choice: c})
	}
	return votes
}

func TestLifecyclePhaseGuards(t *testing.T) {
	g := NewNomicGame(models.DefaultGameConfig())
	assert.Equal(t, models.PhaseSetup, g.Phase)

	// Too few players to start.
	_, err := g.AddPlayer("solo")
	require.NoError(t, err)
	assert.ErrorIs(t, g.Start(), ErrTooFewPlayers)

	_, err = g.AddPlayer("pair")
	require.NoError(t, err)
	require.NoError(t, g.Start())
	assert.Equal(t, models.PhasePlaying, g.Phase)

	// No joining or restarting mid-game.
	_, err = g.AddPlayer("late")
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, g.Start(), ErrWrongPhase)
}

func TestInitialRulebook(t *testing.T) {
	g, _ := setupTestGame(t, 2)
	snap := g.Snapshot()

	require.Len(t, snap.Rules, 29)
	for _, r := range snap.Rules {
		if r.ID >= 101 && r.ID <= 116 {
			assert.False(t, r.Mutable, "rule %d must start immutable", r.ID)
		} else {
			assert.True(t, r.Mutable, "rule %d must start mutable", r.ID)
		}
	}
	// Precedence order in the snapshot.
	for i := 1; i < len(snap.Rules); i++ {
		assert.Less(t, snap.Rules[i-1].ID, snap.Rules[i].ID)
	}
}

func TestProposalIDsStrictlyIncrease(t *testing.T) {
	g, players := setupTestGame(t, 2)

	p1, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 301, "first")
	require.NoError(t, err)
	p2, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 302, "second")
	require.NoError(t, err)

	assert.Equal(t, FirstProposalID, p1.ID)
	assert.Equal(t, FirstProposalID+1, p2.ID)
}

func TestResolvePassedScoring(t *testing.T) {
	g, players := setupTestGame(t, 7)
	proposer := players[0]

	p, err := g.CreateProposal(proposer.ID, models.ProposalAdd, 301, "a fresh rule")
	require.NoError(t, err)

	// 3 FOR, 2 AGAINST, 1 ABSTAIN; 3 > 2 passes.
	res, err := g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
		players[2].ID: models.VoteFor,
		players[3].ID: models.VoteFor,
		players[4].ID: models.VoteAgainst,
		players[5].ID: models.VoteAgainst,
		players[6].ID: models.VoteAbstain,
	}))
	require.NoError(t, err)
	require.True(t, res.Passed)
	assert.Equal(t, models.ProposalPassed, p.Status)

	cfg := g.Config
	assert.Equal(t, cfg.ProposerPoints, res.ScoreDeltas[proposer.ID])
	assert.Equal(t, cfg.ForVoterPoints, res.ScoreDeltas[players[1].ID])
	assert.Equal(t, -cfg.AgainstVoterPenalty, res.ScoreDeltas[players[4].ID])
	assert.NotContains(t, res.ScoreDeltas, players[6].ID)

	assert.Equal(t, cfg.ProposerPoints, proposer.Points)
	assert.Equal(t, cfg.ForVoterPoints, players[2].Points)
	assert.Equal(t, -cfg.AgainstVoterPenalty, players[5].Points)
	assert.Zero(t, players[6].Points)

	// The rule landed in the set, mutable.
	snap := g.Snapshot()
	r, ok := snap.RuleByID(301)
	require.True(t, ok)
	assert.True(t, r.Mutable)
	assert.Equal(t, "a fresh rule", r.Text)
}

func TestResolveTieFails(t *testing.T) {
	g, players := setupTestGame(t, 3)

	p, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 301, "needs a majority")
	require.NoError(t, err)

	// 1 FOR, 1 AGAINST: FOR is not strictly greater, so the proposal
	// fails and nobody scores.
	res, err := g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
		players[2].ID: models.VoteAgainst,
	}))
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, models.ProposalFailed, p.Status)
	assert.Empty(t, res.ScoreDeltas)
	for _, pl := range players {
		assert.Zero(t, pl.Points)
	}

	_, ok := g.Snapshot().RuleByID(301)
	assert.False(t, ok)
}

func TestAbstentionsExcludedFromTally(t *testing.T) {
	g, players := setupTestGame(t, 4)

	p, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 301, "abstainers do not count")
	require.NoError(t, err)

	// 1 FOR, 0 AGAINST, 2 ABSTAIN passes.
	res, err := g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
		players[2].ID: models.VoteAbstain,
		players[3].ID: models.VoteAbstain,
	}))
	require.NoError(t, err)
	assert.True(t, res.Passed)

	// Abstainers are not scored.
	assert.Zero(t, players[2].Points)
	assert.Zero(t, players[3].Points)
}

func TestResolveValidationFailure(t *testing.T) {
	g, players := setupTestGame(t, 3)

	// Amending an immutable rule passes the vote but fails validation.
	p, err := g.CreateProposal(players[0].ID, models.ProposalAmend, 101, "players may cheat")
	require.NoError(t, err)

	before := g.Snapshot()
	res, err := g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
		players[2].ID: models.VoteFor,
	}))
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, models.ProposalFailed, p.Status)
	require.Error(t, res.ValidationErr)
	var verr *rules.ValidationError
	require.ErrorAs(t, res.ValidationErr, &verr)
	assert.Equal(t, rules.CheckImmutability, verr.Check)

	// No scoring, no rule change.
	assert.Empty(t, res.ScoreDeltas)
	for _, pl := range players {
		assert.Zero(t, pl.Points)
	}
	diff := models.Diff(before, g.Snapshot())
	assert.Empty(t, diff.RulesChanged)
	assert.Empty(t, diff.ScoreChanges)
}

func TestResolveRejectsDoubleResolution(t *testing.T) {
	g, players := setupTestGame(t, 2)

	p, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 301, "once only")
	require.NoError(t, err)
	_, err = g.ResolveProposal(p.ID, nil)
	require.NoError(t, err)

	_, err = g.ResolveProposal(p.ID, nil)
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = g.ResolveProposal(9999, nil)
	assert.ErrorIs(t, err, ErrNoSuchProposal)
}

func TestDedupeVotesKeepsFirst(t *testing.T) {
	g, players := setupTestGame(t, 2)

	p, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 301, "one vote per player")
	require.NoError(t, err)

	res, err := g.ResolveProposal(p.ID, []models.Vote{
		{VoterID: players[1].ID, Choice: models.VoteAgainst},
		{VoterID: players[1].ID, Choice: models.VoteFor},
	})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	require.Len(t, p.Votes, 1)
	assert.Equal(t, models.VoteAgainst, p.Votes[0].Choice)
}

func TestTurnRotation(t *testing.T) {
	g, players := setupTestGame(t, 3)
	assert.Equal(t, players[0].ID, g.ActivePlayer().ID)
	assert.True(t, players[0].IsActive)

	require.NoError(t, g.NextTurn())
	assert.Equal(t, 1, g.Turn)
	assert.Equal(t, players[1].ID, g.ActivePlayer().ID)
	assert.False(t, players[0].IsActive)

	require.NoError(t, g.NextTurn())
	require.NoError(t, g.NextTurn())
	// Wrapped around.
	assert.Equal(t, players[0].ID, g.ActivePlayer().ID)
}

func TestVictoryCompletesGame(t *testing.T) {
	g, players := setupTestGame(t, 2)
	players[1].Points = g.Config.VictoryTarget - g.Config.ProposerPoints

	require.NoError(t, g.NextTurn())
	p, err := g.CreateProposal(players[1].ID, models.ProposalAdd, 301, "the winning move")
	require.NoError(t, err)

	res, err := g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[0].ID: models.VoteFor,
	}))
	require.NoError(t, err)
	require.NotNil(t, res.Winner)
	assert.Equal(t, players[1].ID, res.Winner.ID)
	assert.Equal(t, models.PhaseCompleted, g.Phase)

	// A completed game refuses further turns.
	assert.ErrorIs(t, g.NextTurn(), ErrWrongPhase)
}

func TestPauseResumeRetainsState(t *testing.T) {
	g, players := setupTestGame(t, 3)

	p, err := g.CreateProposal(players[0].ID, models.ProposalAdd, 301, "kept across pauses")
	require.NoError(t, err)
	_, err = g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
	}))
	require.NoError(t, err)
	require.NoError(t, g.NextTurn())

	before := g.Snapshot()
	require.NoError(t, g.Pause("agent transport failure"))
	assert.Equal(t, models.PhasePaused, g.Phase)
	assert.Equal(t, "agent transport failure", g.PauseCause)

	// Paused games accept no mutations.
	_, err = g.CreateProposal(players[1].ID, models.ProposalAdd, 302, "nope")
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, g.NextTurn(), ErrWrongPhase)

	require.NoError(t, g.Resume())
	assert.Empty(t, g.PauseCause)

	after := g.Snapshot()
	diff := models.Diff(before, after)
	assert.Zero(t, diff.TurnDelta)
	assert.Empty(t, diff.RulesAdded)
	assert.Empty(t, diff.ScoreChanges)
	assert.Equal(t, before.ActivePlayerID, after.ActivePlayerID)

	// Double resume is refused.
	assert.ErrorIs(t, g.Resume(), ErrWrongPhase)
}

func TestTransmuteDirectionFromText(t *testing.T) {
	g, players := setupTestGame(t, 2)

	// Explicit direction in the proposal text.
	p, err := g.CreateProposal(players[0].ID, models.ProposalTransmute, 101, "mutable")
	require.NoError(t, err)
	res, err := g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
	}))
	require.NoError(t, err)
	require.True(t, res.Passed)
	r, _ := g.Snapshot().RuleByID(101)
	assert.True(t, r.Mutable)

	// Omitted direction flips the current flag back.
	p, err = g.CreateProposal(players[0].ID, models.ProposalTransmute, 101, "")
	require.NoError(t, err)
	res, err = g.ResolveProposal(p.ID, voteSlice(map[uuid.UUID]models.VoteChoice{
		players[1].ID: models.VoteFor,
	}))
	require.NoError(t, err)
	require.True(t, res.Passed)
	r, _ = g.Snapshot().RuleByID(101)
	assert.False(t, r.Mutable)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	g, players := setupTestGame(t, 2)
	snap := g.Snapshot()

	snap.Rules[0].Text = "tampered"
	snap.Players[0].Points = 9999

	fresh := g.Snapshot()
	assert.NotEqual(t, "tampered", fresh.Rules[0].Text)
	assert.Zero(t, fresh.Players[0].Points)
	assert.Zero(t, players[0].Points)
}

func TestBrokerReceivesLifecycleEvents(t *testing.T) {
	g := NewNomicGame(models.DefaultGameConfig())
	events, cancel := g.Broker.Subscribe(16)
	defer cancel()

	_, err := g.AddPlayer("a")
	require.NoError(t, err)
	_, err = g.AddPlayer("b")
	require.NoError(t, err)
	require.NoError(t, g.Start())

	ev := <-events
	assert.Equal(t, EventGameStart, ev.Type)
	assert.Equal(t, g.ID, ev.GameID)
	assert.Equal(t, models.PhasePlaying, ev.Phase)
}
