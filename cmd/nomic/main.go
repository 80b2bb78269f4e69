// cmd/nomic/main.go runs a complete local game with scripted agents,
// streaming lifecycle events and per-turn state diffs to the console.
// Useful for demos and for eyeballing engine behavior without any
// network dependency.
package main

import (
	"context"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/agent"
	"github.com/jason-s-yu/nomic/internal/config"
	"github.com/jason-s-yu/nomic/internal/game"
	"github.com/jason-s-yu/nomic/internal/models"
	"github.com/jason-s-yu/nomic/internal/orchestrator"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()
	if cfg.TurnDelay > time.Second {
		cfg.TurnDelay = 250 * time.Millisecond // keep local runs brisk
	}

	g := game.NewNomicGame(cfg)
	orch := orchestrator.New(g, logger)

	for _, name := range []string{"alice", "bob", "carol"} {
		p, err := g.AddPlayer(name)
		if err != nil {
			logger.Fatalf("add player: %v", err)
		}
		orch.RegisterAgent(p.ID, agent.NewScriptedAgent(name))
	}

	events, cancel := g.Broker.Subscribe(256)
	defer cancel()

	if err := g.Start(); err != nil {
		logger.Fatalf("start game: %v", err)
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		logger.Fatalf("start orchestrator: %v", err)
	}

	prev := g.Snapshot()
	done := orch.Done()
	for {
		select {
		case ev := <-events:
			logger.WithFields(logrus.Fields{
				"turn":   ev.Turn,
				"player": ev.PlayerID,
			}).Info(string(ev.Type))

			if ev.Type == game.EventTurnComplete || ev.Type == game.EventVictory {
				curr := g.Snapshot()
				printDiff(logger, curr, models.Diff(prev, curr))
				prev = curr
			}
			if ev.Type == game.EventVictory {
				logger.Infof("game over: %v", ev.Payload)
				return
			}
		case <-done:
			// Loop ended without a victory event (pause or stop).
			logger.Warnf("orchestrator halted in state %s (phase %s)", orch.State(), g.Snapshot().Phase)
			return
		}
	}
}

// printDiff logs the structural changes between two adjacent snapshots.
func printDiff(logger *logrus.Logger, curr models.GameSnapshot, d models.SnapshotDiff) {
	if d.Empty() {
		return
	}
	for _, r := range d.RulesAdded {
		logger.Infof("  + rule %d: %s", r.ID, r.Text)
	}
	for _, r := range d.RulesRemoved {
		logger.Infof("  - rule %d", r.ID)
	}
	for _, c := range d.RulesChanged {
		logger.Infof("  ~ rule %d: %s", c.ID, c.After.Text)
	}
	for _, s := range d.ScoreChanges {
		name := s.PlayerID.String()
		if p, ok := curr.PlayerByID(s.PlayerID); ok {
			name = p.Name
		}
		logger.Infof("  score %s: %+d (now %d)", name, s.Delta, s.After)
	}
}
