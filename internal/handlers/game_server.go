// internal/handlers/game_server.go
package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/agent"
	"github.com/jason-s-yu/nomic/internal/game"
	"github.com/jason-s-yu/nomic/internal/models"
	"github.com/jason-s-yu/nomic/internal/orchestrator"
)

// GameServer holds the live games, their orchestrators, and the agent
// backend factory selected at startup. It is the HTTP layer's view of
// the engine; nothing here is required for game correctness.
type GameServer struct {
	Mutex     sync.Mutex
	GameStore *game.GameStore

	// NewAgent builds a backend for a named player. Selected once at
	// construction from configuration; every player in a game shares
	// the same backend kind.
	NewAgent func(name string) agent.Agent

	// Persister, when non-nil, receives snapshots after each turn.
	Persister orchestrator.Persister

	// RunCtx bounds every orchestrator loop this server launches.
	RunCtx context.Context

	// OnGameCreated, when non-nil, is invoked for every new game so
	// collaborators (event archivers, metrics) can subscribe to its
	// broker before play starts.
	OnGameCreated func(g *game.NomicGame)

	Logger *logrus.Logger

	orchestrators map[uuid.UUID]*orchestrator.Orchestrator
}

// NewGameServer creates a server with an empty game registry.
func NewGameServer(ctx context.Context, logger *logrus.Logger, newAgent func(string) agent.Agent) *GameServer {
	return &GameServer{
		GameStore:     game.NewGameStore(),
		NewAgent:      newAgent,
		RunCtx:        ctx,
		Logger:        logger,
		orchestrators: make(map[uuid.UUID]*orchestrator.Orchestrator),
	}
}

// CreateGame builds a game in setup phase with one agent per named
// player and an idle orchestrator bound to it.
func (gs *GameServer) CreateGame(cfg models.GameConfig, playerNames []string) (*game.NomicGame, error) {
	g := game.NewNomicGame(cfg)
	orch := orchestrator.New(g, gs.Logger)
	if gs.Persister != nil {
		orch.SetPersister(gs.Persister)
	}

	for _, name := range playerNames {
		p, err := g.AddPlayer(name)
		if err != nil {
			return nil, err
		}
		orch.RegisterAgent(p.ID, gs.NewAgent(name))
	}

	gs.GameStore.AddGame(g)
	gs.Mutex.Lock()
	gs.orchestrators[g.ID] = orch
	gs.Mutex.Unlock()

	if gs.OnGameCreated != nil {
		gs.OnGameCreated(g)
	}
	return g, nil
}

// RemoveGame stops the game's orchestrator and drops the game from the
// registry. Broker subscribers keep their channels; they simply stop
// receiving events.
func (gs *GameServer) RemoveGame(gameID uuid.UUID) {
	gs.Mutex.Lock()
	orch, ok := gs.orchestrators[gameID]
	delete(gs.orchestrators, gameID)
	gs.Mutex.Unlock()

	if ok {
		orch.Stop()
	}
	gs.GameStore.DeleteGame(gameID)
}

// Orchestrator returns the orchestrator driving the given game.
func (gs *GameServer) Orchestrator(gameID uuid.UUID) (*orchestrator.Orchestrator, bool) {
	gs.Mutex.Lock()
	defer gs.Mutex.Unlock()
	o, ok := gs.orchestrators[gameID]
	return o, ok
}
