package game

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jason-s-yu/nomic/internal/models"
)

// GameStore is the registry of live games, keyed by game id. Reads far
// outnumber writes (every control request resolves a game), hence the
// RWMutex. The registry lock is never held while a game's own mutex is
// taken.
type GameStore struct {
	mu    sync.RWMutex
	games map[uuid.UUID]*NomicGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*NomicGame),
	}
}

// AddGame registers a game. Re-adding an existing id replaces the entry.
func (s *GameStore) AddGame(g *NomicGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

// GetGame returns the live game with the given id, if registered.
func (s *GameStore) GetGame(id uuid.UUID) (*NomicGame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, exists := s.games[id]
	return g, exists
}

// DeleteGame drops the game from the registry. The game object itself
// is untouched; holders of its broker channels just stop seeing events.
func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// Count returns the number of registered games.
func (s *GameStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// Snapshots returns a point-in-time snapshot of every registered game,
// in no particular order, suitable for serving directly to clients.
func (s *GameStore) Snapshots() []models.GameSnapshot {
	s.mu.RLock()
	games := make([]*NomicGame, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.RUnlock()

	// Each Snapshot takes the game's own mutex; do it outside the
	// registry lock so a busy game cannot stall unrelated lookups.
	snaps := make([]models.GameSnapshot, len(games))
	for i, g := range games {
		snaps[i] = g.Snapshot()
	}
	return snaps
}
