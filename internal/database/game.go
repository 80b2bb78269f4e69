// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/nomic/internal/models"
)

// Store adapts the pgx pool to the orchestrator's Persister interface.
// The zero value is unusable; call NewStore after ConnectDB.
type Store struct{}

func NewStore() *Store { return &Store{} }

// SaveSnapshot upserts the game row and appends the snapshot as a JSON
// document. One row per turn lets replay tooling diff adjacent
// snapshots offline.
//
// Schema:
//
//	games(id uuid primary key, phase text, turn int, updated_at timestamptz)
//	game_snapshots(game_id uuid, turn int, phase text, state jsonb,
//	               taken_at timestamptz, primary key (game_id, turn, phase))
func (s *Store) SaveSnapshot(ctx context.Context, snapshot models.GameSnapshot) error {
	state, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, phase, turn, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (id) DO UPDATE SET phase = $2, turn = $3, updated_at = now()
		`
		if _, e := tx.Exec(ctx, upsertGame, snapshot.GameID, string(snapshot.Phase), snapshot.Turn); e != nil {
			return e
		}

		insertSnap := `
			INSERT INTO game_snapshots (game_id, turn, phase, state, taken_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (game_id, turn, phase) DO UPDATE SET state = $4, taken_at = $5
		`
		_, e := tx.Exec(ctx, insertSnap, snapshot.GameID, snapshot.Turn, string(snapshot.Phase), state, snapshot.TakenAt)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx save snapshot: %w", err)
	}
	return nil
}

// RecordGameResult persists the final outcome of a completed game.
func RecordGameResult(ctx context.Context, gameID uuid.UUID, players []models.Player, winnerID uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, phase, updated_at)
			VALUES ($1, 'completed', now())
			ON CONFLICT (id) DO UPDATE SET phase = 'completed', updated_at = now()
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID); e != nil {
			return e
		}

		for _, p := range players {
			q := `
				INSERT INTO game_results (game_id, player_id, player_name, points, did_win)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET points = $4, did_win = $5
			`
			if _, e := tx.Exec(ctx, q, gameID, p.ID, p.Name, p.Points, p.ID == winnerID); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record game result: %w", err)
	}
	return nil
}
