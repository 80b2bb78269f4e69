// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/nomic/internal/models"
)

// CreateGameRequest is the body for POST /game/create.
type CreateGameRequest struct {
	PlayerNames []string `json:"playerNames"`
}

// CreateGameHandler creates a game in the setup phase. Players and
// their agent backends are fixed here; the game starts separately.
func CreateGameHandler(gs *GameServer, cfg models.GameConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req CreateGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.PlayerNames) < 2 {
			writeError(w, http.StatusBadRequest, "at least two player names required")
			return
		}

		g, err := gs.CreateGame(cfg, req.PlayerNames)
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, g.Snapshot())
	}
}

// StartGameHandler transitions the game to playing and launches the
// orchestrator loop.
func StartGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		gameID, ok := gameIDFromPath(r, "/game/start/")
		if !ok {
			writeError(w, http.StatusBadRequest, "missing or invalid game_id")
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		orch, ok := gs.Orchestrator(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "no orchestrator for game")
			return
		}

		if err := g.Start(); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err := orch.Start(gs.RunCtx); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, g.Snapshot())
	}
}

// PauseGameHandler pauses a running game at the operator's request.
// The orchestrator halts once the in-flight phase settles. Admin only.
func PauseGameHandler(gs *GameServer) http.HandlerFunc {
	return requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromPath(r, "/game/pause/")
		if !ok {
			writeError(w, http.StatusBadRequest, "missing or invalid game_id")
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err := g.Pause("operator requested pause"); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, g.Snapshot())
	})
}

// ResumeGameHandler clears a pause and restarts the loop from the
// current turn. Admin only.
func ResumeGameHandler(gs *GameServer) http.HandlerFunc {
	return requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromPath(r, "/game/resume/")
		if !ok {
			writeError(w, http.StatusBadRequest, "missing or invalid game_id")
			return
		}
		orch, ok := gs.Orchestrator(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err := orch.Resume(gs.RunCtx); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, orch.Game.Snapshot())
	})
}

// ListGamesHandler serves the snapshots of every live game.
func ListGamesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, gs.GameStore.Snapshots())
	}
}

// DeleteGameHandler stops the orchestrator and removes the game from
// the registry. Admin only.
func DeleteGameHandler(gs *GameServer) http.HandlerFunc {
	return requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromPath(r, "/game/delete/")
		if !ok {
			writeError(w, http.StatusBadRequest, "missing or invalid game_id")
			return
		}
		if _, ok := gs.GameStore.GetGame(gameID); !ok {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		gs.RemoveGame(gameID)
		writeJSON(w, http.StatusOK, map[string]string{"deleted": gameID.String()})
	})
}

// SnapshotHandler serves the current game snapshot.
func SnapshotHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromPath(r, "/game/state/")
		if !ok {
			writeError(w, http.StatusBadRequest, "missing or invalid game_id")
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeJSON(w, http.StatusOK, g.Snapshot())
	}
}
