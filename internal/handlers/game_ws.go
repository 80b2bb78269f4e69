// internal/handlers/game_ws.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/middleware"
)

// GameWSHandler upgrades the connection to a WebSocket observation feed
// for one game. The feed is one-way: every lifecycle event the game
// publishes is streamed to the client as JSON. A slow client only loses
// its own events; the game loop is never blocked by a subscriber.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromPath(r, "/game/ws/")
		if !ok {
			http.Error(w, "missing or invalid game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"nomic"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		events, cancel := g.Broker.Subscribe(64)
		defer cancel()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, ctx.Err())
				c.Close(websocket.StatusNormalClosure, "client gone")
				return
			case ev, open := <-events:
				if !open {
					c.Close(websocket.StatusNormalClosure, "game feed closed")
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					logger.WithError(err).Warn("event marshal failed, skipping")
					continue
				}
				if err := c.Write(ctx, websocket.MessageText, data); err != nil {
					middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
					return
				}
			}
		}
	}
}
