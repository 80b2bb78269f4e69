// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/agent"
	anthropicagent "github.com/jason-s-yu/nomic/internal/agent/anthropic"
	openaiagent "github.com/jason-s-yu/nomic/internal/agent/openai"
	"github.com/jason-s-yu/nomic/internal/auth"
	"github.com/jason-s-yu/nomic/internal/cache"
	"github.com/jason-s-yu/nomic/internal/config"
	"github.com/jason-s-yu/nomic/internal/database"
	"github.com/jason-s-yu/nomic/internal/game"
	"github.com/jason-s-yu/nomic/internal/handlers"
	"github.com/jason-s-yu/nomic/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.Load()
	ctx := context.Background()

	srv := handlers.NewGameServer(ctx, logger, agentFactory(logger))

	// Persistence and the historian queue are optional collaborators:
	// the engine runs fine without either.
	usePostgres := os.Getenv("PG_HOST") != ""
	useRedis := os.Getenv("REDIS_ADDR") != ""
	if usePostgres {
		database.ConnectDB()
		srv.Persister = database.NewStore()
	}
	if useRedis {
		if err := cache.ConnectRedis(); err != nil {
			logger.Fatalf("redis connect failed: %v", err)
		}
	}
	srv.OnGameCreated = func(g *game.NomicGame) {
		if useRedis {
			events, _ := g.Broker.Subscribe(256)
			go cache.ForwardEvents(ctx, events)
		}
		if usePostgres {
			events, cancel := g.Broker.Subscribe(64)
			go recordResultOnVictory(ctx, logger, g, events, cancel)
		}
	}

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/admin/login", logged(handlers.AdminLoginHandler()))
	mux.Handle("/game/create", logged(handlers.CreateGameHandler(srv, cfg)))
	mux.Handle("/game/list", logged(handlers.ListGamesHandler(srv)))
	mux.Handle("/game/delete/", logged(handlers.DeleteGameHandler(srv)))
	mux.Handle("/game/start/", logged(handlers.StartGameHandler(srv)))
	mux.Handle("/game/pause/", logged(handlers.PauseGameHandler(srv)))
	mux.Handle("/game/resume/", logged(handlers.ResumeGameHandler(srv)))
	mux.Handle("/game/state/", logged(handlers.SnapshotHandler(srv)))
	mux.Handle("/game/ws/", logged(handlers.GameWSHandler(logger, srv)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s (agent backend: %s)", addr, config.AgentBackend())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// recordResultOnVictory watches one game's event stream and writes the
// final standings when the game completes.
func recordResultOnVictory(ctx context.Context, logger *logrus.Logger, g *game.NomicGame, events <-chan game.GameEvent, cancel func()) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != game.EventVictory {
				continue
			}
			snap := g.Snapshot()
			if err := database.RecordGameResult(ctx, g.ID, snap.Players, ev.PlayerID); err != nil {
				logger.WithError(err).Warn("failed to record game result")
			}
			return
		}
	}
}

// agentFactory selects the agent backend once at startup. Every player
// gets the same backend kind; the engine never inspects which.
func agentFactory(logger *logrus.Logger) func(name string) agent.Agent {
	backend := config.AgentBackend()
	switch backend {
	case config.BackendAnthropic:
		key := config.AnthropicAPIKey()
		return func(string) agent.Agent {
			return anthropicagent.New(func(o *anthropicagent.Options) { o.APIKey = key })
		}
	case config.BackendOpenAI:
		key := config.OpenAIAPIKey()
		return func(string) agent.Agent {
			return openaiagent.New(func(o *openaiagent.Options) { o.APIKey = key })
		}
	case config.BackendScripted:
		return func(name string) agent.Agent { return agent.NewScriptedAgent(name) }
	default:
		logger.Fatalf("unknown agent backend %q", backend)
		return nil
	}
}
