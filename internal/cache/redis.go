// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/nomic/internal/config"
	"github.com/jason-s-yu/nomic/internal/game"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for game event records.
var DefaultQueueName = "nomic_events"

// GameEventRecord holds the minimal info the historian worker needs to
// archive one lifecycle event.
type GameEventRecord struct {
	GameID    uuid.UUID              `json:"game_id"`
	Turn      int                    `json:"turn"`
	EventType string                 `json:"event_type"`
	PlayerID  uuid.UUID              `json:"player_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment
// variables REDIS_ADDR (default "localhost:6379") and REDIS_DB.
func ConnectRedis() error {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := config.GetEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishGameEvent serializes the record to JSON and pushes it onto the
// event queue. Only a quick network send; never blocks game logic.
func PublishGameEvent(ctx context.Context, record GameEventRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameEventRecord: %w", err)
	}

	queueName := config.GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// ForwardEvents drains a broker subscription into the Redis queue until
// the channel closes or the context ends. Designed to run as its own
// goroutine; a failed push is logged and dropped, never retried
// in-line, so the game loop is never back-pressured.
func ForwardEvents(ctx context.Context, events <-chan game.GameEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			record := GameEventRecord{
				GameID:    ev.GameID,
				Turn:      ev.Turn,
				EventType: string(ev.Type),
				PlayerID:  ev.PlayerID,
				Payload:   ev.Payload,
				Timestamp: ev.Timestamp.UnixMilli(),
			}
			if err := PublishGameEvent(ctx, record); err != nil {
				log.WithError(err).Warn("historian queue push failed, dropping event")
			}
		}
	}
}
