// cmd/db/historian.go is an asynchronous archiver that pops game event
// records off the Redis queue and persists them to PostgreSQL, so the
// engine itself never waits on the database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/jason-s-yu/nomic/internal/cache"
	"github.com/jason-s-yu/nomic/internal/config"
	"github.com/jason-s-yu/nomic/internal/database"
)

// HistorianService encapsulates the Redis + DB logic for archiving game
// events and marking games stalled after prolonged inactivity.
type HistorianService struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration

	// lastActivity tracks map[uuid.UUID]time.Time per game.
	lastActivity sync.Map

	batchMu  sync.Mutex
	batch    []cache.GameEventRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService from environment
// variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := config.GetEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushDelay := config.GetEnvDuration("HISTORIAN_FLUSH_INTERVAL", 500*time.Millisecond)
	inactivity := config.GetEnvDuration("GAME_INACTIVITY_TIMEOUT", 10*time.Minute)

	rdb := redis.NewClient(&redis.Options{
		Addr: config.GetEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  flushDelay,
		inactivity:  inactivity,
		batch:       make([]cache.GameEventRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and starts the queue reader and the
// inactivity sweeper, then blocks until cancelled.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("nomic-historian service started.")
	<-hs.ctx.Done()
	log.Println("nomic-historian shutting down.")
}

// readRedisLoop pulls event records off the queue with BLPop and
// accumulates them into batches.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := config.GetEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.GameEventRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid event record: %v\n", err)
				continue
			}

			hs.lastActivity.Store(record.GameID, time.Now())
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes when the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.GameEventRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushLocked()
	}
}

// flushBatchToDB flushes the current batch in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushLocked()
}

func (hs *HistorianService) flushLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.GameEventRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertGameEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameEventTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flush batch: %v\n", err)
	} else {
		log.Printf("Flushed %d events to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically marks games without recent events as stalled.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				gameID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.markGameStalled(gameID)
					hs.lastActivity.Delete(gameID)
				}
				return true
			})
		}
	}
}

// markGameStalled flags a game that stopped emitting events while still
// nominally playing. Paused and completed games are left alone.
func (hs *HistorianService) markGameStalled(gameID uuid.UUID) {
	ctx := context.Background()
	q := `
		UPDATE games
		SET phase = 'stalled', updated_at = NOW()
		WHERE id = $1 AND phase = 'playing'
	`
	if _, err := database.DB.Exec(ctx, q, gameID); err != nil {
		log.Printf("failed to mark game %v stalled: %v", gameID, err)
	} else {
		log.Printf("Marked game %v as 'stalled' due to inactivity.", gameID)
	}
}

// insertGameEventTx appends one event row and upserts the game row. A
// victory event finalizes the game.
func insertGameEventTx(ctx context.Context, tx pgx.Tx, rec cache.GameEventRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, phase, updated_at)
		VALUES ($1, 'playing', NOW())
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	eventInsertQ := `
		INSERT INTO game_events (game_id, turn, event_type, player_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
	`
	if _, err := tx.Exec(ctx, eventInsertQ,
		rec.GameID, rec.Turn, rec.EventType, rec.PlayerID, payload, rec.Timestamp,
	); err != nil {
		return err
	}

	if rec.EventType == "victory" {
		finalizeQ := `
			UPDATE games
			SET phase = 'completed', updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	hs := NewHistorianService()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		hs.cancelFn()
	}()

	hs.Run()
	// Final flush so a shutdown never strands a partial batch.
	hs.flushBatchToDB()
}
