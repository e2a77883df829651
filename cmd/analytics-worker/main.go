package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/himalai/expense-service/internal/clickhouse"
	"github.com/himalai/expense-service/internal/config"
	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/events"
	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/redis"
	"github.com/himalai/expense-service/internal/storage"
)

var (
	log           *logger.Logger
	streamName    string
	consumerGroup string
	consumerName  string
	batchSize     int
	pollInterval  time.Duration
	blockTime     time.Duration
)

func main() {
	log = logger.New("analytics-worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	streamName = cfg.Redis.StreamName
	consumerGroup = cfg.Analytics.ConsumerGroup
	consumerName = cfg.Analytics.ConsumerName
	batchSize = cfg.Analytics.BatchSize
	pollInterval = cfg.Analytics.PollInterval
	blockTime = cfg.Analytics.BlockTime

	ctx := context.Background()

	redisClient, err := redis.NewRedisClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatal("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	if err := chClient.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize ClickHouse schema: %v", err)
	}

	var userStore storage.UserStore
	if cfg.Database.PrimaryDSN != "" {
		dbManager, err := database.NewDBManager(ctx, database.Config{
			PrimaryDSN:      cfg.Database.PrimaryDSN,
			ReplicaDSNs:     cfg.Database.ReplicaDSNs,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer dbManager.Close()
		userStore = storage.NewPostgresUserStore(dbManager)
	} else {
		log.Warn("DB_PRIMARY_DSN not set, transaction totals will not be updated")
	}

	err = redisClient.GetClient().XGroupCreateMkStream(ctx, streamName, consumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		log.Fatal("Failed to create consumer group: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info("Processing ledger events from %s", streamName)
	go processEvents(ctx, redisClient.GetClient(), chClient, userStore)

	<-sigChan
	log.Info("Shutting down")
}

// claimMinIdle is how long a pending entry sits with a dead or failed
// consumer before another one takes it over.
const claimMinIdle = time.Minute

type eventSink interface {
	InsertLedgerEvents(ctx context.Context, batch []events.LedgerEvent) error
}

type totalsAdjuster interface {
	AdjustTransactionTotals(ctx context.Context, deltas map[string]int) error
}

func processEvents(ctx context.Context, client *redislib.Client, sink eventSink, totals totalsAdjuster) {
	for {
		claimAbandoned(ctx, client, sink, totals)

		messages, err := client.XReadGroup(ctx, &redislib.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{streamName, ">"},
			Count:    int64(batchSize),
			Block:    blockTime,
		}).Result()

		if err != nil {
			if err == redislib.Nil {
				continue
			}
			log.Error("Failed to read from stream: %v", err)
			time.Sleep(pollInterval)
			continue
		}

		for _, stream := range messages {
			if len(stream.Messages) == 0 {
				continue
			}

			ackIDs, err := processBatch(ctx, stream.Messages, sink, totals)
			if err != nil {
				// Left unacked; the claim pass retries them once
				// they go idle.
				log.Error("Failed to process batch: %v", err)
				continue
			}
			ack(ctx, client, ackIDs)
			log.Debug("Processed %d events", len(ackIDs))
		}
	}
}

// claimAbandoned takes over entries that were delivered but never
// acked, so a batch that failed mid-insert is retried instead of
// sitting in the pending list until a restart.
func claimAbandoned(ctx context.Context, client *redislib.Client, sink eventSink, totals totalsAdjuster) {
	start := "0-0"
	for {
		claimed, next, err := client.XAutoClaim(ctx, &redislib.XAutoClaimArgs{
			Stream:   streamName,
			Group:    consumerGroup,
			Consumer: consumerName,
			MinIdle:  claimMinIdle,
			Start:    start,
			Count:    int64(batchSize),
		}).Result()
		if err != nil {
			if err != redislib.Nil {
				log.Error("Failed to claim pending entries: %v", err)
			}
			return
		}
		if len(claimed) == 0 {
			return
		}

		ackIDs, err := processBatch(ctx, claimed, sink, totals)
		if err != nil {
			log.Error("Failed to process claimed batch: %v", err)
			return
		}
		ack(ctx, client, ackIDs)
		log.Info("Recovered %d pending events", len(ackIDs))

		if next == "0-0" {
			return
		}
		start = next
	}
}

// processBatch decodes one batch, writes it to ClickHouse, and applies
// transaction-count deltas. It returns the IDs safe to ack; an insert
// failure acks nothing so the whole batch stays pending for retry.
func processBatch(ctx context.Context, msgs []redislib.XMessage, sink eventSink, totals totalsAdjuster) ([]string, error) {
	batch := make([]events.LedgerEvent, 0, len(msgs))
	deltas := make(map[string]int)
	ackIDs := make([]string, 0, len(msgs))

	for _, msg := range msgs {
		event, ok := decodeMessage(msg.Values)
		if !ok {
			log.Warn("Invalid message format: %v", msg.ID)
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		batch = append(batch, event)
		switch event.Action {
		case events.ActionAdded:
			deltas[event.UserID]++
		case events.ActionDeleted:
			deltas[event.UserID]--
		}
		ackIDs = append(ackIDs, msg.ID)
	}

	if len(batch) > 0 {
		if err := sink.InsertLedgerEvents(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to insert into ClickHouse: %w", err)
		}
	}

	if len(deltas) > 0 && totals != nil {
		if err := totals.AdjustTransactionTotals(ctx, deltas); err != nil {
			log.Error("Failed to adjust transaction totals: %v", err)
		}
	}
	return ackIDs, nil
}

func ack(ctx context.Context, client *redislib.Client, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := client.XAck(ctx, streamName, consumerGroup, ids...).Err(); err != nil {
		log.Error("Failed to acknowledge messages: %v", err)
	}
}

// decodeMessage rebuilds a ledger event from the stream fields written
// by the producer. Optional fields may be absent.
func decodeMessage(values map[string]interface{}) (events.LedgerEvent, bool) {
	entryID, ok1 := values["entry_id"].(string)
	userID, ok2 := values["user_id"].(string)
	action, ok3 := values["action"].(string)
	if !ok1 || !ok2 || !ok3 {
		return events.LedgerEvent{}, false
	}

	event := events.LedgerEvent{
		EntryID:     entryID,
		UserID:      userID,
		Action:      action,
		Category:    stringField(values, "category"),
		Description: stringField(values, "description"),
		Source:      stringField(values, "source"),
		Debit:       floatField(values, "debit"),
		Credit:      floatField(values, "credit"),
		OccurredAt:  intField(values, "occurred_at"),
	}
	if event.OccurredAt == 0 {
		event.OccurredAt = time.Now().Unix()
	}
	return event, true
}

func stringField(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func floatField(values map[string]interface{}, key string) float64 {
	v, ok := values[key].(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func intField(values map[string]interface{}, key string) int64 {
	v, ok := values[key].(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
