package main

import (
	"context"
	"time"

	"github.com/himalai/expense-service/internal/config"
	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/lock"
	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/redis"
	"github.com/himalai/expense-service/internal/storage"
)

const cleanupLockKey = "cleanup:lock"

func main() {
	log := logger.New("cleanup-worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

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

	userStore := storage.NewPostgresUserStore(dbManager)

	log.Info("Cleanup worker started. Running every %v", cfg.Cleanup.Interval)

	runCleanup(ctx, cfg, redisClient, userStore, log)

	ticker := time.NewTicker(cfg.Cleanup.Interval)
	defer ticker.Stop()

	for range ticker.C {
		runCleanup(ctx, cfg, redisClient, userStore, log)
	}
}

// runCleanup purges accounts whose verification code expired without
// being used. A distributed lock keeps multiple worker instances from
// racing the same pass.
func runCleanup(ctx context.Context, cfg *config.Config, redisClient *redis.RedisClient, userStore *storage.PostgresUserStore, log *logger.Logger) {
	cleanupLock := lock.NewDistributedLock(redisClient.GetClient(), cleanupLockKey, cfg.Cleanup.LockTTL)

	acquired, err := cleanupLock.Acquire(ctx)
	if err != nil {
		log.Error("Failed to acquire cleanup lock: %v", err)
		return
	}
	if !acquired {
		log.Info("Another instance is running cleanup, skipping")
		return
	}
	defer func() {
		if err := cleanupLock.Release(ctx); err != nil {
			log.Warn("Failed to release cleanup lock: %v", err)
		}
	}()

	log.Info("Starting cleanup of expired unverified accounts...")

	deleted, err := userStore.DeleteExpiredUnverified(ctx, time.Now())
	if err != nil {
		log.Error("Failed to delete expired unverified accounts: %v", err)
		return
	}

	if deleted > 0 {
		log.Info("Deleted %d expired unverified accounts", deleted)
	} else {
		log.Info("No expired unverified accounts found")
	}

	log.Info("Cleanup completed successfully")
}
