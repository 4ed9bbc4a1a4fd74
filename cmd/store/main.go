package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"metobs/internal/config"
	"metobs/internal/database"
	"metobs/internal/logging"
	"metobs/internal/stream"
)

const consumerGroup = "metobs_store"

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log, "store")

	redisCfg := cfg.RedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	defer redisClient.Close()

	db, err := database.NewDB(config.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "store-1"
	}

	consumer := stream.NewConsumer(redisClient, redisCfg.Stream, consumerGroup, hostname, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.EnsureGroup(ctx); err != nil {
		log.Fatalf("Failed to create consumer group: %v", err)
	}

	logger.Info("store started", "stream", redisCfg.Stream, "group", consumerGroup, "consumer", hostname)

	err = consumer.Run(ctx, func(ctx context.Context, b stream.Batch) error {
		return db.StoreObservations(ctx, b.ID, b.Timezone, b.Rows)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", "err", err)
		os.Exit(1)
	}

	logger.Info("store service stopped")
}
