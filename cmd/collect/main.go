package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"metobs/internal/api"
	"metobs/internal/collector"
	"metobs/internal/config"
	"metobs/internal/database"
	"metobs/internal/logging"
	"metobs/internal/metdata"
	"metobs/internal/scheduler"
	"metobs/internal/stream"
)

// runTimeout bounds a single scheduled collection
const runTimeout = 30 * time.Minute

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log, "collect")

	if err := cfg.ValidateCollect(); err != nil {
		log.Fatalf("Invalid collect settings: %v", err)
	}
	settings, err := settingsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid collect settings: %v", err)
	}

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

	service := metdata.NewService(api.NewEklimaClientFromConfig(cfg, logger), logger)
	publisher := stream.NewPublisher(redisClient, redisCfg.Stream)
	c := collector.New(service, publisher, db, db, settings, logger)

	job := func(ctx context.Context) error {
		summary, err := c.Run(ctx)
		logger.Info("collection finished",
			"stations", summary.Stations, "batches", summary.Batches, "rows", summary.Rows)
		return err
	}

	if cfg.Collect.Interval == 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := job(ctx); err != nil {
			logger.Error("collection failed", "err", err)
			os.Exit(1)
		}
		return
	}

	s := scheduler.New(cfg.Collect.Interval, runTimeout, job, logger)
	if err := s.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down collector")
	s.Stop()
}

// settingsFromConfig turns the collect section into a collection plan
func settingsFromConfig(cfg *config.Config) (collector.Settings, error) {
	loc, err := cfg.Location()
	if err != nil {
		return collector.Settings{}, err
	}
	return collector.Settings{
		TimeSerieTypeID: cfg.Eklima.TimeSerieType,
		Stations:        cfg.Collect.Stations,
		Elements:        cfg.Collect.Elements,
		Hours:           cfg.Collect.Hours,
		BackfillDays:    cfg.Collect.BackfillDays,
		Location:        loc,
	}, nil
}
