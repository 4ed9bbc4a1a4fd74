package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metobs/internal/api"
	"metobs/internal/config"
	"metobs/internal/database"
	"metobs/internal/logging"
	"metobs/internal/metdata"
	"metobs/internal/server"
)

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log, "server")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid query timezone: %v", err)
	}

	service := metdata.NewService(api.NewEklimaClientFromConfig(cfg, logger), logger)

	// live queries still work without a database
	var store server.ObservationStore
	db, err := database.NewDB(config.GetDatabaseDSN())
	if err != nil {
		logger.Warn("database unavailable, stored observations disabled", "err", err)
	} else {
		defer db.Close()
		store = db
	}

	httpServer := server.NewServer(service, store, loc, logger)

	go func() {
		if err := httpServer.Start(cfg.Server.Addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
