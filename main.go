package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/monitor"
	"github.com/wfunc/synergy/persistence"
	"github.com/wfunc/synergy/server"
	"github.com/wfunc/synergy/services"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Record store ready (driver %s).", cfg.Database.Driver)

	records := services.NewRecordService(db)
	defer records.Close()

	mon := monitor.NewMonitor("synergy")
	mon.PublishExpvars()

	gameServer := server.NewGameServer(cfg, records, mon)

	go func() {
		logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
		if err := gameServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down.")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Warnf("Shutdown: %v", err)
	}
}
