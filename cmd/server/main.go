// Package main is the entry point for the riskmap service.
//
// The service keeps a local history of daily closes for every asset in the
// universe, recomputes the multi-horizon return/risk statistics on a cron
// schedule, publishes the resulting document and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/riskmap/internal/config"
	"github.com/aristath/riskmap/internal/di"
	"github.com/aristath/riskmap/internal/scheduler"
	"github.com/aristath/riskmap/internal/server"
	"github.com/aristath/riskmap/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting riskmap")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(log)

	container, jobs, err := di.Wire(ctx, cfg, sched, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Snapshots: container.SnapshotRepo,
		Refresher: jobs.RefreshAnalysis,
		SyncState: container.HistoryRepo,
		Databases: container.Databases(),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sched.Start()

	// Serve something on first start instead of waiting for the first cron tick.
	if _, _, err := container.SnapshotRepo.Latest(); err != nil {
		go func() {
			log.Info().Msg("No stored analysis, running initial refresh")
			if _, err := jobs.RefreshAnalysis.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("Initial refresh failed")
			}
		}()
	}

	log.Info().Int("port", cfg.Port).Str("refresh_cron", cfg.RefreshCron).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
