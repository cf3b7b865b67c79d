// Package main is the entry point for the Black-Litterman allocation service.
// It serves allocations over HTTP and keeps a history of completed runs in SQLite.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/server"
	"github.com/aristath/allocator/pkg/logger"
)

func main() {
	// Load configuration first to get log level
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

	log.Info().
		Float64("risk_aversion", cfg.RiskAversion).
		Float64("tau", cfg.Tau).
		Str("omega_method", cfg.OmegaMethod).
		Msg("Starting allocator")

	allocator := optimization.NewAllocator(cfg.Allocator(), log)

	// Run history is optional
	var (
		db   *database.DB
		runs optimization.RunStore
	)
	if cfg.PersistRuns {
		db, err = database.New(database.Config{
			Path:    cfg.DatabasePath(),
			Profile: database.ProfileStandard,
			Name:    "allocator",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open run history database")
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate run history database")
		}
		runs = optimization.NewRunRepository(db.Conn(), log)
		log.Info().Str("path", db.Path()).Msg("Run history enabled")
	}

	srv := server.New(server.Config{
		Log:     log,
		DB:      db,
		Service: optimization.NewService(allocator, runs, log),
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
