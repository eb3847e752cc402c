package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/flatmate/internal/config"
	"github.com/dukerupert/flatmate/internal/database"
	"github.com/dukerupert/flatmate/internal/jobs"
	"github.com/dukerupert/flatmate/internal/logging"
	"github.com/dukerupert/flatmate/internal/server"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}
	scheduler, err := jobs.NewScheduler(srv.Complaints(), srv.RateLimiter(), cfg.ArchiveSchedule, loc, logger.With("component", "jobs"))
	if err != nil {
		logger.Error("failed to schedule jobs", "error", err)
		os.Exit(1)
	}
	// Catch up on anything that went stale while the server was down.
	scheduler.RunSweep(context.Background())
	scheduler.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("flatmate listening", "addr", httpServer.Addr, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
