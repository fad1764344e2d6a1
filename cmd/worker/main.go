// Command worker purges expired verification tokens and sessions, then
// exits. Schedule it with cron; the API itself runs no background jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/db"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

const runTimeout = 2 * time.Minute

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	store := repositories.NewPgStore(pool)
	tokens := services.NewTokenLedger(store, cfg)
	// Cache entries expire on their own TTL, so the purge skips Redis.
	sessions := services.NewSessionService(store, nil, cfg, log)

	if err := services.Purge(ctx, tokens, sessions, log); err != nil {
		log.Error("purge failed", zap.Error(err))
		pool.Close()
		os.Exit(1)
	}
}
