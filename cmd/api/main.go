package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/lifevault/backend/internal/cache"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/db"
	"github.com/lifevault/backend/internal/events"
	apphttp "github.com/lifevault/backend/internal/http"
	"github.com/lifevault/backend/internal/http/handlers"
	"github.com/lifevault/backend/internal/mailer"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg)
	defer log.Sync()

	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	store := repositories.NewPgStore(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	mail := mailer.NewSMTPMailer(cfg, log)
	tokens := services.NewTokenLedger(store, cfg)
	sessions := services.NewSessionService(store, cache.NewSessionCache(rdb), cfg, log)
	authService := services.NewAuthService(store, tokens, sessions, mail, publisher, cfg, log)
	userService := services.NewUserService(store, tokens, sessions, mail, publisher, cfg, log)
	walletService := services.NewWalletService(store, publisher, log)
	uploadService := services.NewUploadService(store, publisher, log)

	// Handlers
	wsHub := handlers.NewWSHub(subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to account events", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
		ProxyHeader:  fiber.HeaderXForwardedFor,
	})

	apphttp.SetupRouter(app, cfg, log, rdb, apphttp.Handlers{
		Auth:     handlers.NewAuthHandler(authService, cfg, log),
		User:     handlers.NewUserHandler(userService, cfg, log),
		Wallet:   handlers.NewWalletHandler(walletService, log),
		Upload:   handlers.NewUploadHandler(uploadService, log),
		WSHub:    wsHub,
		Sessions: sessions,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsDevelopment() {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return log
}
