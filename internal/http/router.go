package http

import (
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/http/handlers"
	"github.com/lifevault/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Wallet   *handlers.WalletHandler
	Upload   *handlers.UploadHandler
	WSHub    *handlers.WSHub
	Sessions middleware.SessionResolver
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowCredentials: cfg.CORSOrigins != "*" && !strings.Contains(cfg.CORSOrigins, "*"),
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	requireSession := middleware.AuthMiddleware(h.Sessions, cfg, log)

	// Auth (public, tight per-IP budget)
	authGroup := api.Group("/auth")
	if rdb != nil {
		authGroup.Use(middleware.RateLimitMiddleware(rdb, "auth", cfg.RateLimitAuth, time.Minute, log))
	}
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Get("/verify", h.Auth.VerifyEmail)
	authGroup.Post("/verify/resend", h.Auth.ResendVerification)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/logout", requireSession, h.Auth.Logout)
	authGroup.Post("/password/forgot", h.Auth.ForgotPassword)
	authGroup.Post("/password/reset", h.Auth.ResetPassword)

	// WebSocket account feed; registered ahead of the session group, it
	// authenticates with ?token= instead.
	if h.WSHub != nil {
		api.Get("/ws", handlers.WSUpgradeMiddleware(h.Sessions, cfg), websocket.New(h.WSHub.HandleWS))
	}

	// Protected endpoints
	protected := api.Group("", requireSession)
	if rdb != nil {
		protected.Use(middleware.RateLimitMiddleware(rdb, "api", cfg.RateLimitAPI, time.Minute, log))
	}

	// User
	protected.Get("/user/profile", h.User.GetProfile)
	protected.Put("/user/profile", h.User.UpdateProfile)
	protected.Delete("/user/profile", h.User.DeleteAccount)
	protected.Post("/user/password", h.User.ChangePassword)
	protected.Get("/user/activity", h.User.Activity)

	// Wallets
	protected.Get("/wallets", h.Wallet.List)
	protected.Get("/wallets/primary", h.Wallet.Primary)
	protected.Post("/wallets", h.Wallet.Connect)
	protected.Delete("/wallets", h.Wallet.Disconnect)
	protected.Delete("/wallets/:id", h.Wallet.Disconnect)
	protected.Patch("/wallets", h.Wallet.SetPrimary)
	protected.Patch("/wallets/:id/primary", h.Wallet.SetPrimary)

	// Uploads
	protected.Get("/uploads", h.Upload.List)
	protected.Get("/uploads/summary", h.Upload.Summary)
	protected.Post("/uploads", h.Upload.Create)
	protected.Get("/uploads/:id", h.Upload.Get)
	protected.Delete("/uploads/:id", h.Upload.Delete)
}
