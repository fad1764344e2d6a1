package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/auth"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	byToken map[string]*models.Session
	byID    map[uuid.UUID]*models.Session
}

func (r stubResolver) Resolve(_ context.Context, token string) (*models.Session, error) {
	if s, ok := r.byToken[token]; ok {
		return s, nil
	}
	return nil, errors.New("unauthorized")
}

func (r stubResolver) ResolveID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if s, ok := r.byID[id]; ok {
		return s, nil
	}
	return nil, errors.New("unauthorized")
}

func newAuthApp(t *testing.T, sess *models.Session) (*fiber.App, *config.Config) {
	t.Helper()
	cfg := &config.Config{JWTSecret: "secret", SessionCookieName: "session_token"}
	resolver := stubResolver{
		byToken: map[string]*models.Session{sess.Token: sess},
		byID:    map[uuid.UUID]*models.Session{sess.ID: sess},
	}

	app := fiber.New()
	app.Get("/me", AuthMiddleware(resolver, cfg, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c).String() + "|" + GetSessionID(c).String())
	})
	return app, cfg
}

func TestAuthMiddleware(t *testing.T) {
	sess := &models.Session{ID: uuid.New(), UserID: uuid.New(), Token: "cookie-token", ExpiresAt: time.Now().Add(time.Hour)}
	app, cfg := newAuthApp(t, sess)

	valid, err := auth.GenerateJWT(cfg.JWTSecret, sess.UserID, sess.ID, sess.ExpiresAt)
	require.NoError(t, err)
	orphan, err := auth.GenerateJWT(cfg.JWTSecret, sess.UserID, uuid.New(), sess.ExpiresAt)
	require.NoError(t, err)
	stolen, err := auth.GenerateJWT(cfg.JWTSecret, uuid.New(), sess.ID, sess.ExpiresAt)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
		header string
		want   int
	}{
		{"no credential", "", "", fiber.StatusUnauthorized},
		{"cookie", "cookie-token", "", fiber.StatusOK},
		{"unknown cookie", "other", "", fiber.StatusUnauthorized},
		{"bearer", "", "Bearer " + valid, fiber.StatusOK},
		{"stale cookie with bearer", "other", "Bearer " + valid, fiber.StatusOK},
		{"bearer without session", "", "Bearer " + orphan, fiber.StatusUnauthorized},
		{"bearer for foreign session", "", "Bearer " + stolen, fiber.StatusUnauthorized},
		{"not bearer", "", "Basic abc", fiber.StatusUnauthorized},
		{"garbage jwt", "", "Bearer abc.def.ghi", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", "session_token="+tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app := fiber.New()
	app.Use(RateLimitMiddleware(rdb, "auth", 2, time.Minute, zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	mr.FastForward(time.Minute)
	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	app := fiber.New()
	app.Use(RateLimitMiddleware(rdb, "api", 1, time.Minute, zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequestIDPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetRequestID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	_, err = uuid.Parse(resp.Header.Get("X-Request-ID"))
	assert.NoError(t, err)
}
