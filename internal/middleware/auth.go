package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/auth"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/models"
	"go.uber.org/zap"
)

const (
	CtxUserID    = "user_id"
	CtxSessionID = "session_id"
)

var errNoCredential = errors.New("no credential")

// SessionResolver is the read side of the session service.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
	ResolveID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// AuthMiddleware accepts the session cookie or an "Authorization: Bearer"
// JWT whose session still resolves. Every failure is a plain 401.
func AuthMiddleware(resolver SessionResolver, cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessionFromRequest(c, resolver, cfg)
		if err != nil {
			if !errors.Is(err, errNoCredential) {
				log.Debug("session rejected", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		c.Locals(CtxUserID, sess.UserID)
		c.Locals(CtxSessionID, sess.ID)
		return c.Next()
	}
}

func sessionFromRequest(c *fiber.Ctx, resolver SessionResolver, cfg *config.Config) (*models.Session, error) {
	ctx := c.UserContext()

	if token := c.Cookies(cfg.SessionCookieName); token != "" {
		sess, err := resolver.Resolve(ctx, token)
		if err == nil {
			return sess, nil
		}
		// a stale cookie must not shadow a valid bearer token
		if c.Get(fiber.HeaderAuthorization) == "" {
			return nil, err
		}
	}

	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, errNoCredential
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return nil, errors.New("invalid authorization format")
	}
	return ResolveBearer(ctx, resolver, cfg.JWTSecret, tokenStr)
}

// ResolveBearer validates a JWT and resolves the session it is bound to.
func ResolveBearer(ctx context.Context, resolver SessionResolver, secret, tokenStr string) (*models.Session, error) {
	claims, err := auth.ParseJWT(secret, tokenStr)
	if err != nil {
		return nil, err
	}
	sess, err := resolver.ResolveID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, errors.New("token subject does not own session")
	}
	return sess, nil
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetSessionID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxSessionID).(uuid.UUID)
	return id
}
