package handlers

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/http/dto"
	"github.com/lifevault/backend/internal/middleware"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg, log: log}
}

// Register creates an account.
// POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.UserResponse{User: user})
}

// VerifyEmail is opened from the mailed link, so it answers with a redirect
// to the sign-in page instead of a JSON body.
// GET /auth/verify?token=
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return h.redirectSignIn(c, "error", "invalid_token")
	}

	_, err := h.authService.VerifyEmail(c.UserContext(), token)
	switch {
	case err == nil:
		return h.redirectSignIn(c, "verified", "true")
	case errors.Is(err, services.ErrNotFound):
		return h.redirectSignIn(c, "error", "invalid_token")
	case errors.Is(err, services.ErrExpired):
		return h.redirectSignIn(c, "error", "token_expired")
	default:
		h.log.Error("email verification failed",
			zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		return h.redirectSignIn(c, "error", "verification_failed")
	}
}

func (h *AuthHandler) redirectSignIn(c *fiber.Ctx, key, value string) error {
	q := url.Values{}
	q.Set(key, value)
	return c.Redirect(h.cfg.AppURL+"/auth/signin?"+q.Encode(), fiber.StatusFound)
}

// ResendVerification always answers 202 for a well-formed email.
// POST /auth/verify/resend
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.authService.ResendVerification(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{
		OK:      true,
		Message: "if the account exists and is unverified, a new link has been sent",
	})
}

// Login starts a session: the cookie serves browsers, the JWT serves API clients.
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.authService.Login(c.UserContext(), req.Email, req.Password, services.ClientMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    res.Session.Token,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(dto.AuthResponse{Token: res.Token, ExpiresAt: res.Session.ExpiresAt, User: res.User})
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.GetSessionID(c)); err != nil {
		return respondError(c, h.log, err)
	}

	clearSessionCookie(c, h.cfg)
	return c.JSON(dto.SuccessResponse{OK: true})
}

// clearSessionCookie expires the cookie set at login; name and path must match.
func clearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// POST /auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{
		OK:      true,
		Message: "if the account exists, a reset link has been sent",
	})
}

// POST /auth/password/reset
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Token == "" {
		return badRequest(c, "token is required")
	}
	if err := h.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
