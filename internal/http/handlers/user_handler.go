package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/http/dto"
	"github.com/lifevault/backend/internal/middleware"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *services.UserService
	cfg         *config.Config
	log         *zap.Logger
}

func NewUserHandler(userService *services.UserService, cfg *config.Config, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, cfg: cfg, log: log}
}

// GET /user/profile
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	user, err := h.userService.GetProfile(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.UserResponse{User: user})
}

// PUT /user/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), middleware.GetUserID(c), services.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.UserResponse{User: user})
}

// DELETE /user/profile
func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	if err := h.userService.DeleteAccount(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	clearSessionCookie(c, h.cfg)
	return c.JSON(dto.SuccessResponse{OK: true})
}

// POST /user/password
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	err := h.userService.ChangePassword(c.UserContext(),
		middleware.GetUserID(c), middleware.GetSessionID(c),
		req.CurrentPassword, req.NewPassword,
	)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// GET /user/activity?limit=
func (h *UserHandler) Activity(c *fiber.Ctx) error {
	logs, err := h.userService.Activity(c.UserContext(), middleware.GetUserID(c), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ActivityResponse{Activity: logs})
}
