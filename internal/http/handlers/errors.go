package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/http/dto"
	"github.com/lifevault/backend/internal/middleware"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

// errorStatus maps a service error to a status code and a message that is
// safe to show to the caller.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), services.ErrInvalidInput.Error()+": ")
		return fiber.StatusBadRequest, msg
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, "already exists"
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, services.ErrExpired):
		return fiber.StatusGone, "token expired"
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, msg := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	} else {
		log.Debug("request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func parseUUID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ErrorHandler is the fiber fallback for errors no handler turned into a
// response. Fiber errors keep their code; everything else is a generic 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Error: fe.Message, RequestID: middleware.GetRequestID(c)})
		}
		return respondError(c, log, err)
	}
}
