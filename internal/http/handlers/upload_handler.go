package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lifevault/backend/internal/http/dto"
	"github.com/lifevault/backend/internal/middleware"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

type UploadHandler struct {
	uploadService *services.UploadService
	log           *zap.Logger
}

func NewUploadHandler(uploadService *services.UploadService, log *zap.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, log: log}
}

// POST /uploads
func (h *UploadHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	rec, err := h.uploadService.Create(c.UserContext(), middleware.GetUserID(c), services.CreateUploadInput{
		FileName:               req.FileName,
		FileSize:               req.FileSize,
		FileType:               req.FileType,
		EncryptionHash:         req.EncryptionHash,
		Status:                 req.Status,
		BaseValue:              req.BaseValue,
		CompletenessMultiplier: req.CompletenessMultiplier,
		ScarcityMultiplier:     req.ScarcityMultiplier,
		DemandMultiplier:       req.DemandMultiplier,
		TotalValue:             req.TotalValue,
		MonthlyYield:           req.MonthlyYield,
		Metadata:               req.Metadata,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.UploadResponse{Upload: rec})
}

// GET /uploads
func (h *UploadHandler) List(c *fiber.Ctx) error {
	recs, err := h.uploadService.List(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.UploadsResponse{Uploads: recs})
}

// GET /uploads/summary
func (h *UploadHandler) Summary(c *fiber.Ctx) error {
	sum, err := h.uploadService.Summary(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.UploadSummaryResponse{Summary: sum})
}

// GET /uploads/:id
func (h *UploadHandler) Get(c *fiber.Ctx) error {
	id, ok := parseUUID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid upload id")
	}
	rec, err := h.uploadService.Get(c.UserContext(), middleware.GetUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.UploadResponse{Upload: rec})
}

// DELETE /uploads/:id
func (h *UploadHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseUUID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid upload id")
	}
	deleted, err := h.uploadService.Delete(c.UserContext(), middleware.GetUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.DeletedResponse{ID: deleted})
}
