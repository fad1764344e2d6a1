package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lifevault/backend/internal/http/dto"
	"github.com/lifevault/backend/internal/middleware"
	"github.com/lifevault/backend/internal/services"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// GET /wallets
func (h *WalletHandler) List(c *fiber.Ctx) error {
	wallets, err := h.walletService.List(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.WalletsResponse{Wallets: wallets})
}

// GET /wallets/primary
func (h *WalletHandler) Primary(c *fiber.Ctx) error {
	wallet, err := h.walletService.Primary(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.WalletResponse{Wallet: wallet})
}

// POST /wallets
func (h *WalletHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	wallet, err := h.walletService.Connect(c.UserContext(), middleware.GetUserID(c), req.Address, req.WalletType)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.WalletResponse{Wallet: wallet})
}

// Disconnect takes the id from the path or, for older clients, from ?id=.
// DELETE /wallets/:id, DELETE /wallets?id=
func (h *WalletHandler) Disconnect(c *fiber.Ctx) error {
	raw := c.Params("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		return badRequest(c, "wallet id is required")
	}
	walletID, ok := parseUUID(raw)
	if !ok {
		return badRequest(c, "invalid wallet id")
	}

	if err := h.walletService.Disconnect(c.UserContext(), middleware.GetUserID(c), walletID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// SetPrimary takes the id from the path or from the wallet_id body field.
// PATCH /wallets/:id/primary, PATCH /wallets
func (h *WalletHandler) SetPrimary(c *fiber.Ctx) error {
	raw := c.Params("id")
	if raw == "" {
		var req dto.SetPrimaryWalletRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		raw = req.WalletID
	}
	if raw == "" {
		return badRequest(c, "wallet_id is required")
	}
	walletID, ok := parseUUID(raw)
	if !ok {
		return badRequest(c, "invalid wallet id")
	}

	wallets, err := h.walletService.SetPrimary(c.UserContext(), middleware.GetUserID(c), walletID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.WalletsResponse{Wallets: wallets})
}
