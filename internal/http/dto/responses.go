package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
)

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

type WalletResponse struct {
	Wallet *models.Wallet `json:"wallet"`
}

type WalletsResponse struct {
	Wallets []models.Wallet `json:"wallets"`
}

type UploadResponse struct {
	Upload *models.UploadRecord `json:"upload"`
}

type UploadsResponse struct {
	Uploads []models.UploadRecord `json:"uploads"`
}

type UploadSummaryResponse struct {
	Summary *models.UploadSummary `json:"summary"`
}

type DeletedResponse struct {
	ID uuid.UUID `json:"id"`
}

type ActivityResponse struct {
	Activity []models.AuditLog `json:"activity"`
}
