package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest is the body of the resend-verification and forgot-password calls.
type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ConnectWalletRequest struct {
	Address    string `json:"address"`
	WalletType string `json:"wallet_type"`
}

type SetPrimaryWalletRequest struct {
	WalletID string `json:"wallet_id"`
}

// CreateUploadRequest accepts valuation fields as JSON numbers or strings.
type CreateUploadRequest struct {
	FileName       string  `json:"file_name"`
	FileSize       int64   `json:"file_size"`
	FileType       string  `json:"file_type"`
	EncryptionHash *string `json:"encryption_hash,omitempty"`
	Status         string  `json:"status,omitempty"`

	BaseValue              decimal.NullDecimal `json:"base_value"`
	CompletenessMultiplier decimal.NullDecimal `json:"completeness_multiplier"`
	ScarcityMultiplier     decimal.NullDecimal `json:"scarcity_multiplier"`
	DemandMultiplier       decimal.NullDecimal `json:"demand_multiplier"`
	TotalValue             decimal.NullDecimal `json:"total_value"`
	MonthlyYield           decimal.NullDecimal `json:"monthly_yield"`

	Metadata json.RawMessage `json:"metadata,omitempty"`
}
