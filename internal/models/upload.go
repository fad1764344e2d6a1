package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Upload statuses
const (
	UploadStatusPending   = "pending"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

func IsValidUploadStatus(s string) bool {
	switch s {
	case UploadStatusPending, UploadStatusCompleted, UploadStatusFailed:
		return true
	}
	return false
}

// UploadRecord describes a file vaulted on the client. Valuation fields are a
// snapshot supplied by the client and are never recomputed server side.
type UploadRecord struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	FileType       string    `json:"file_type"`
	EncryptionHash *string   `json:"encryption_hash,omitempty"`
	Status         string    `json:"status"`

	BaseValue              decimal.NullDecimal `json:"base_value"`
	CompletenessMultiplier decimal.NullDecimal `json:"completeness_multiplier"`
	ScarcityMultiplier     decimal.NullDecimal `json:"scarcity_multiplier"`
	DemandMultiplier       decimal.NullDecimal `json:"demand_multiplier"`
	TotalValue             decimal.NullDecimal `json:"total_value"`
	MonthlyYield           decimal.NullDecimal `json:"monthly_yield"`

	Metadata  *string   `json:"metadata,omitempty"` // opaque JSON text
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UploadSummary struct {
	Count        int64           `json:"count"`
	TotalValue   decimal.Decimal `json:"total_value"`
	MonthlyYield decimal.Decimal `json:"monthly_yield"`
}
