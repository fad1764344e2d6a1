package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	AuditUserRegistered       = "user_registered"
	AuditUserVerified         = "user_verified"
	AuditUserProfileUpdated   = "user_profile_updated"
	AuditUserPasswordChanged  = "user_password_changed"
	AuditUserDeleted          = "user_deleted"
	AuditWalletConnected      = "wallet_connected"
	AuditWalletDisconnected   = "wallet_disconnected"
	AuditWalletPrimaryChanged = "wallet_primary_changed"
	AuditUploadCreated        = "upload_created"
	AuditUploadDeleted        = "upload_deleted"
)

type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"` // user/system
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
