package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	// ErrOutOfRange reports a value the column type cannot hold.
	ErrOutOfRange = errors.New("value out of range")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LockByID takes a row lock on the user for the rest of the transaction.
	LockByID(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, u *models.User) error
	// UpdatePassword writes only the password hash, leaving concurrent
	// changes to the other columns intact.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
	MarkVerifiedByEmail(ctx context.Context, email string, at time.Time) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TokenRepository interface {
	Create(ctx context.Context, t *models.VerificationToken) error
	// Take deletes the token and returns it; ErrNotFound when no row matched.
	Take(ctx context.Context, token, purpose string) (*models.VerificationToken, error)
	DeleteByEmail(ctx context.Context, email, purpose string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// DeleteByUser removes the user's sessions except keepID and returns them.
	DeleteByUser(ctx context.Context, userID uuid.UUID, keepID uuid.UUID) ([]models.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type WalletRepository interface {
	Create(ctx context.Context, w *models.Wallet) error
	// ListByUser returns wallets oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Wallet, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	ExistsAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// SetPrimary flags id as primary and clears every other wallet of the user
	// in a single statement.
	SetPrimary(ctx context.Context, userID, id uuid.UUID, at time.Time) error
}

type UploadRepository interface {
	Create(ctx context.Context, u *models.UploadRecord) error
	// ListByUser returns records newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UploadRecord, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.UploadRecord, error)
	DeleteForUser(ctx context.Context, userID, id uuid.UUID) (uuid.UUID, error)
	SummaryByUser(ctx context.Context, userID uuid.UUID) (*models.UploadSummary, error)
}

type AuditRepository interface {
	Log(ctx context.Context, entry models.AuditLog) error
	ListByActor(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error)
}

// Store hands out repositories bound to one connection scope. Inside WithTx
// every repository obtained from tx shares the same transaction.
type Store interface {
	Users() UserRepository
	Tokens() TokenRepository
	Sessions() SessionRepository
	Wallets() WalletRepository
	Uploads() UploadRepository
	Audit() AuditRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
