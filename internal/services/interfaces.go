package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
)

// Mailer delivers account mail. Callers log and swallow its errors.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// SessionCache is a read-through cache in front of the sessions table.
// Lookups return nil, nil on a miss.
type SessionCache interface {
	ByToken(ctx context.Context, token string) (*models.Session, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Put(ctx context.Context, s *models.Session, ttl time.Duration) error
	Evict(ctx context.Context, sessions ...models.Session) error
}
