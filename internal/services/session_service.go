package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/auth"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"go.uber.org/zap"
)

// SessionService maps opaque session credentials to user identities. It
// holds no per-request state; resolution is a function of the credential.
type SessionService struct {
	store repositories.Store
	cache SessionCache // optional
	cfg   *config.Config
	log   *zap.Logger
	now   func() time.Time
}

func NewSessionService(store repositories.Store, cache SessionCache, cfg *config.Config, log *zap.Logger) *SessionService {
	return &SessionService{store: store, cache: cache, cfg: cfg, log: log, now: time.Now}
}

func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, userAgent, ip string) (*models.Session, error) {
	token, err := auth.NewToken()
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		UserID:    userID,
		Token:     token,
		UserAgent: truncate(userAgent, 512),
		IP:        ip,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Resolve returns the live session for a cookie token, or ErrUnauthorized.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	return s.resolve(ctx,
		func() (*models.Session, error) { return s.cache.ByToken(ctx, token) },
		func() (*models.Session, error) { return s.store.Sessions().GetByToken(ctx, token) },
	)
}

// ResolveID returns the live session a bearer token is bound to, or ErrUnauthorized.
func (s *SessionService) ResolveID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if id == uuid.Nil {
		return nil, ErrUnauthorized
	}
	return s.resolve(ctx,
		func() (*models.Session, error) { return s.cache.ByID(ctx, id) },
		func() (*models.Session, error) { return s.store.Sessions().GetByID(ctx, id) },
	)
}

func (s *SessionService) resolve(ctx context.Context, fromCache, fromStore func() (*models.Session, error)) (*models.Session, error) {
	now := s.now()

	if s.cache != nil {
		cached, err := fromCache()
		if err != nil {
			s.log.Warn("session cache lookup failed", zap.Error(err))
		} else if cached != nil && !cached.Expired(now) {
			return cached, nil
		}
	}

	sess, err := fromStore()
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	if sess.Expired(now) {
		if _, err := s.store.Sessions().DeleteByID(ctx, sess.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, ErrUnauthorized
	}

	if s.cache != nil {
		ttl := s.cfg.SessionCacheTTL
		if remaining := sess.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
		if err := s.cache.Put(ctx, sess, ttl); err != nil {
			s.log.Warn("session cache write failed", zap.Error(err))
		}

		// A revoke that ran between the lookup and Put has already evicted;
		// the entry just written must not outlive the row.
		if _, err := fromStore(); err != nil {
			s.evict(ctx, *sess)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("lookup session: %w", err)
		}
	}
	return sess, nil
}

// Revoke deletes one session. Revoking an unknown session is not an error.
func (s *SessionService) Revoke(ctx context.Context, id uuid.UUID) error {
	sess, err := s.store.Sessions().DeleteByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.evict(ctx, *sess)
	return nil
}

// RevokeAll deletes every session of the user except keepID (uuid.Nil keeps none).
func (s *SessionService) RevokeAll(ctx context.Context, userID, keepID uuid.UUID) (int, error) {
	removed, err := s.store.Sessions().DeleteByUser(ctx, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	s.evict(ctx, removed...)
	return len(removed), nil
}

func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Sessions().DeleteExpired(ctx, s.now())
}

// evict drops cache entries of sessions already deleted from the store.
func (s *SessionService) evict(ctx context.Context, sessions ...models.Session) {
	if s.cache == nil || len(sessions) == 0 {
		return
	}
	if err := s.cache.Evict(ctx, sessions...); err != nil {
		s.log.Warn("session cache eviction failed", zap.Int("sessions", len(sessions)), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
