package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifevault/backend/internal/auth"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
)

// TokenLedger issues and redeems single-use, time-limited email tokens.
type TokenLedger struct {
	store repositories.Store
	cfg   *config.Config
	now   func() time.Time
}

func NewTokenLedger(store repositories.Store, cfg *config.Config) *TokenLedger {
	return &TokenLedger{store: store, cfg: cfg, now: time.Now}
}

func (l *TokenLedger) ttl(purpose string) time.Duration {
	if purpose == models.TokenPurposeResetPassword {
		return l.cfg.ResetTokenTTL
	}
	return l.cfg.VerifyTokenTTL
}

// Issue stores a new token for email through tx, so callers can make issuance
// part of a wider transaction. Live tokens for the same email are kept.
func (l *TokenLedger) Issue(ctx context.Context, tx repositories.Store, email, purpose string) (*models.VerificationToken, error) {
	value, err := auth.NewToken()
	if err != nil {
		return nil, err
	}

	t := &models.VerificationToken{
		Email:     email,
		Token:     value,
		Purpose:   purpose,
		ExpiresAt: l.now().Add(l.ttl(purpose)),
	}
	if err := tx.Tokens().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return t, nil
}

// Redeem consumes token inside one transaction:
//   - unknown token (or already redeemed by a concurrent caller): ErrNotFound
//   - expired token: the row is deleted and ErrExpired is returned, apply is not run
//   - otherwise apply runs, then every other token of the email and purpose is deleted
func (l *TokenLedger) Redeem(
	ctx context.Context,
	token, purpose string,
	apply func(tx repositories.Store, t *models.VerificationToken) error,
) (*models.VerificationToken, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", ErrNotFound)
	}

	var (
		redeemed *models.VerificationToken
		expired  bool
	)
	err := l.store.WithTx(ctx, func(tx repositories.Store) error {
		t, err := tx.Tokens().Take(ctx, token, purpose)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("token: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}

		if t.Expired(l.now()) {
			// commit the deletion, report after
			expired = true
			return nil
		}

		if err := apply(tx, t); err != nil {
			return err
		}
		if _, err := tx.Tokens().DeleteByEmail(ctx, t.Email, purpose); err != nil {
			return fmt.Errorf("delete sibling tokens: %w", err)
		}
		redeemed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, fmt.Errorf("token: %w", ErrExpired)
	}
	return redeemed, nil
}

// PurgeExpired drops every expired token regardless of purpose.
func (l *TokenLedger) PurgeExpired(ctx context.Context) (int64, error) {
	return l.store.Tokens().DeleteExpired(ctx, l.now())
}
