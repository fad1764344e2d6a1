package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Purge deletes expired verification tokens and expired sessions.
func Purge(ctx context.Context, tokens *TokenLedger, sessions *SessionService, log *zap.Logger) error {
	n, err := tokens.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge tokens: %w", err)
	}
	log.Info("purged expired tokens", zap.Int64("count", n))

	n, err = sessions.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	log.Info("purged expired sessions", zap.Int64("count", n))
	return nil
}
