package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/events"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"go.uber.org/zap"
)

// WalletService keeps the wallet registry. Every mutation locks the owning
// user row first, so for any user the primary count is min(1, wallets).
type WalletService struct {
	store    repositories.Store
	activity *activity
	log      *zap.Logger
	now      func() time.Time
}

func NewWalletService(store repositories.Store, publisher events.Publisher, log *zap.Logger) *WalletService {
	return &WalletService{
		store:    store,
		activity: newActivity(store, publisher, log),
		log:      log,
		now:      time.Now,
	}
}

// Connect links address to the user. The first wallet becomes primary.
func (s *WalletService) Connect(ctx context.Context, userID uuid.UUID, address, walletType string) (*models.Wallet, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if walletType == "" {
		return nil, invalidInput("wallet_type is required")
	}
	if !models.IsValidWalletType(walletType) {
		return nil, invalidInput("unknown wallet_type %q", walletType)
	}

	wallet := &models.Wallet{UserID: userID, Address: addr, WalletType: walletType}
	err = s.withUserLock(ctx, userID, func(tx repositories.Store) error {
		exists, err := tx.Wallets().ExistsAddress(ctx, userID, addr)
		if err != nil {
			return fmt.Errorf("check address: %w", err)
		}
		if exists {
			return fmt.Errorf("wallet already connected: %w", ErrConflict)
		}

		n, err := tx.Wallets().CountByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("count wallets: %w", err)
		}
		wallet.IsPrimary = n == 0

		if err := tx.Wallets().Create(ctx, wallet); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("wallet already connected: %w", ErrConflict)
			}
			return fmt.Errorf("create wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditWalletConnected,
		entityType: "wallet",
		entityID:   wallet.ID,
		event:      events.EventWalletConnected,
		meta: map[string]any{
			"address":     wallet.Address,
			"wallet_type": wallet.WalletType,
			"is_primary":  wallet.IsPrimary,
		},
	})
	return wallet, nil
}

// List returns the user's wallets, oldest first.
func (s *WalletService) List(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	wallets, err := s.store.Wallets().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return wallets, nil
}

func (s *WalletService) Primary(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallets, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range wallets {
		if wallets[i].IsPrimary {
			return &wallets[i], nil
		}
	}
	return nil, fmt.Errorf("primary wallet: %w", ErrNotFound)
}

// Disconnect removes a wallet. When it was primary, the earliest connected
// survivor is promoted in the same transaction.
func (s *WalletService) Disconnect(ctx context.Context, userID, walletID uuid.UUID) error {
	var (
		removed  *models.Wallet
		promoted *models.Wallet
	)
	err := s.withUserLock(ctx, userID, func(tx repositories.Store) error {
		w, err := tx.Wallets().GetForUser(ctx, userID, walletID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("wallet: %w", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get wallet: %w", err)
		}
		if err := tx.Wallets().Delete(ctx, userID, walletID); err != nil {
			return fmt.Errorf("delete wallet: %w", err)
		}
		removed = w

		if !w.IsPrimary {
			return nil
		}
		survivors, err := tx.Wallets().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		if len(survivors) == 0 {
			return nil
		}
		next := survivors[0]
		if err := tx.Wallets().SetPrimary(ctx, userID, next.ID, s.now()); err != nil {
			return fmt.Errorf("promote wallet: %w", err)
		}
		next.IsPrimary = true
		promoted = &next
		return nil
	})
	if err != nil {
		return err
	}

	meta := map[string]any{"address": removed.Address}
	if promoted != nil {
		meta["promoted_wallet_id"] = promoted.ID.String()
	}
	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditWalletDisconnected,
		entityType: "wallet",
		entityID:   removed.ID,
		event:      events.EventWalletDisconnected,
		meta:       meta,
	})
	return nil
}

// SetPrimary makes walletID the user's only primary wallet and returns the
// updated list.
func (s *WalletService) SetPrimary(ctx context.Context, userID, walletID uuid.UUID) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := s.withUserLock(ctx, userID, func(tx repositories.Store) error {
		if _, err := tx.Wallets().GetForUser(ctx, userID, walletID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("wallet: %w", ErrNotFound)
			}
			return fmt.Errorf("get wallet: %w", err)
		}
		if err := tx.Wallets().SetPrimary(ctx, userID, walletID, s.now()); err != nil {
			return fmt.Errorf("set primary: %w", err)
		}
		var err error
		wallets, err = tx.Wallets().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.record(ctx, activityEntry{
		userID:     userID,
		action:     models.AuditWalletPrimaryChanged,
		entityType: "wallet",
		entityID:   walletID,
		event:      events.EventWalletPrimaryChanged,
	})
	return wallets, nil
}

func (s *WalletService) withUserLock(ctx context.Context, userID uuid.UUID, fn func(tx repositories.Store) error) error {
	return s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Users().LockByID(ctx, userID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("user: %w", ErrNotFound)
			}
			return fmt.Errorf("lock user: %w", err)
		}
		return fn(tx)
	})
}
