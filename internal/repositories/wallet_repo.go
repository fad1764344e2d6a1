package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
)

type WalletRepo struct {
	db DBTX
}

func NewWalletRepo(db DBTX) *WalletRepo {
	return &WalletRepo{db: db}
}

const walletColumns = `id, user_id, address, wallet_type, is_primary, created_at, updated_at`

func (r *WalletRepo) Create(ctx context.Context, w *models.Wallet) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO wallets (user_id, address, wallet_type, is_primary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, w.UserID, w.Address, w.WalletType, w.IsPrimary).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	return mapErr(err)
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+walletColumns+`
		FROM wallets WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := []models.Wallet{}
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.WalletType, &w.IsPrimary, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (r *WalletRepo) GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&w.ID, &w.UserID, &w.Address, &w.WalletType, &w.IsPrimary, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

func (r *WalletRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM wallets WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *WalletRepo) ExistsAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1 AND address = $2)
	`, userID, address).Scan(&exists)
	return exists, err
}

func (r *WalletRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WalletRepo) SetPrimary(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE wallets SET is_primary = (id = $2), updated_at = $3
		WHERE user_id = $1 AND (is_primary OR id = $2)
		  AND EXISTS (SELECT 1 FROM wallets WHERE id = $2 AND user_id = $1)
	`, userID, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
