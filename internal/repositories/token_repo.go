package repositories

import (
	"context"
	"time"

	"github.com/lifevault/backend/internal/models"
)

type TokenRepo struct {
	db DBTX
}

func NewTokenRepo(db DBTX) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Create(ctx context.Context, t *models.VerificationToken) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO verification_tokens (email, token, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, t.Email, t.Token, t.Purpose, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	return mapErr(err)
}

// Take is the single-use gate: of two concurrent callers only one gets the row.
func (r *TokenRepo) Take(ctx context.Context, token, purpose string) (*models.VerificationToken, error) {
	var t models.VerificationToken
	err := r.db.QueryRow(ctx, `
		DELETE FROM verification_tokens
		WHERE token = $1 AND purpose = $2
		RETURNING id, email, token, purpose, expires_at, created_at
	`, token, purpose).Scan(&t.ID, &t.Email, &t.Token, &t.Purpose, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *TokenRepo) DeleteByEmail(ctx context.Context, email, purpose string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_tokens WHERE email = $1 AND purpose = $2`, email, purpose)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
