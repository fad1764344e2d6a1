package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
	"github.com/shopspring/decimal"
)

type UploadRepo struct {
	db DBTX
}

func NewUploadRepo(db DBTX) *UploadRepo {
	return &UploadRepo{db: db}
}

// NUMERIC columns travel as text both ways so no precision is lost.
const uploadColumns = `id, user_id, file_name, file_size, file_type, encryption_hash, status,
	base_value::text, completeness_multiplier::text, scarcity_multiplier::text,
	demand_multiplier::text, total_value::text, monthly_yield::text,
	metadata, created_at, updated_at`

func (r *UploadRepo) Create(ctx context.Context, u *models.UploadRecord) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO upload_history (
			user_id, file_name, file_size, file_type, encryption_hash, status,
			base_value, completeness_multiplier, scarcity_multiplier,
			demand_multiplier, total_value, monthly_yield, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7::text::numeric, $8::text::numeric, $9::text::numeric,
			$10::text::numeric, $11::text::numeric, $12::text::numeric, $13
		)
		RETURNING `+uploadColumns,
		u.UserID, u.FileName, u.FileSize, u.FileType, u.EncryptionHash, u.Status,
		decimalArg(u.BaseValue), decimalArg(u.CompletenessMultiplier), decimalArg(u.ScarcityMultiplier),
		decimalArg(u.DemandMultiplier), decimalArg(u.TotalValue), decimalArg(u.MonthlyYield), u.Metadata,
	)
	created, err := scanUpload(row)
	if err != nil {
		return mapErr(err)
	}
	*u = *created
	return nil
}

func (r *UploadRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UploadRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+uploadColumns+`
		FROM upload_history WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := []models.UploadRecord{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, rows.Err()
}

func (r *UploadRepo) GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.UploadRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+uploadColumns+` FROM upload_history WHERE id = $1 AND user_id = $2
	`, id, userID)
	u, err := scanUpload(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UploadRepo) DeleteForUser(ctx context.Context, userID, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := r.db.QueryRow(ctx, `
		DELETE FROM upload_history WHERE id = $1 AND user_id = $2 RETURNING id
	`, id, userID).Scan(&deleted)
	if err != nil {
		return uuid.Nil, mapErr(err)
	}
	return deleted, nil
}

func (r *UploadRepo) SummaryByUser(ctx context.Context, userID uuid.UUID) (*models.UploadSummary, error) {
	var (
		s            models.UploadSummary
		total, yield string
	)
	err := r.db.QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(total_value), 0)::text, COALESCE(sum(monthly_yield), 0)::text
		FROM upload_history WHERE user_id = $1
	`, userID).Scan(&s.Count, &total, &yield)
	if err != nil {
		return nil, err
	}
	if s.TotalValue, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_value sum: %w", err)
	}
	if s.MonthlyYield, err = decimal.NewFromString(yield); err != nil {
		return nil, fmt.Errorf("parse monthly_yield sum: %w", err)
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.UploadRecord, error) {
	var (
		u                                    models.UploadRecord
		base, completeness, scarcity, demand *string
		total, yield                         *string
	)
	err := row.Scan(
		&u.ID, &u.UserID, &u.FileName, &u.FileSize, &u.FileType, &u.EncryptionHash, &u.Status,
		&base, &completeness, &scarcity, &demand, &total, &yield,
		&u.Metadata, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	targets := []struct {
		src *string
		dst *decimal.NullDecimal
	}{
		{base, &u.BaseValue},
		{completeness, &u.CompletenessMultiplier},
		{scarcity, &u.ScarcityMultiplier},
		{demand, &u.DemandMultiplier},
		{total, &u.TotalValue},
		{yield, &u.MonthlyYield},
	}
	for _, t := range targets {
		if *t.dst, err = parseNullDecimal(t.src); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func parseNullDecimal(src *string) (decimal.NullDecimal, error) {
	if src == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*src)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse numeric %q: %w", *src, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func decimalArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
