package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
)

type SessionRepo struct {
	db DBTX
}

func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, user_id, session_token, user_agent, ip, expires_at, created_at`

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (user_id, session_token, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.UserID, s.Token, s.UserAgent, s.IP, s.ExpiresAt).Scan(&s.ID, &s.CreatedAt)
	return mapErr(err)
}

func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.scanOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_token = $1`, token)
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.scanOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

func (r *SessionRepo) DeleteByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.scanOne(ctx, `DELETE FROM sessions WHERE id = $1 RETURNING `+sessionColumns, id)
}

func (r *SessionRepo) DeleteByUser(ctx context.Context, userID uuid.UUID, keepID uuid.UUID) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM sessions WHERE user_id = $1 AND id <> $2
		RETURNING `+sessionColumns,
		userID, keepID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Token, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepo) scanOne(ctx context.Context, sql string, arg any) (*models.Session, error) {
	var s models.Session
	err := r.db.QueryRow(ctx, sql, arg).Scan(&s.ID, &s.UserID, &s.Token, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}
