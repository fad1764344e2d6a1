package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgStore struct {
	db DBTX
}

func NewPgStore(db DBTX) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Users() UserRepository       { return NewUserRepo(s.db) }
func (s *PgStore) Tokens() TokenRepository     { return NewTokenRepo(s.db) }
func (s *PgStore) Sessions() SessionRepository { return NewSessionRepo(s.db) }
func (s *PgStore) Wallets() WalletRepository   { return NewWalletRepo(s.db) }
func (s *PgStore) Uploads() UploadRepository   { return NewUploadRepo(s.db) }
func (s *PgStore) Audit() AuditRepository      { return NewAuditRepo(s.db) }

// WithTx runs fn in a transaction, or in a savepoint when s is already
// transactional. fn's error rolls back; a panic rolls back and re-panics.
func (s *PgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&PgStore{db: tx})
	})
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrNotFound)
		case pgNumericOutOfRange:
			return fmt.Errorf("%s: %w", pgErr.Message, ErrOutOfRange)
		}
	}
	return err
}
