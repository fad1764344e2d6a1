// Package memstore is an in-memory repositories.Store for tests. Transactions
// are serialised and roll back by restoring a snapshot taken when they began.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/shopspring/decimal"
)

type state struct {
	users    map[uuid.UUID]models.User
	tokens   map[string]models.VerificationToken
	sessions map[uuid.UUID]models.Session
	wallets  map[uuid.UUID]models.Wallet
	uploads  map[uuid.UUID]models.UploadRecord
	audit    []models.AuditLog
	seq      map[uuid.UUID]int64 // insertion order, breaks created_at ties
	next     int64
}

func newState() *state {
	return &state{
		users:    map[uuid.UUID]models.User{},
		tokens:   map[string]models.VerificationToken{},
		sessions: map[uuid.UUID]models.Session{},
		wallets:  map[uuid.UUID]models.Wallet{},
		uploads:  map[uuid.UUID]models.UploadRecord{},
		seq:      map[uuid.UUID]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.uploads {
		c.uploads[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	c.audit = append(c.audit, s.audit...)
	c.next = s.next
	return c
}

type db struct {
	mu   sync.Mutex // guards st
	txMu sync.Mutex // one transaction at a time
	st   *state
	now  func() time.Time
}

func (d *db) stamp(id uuid.UUID) {
	d.st.next++
	d.st.seq[id] = d.st.next
}

type Store struct {
	d    *db
	inTx bool
}

func New() *Store {
	return &Store{d: &db{st: newState(), now: time.Now}}
}

// SetClock overrides the clock used for created_at/updated_at defaults.
func (s *Store) SetClock(now func() time.Time) {
	s.d.mu.Lock()
	s.d.now = now
	s.d.mu.Unlock()
}

func (s *Store) Users() repositories.UserRepository       { return userRepo{s.d} }
func (s *Store) Tokens() repositories.TokenRepository     { return tokenRepo{s.d} }
func (s *Store) Sessions() repositories.SessionRepository { return sessionRepo{s.d} }
func (s *Store) Wallets() repositories.WalletRepository   { return walletRepo{s.d} }
func (s *Store) Uploads() repositories.UploadRepository   { return uploadRepo{s.d} }
func (s *Store) Audit() repositories.AuditRepository      { return auditRepo{s.d} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repositories.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	s.d.txMu.Lock()
	defer s.d.txMu.Unlock()

	s.d.mu.Lock()
	snapshot := s.d.st.clone()
	s.d.mu.Unlock()

	rollback := func() {
		s.d.mu.Lock()
		s.d.st = snapshot
		s.d.mu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
		if err != nil {
			rollback()
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&Store{d: s.d, inTx: true})
}

// ---- users ----

type userRepo struct{ d *db }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.st.users {
		if existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.d.now()
	u.UpdatedAt = u.CreatedAt
	r.d.st.users[u.ID] = *u
	r.d.stamp(u.ID)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.st.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, u := range r.d.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) LockByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r userRepo) Update(_ context.Context, u *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.st.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range r.d.st.users {
		if id != u.ID && existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	r.d.st.users[u.ID] = *u
	return nil
}

func (r userRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.st.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	r.d.st.users[id] = u
	return nil
}

func (r userRepo) MarkVerifiedByEmail(_ context.Context, email string, at time.Time) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for id, u := range r.d.st.users {
		if u.Email == email {
			u.EmailVerified = true
			u.UpdatedAt = at
			r.d.st.users[id] = u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.st.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.d.st.users, id)

	// ON DELETE CASCADE
	for sid, s := range r.d.st.sessions {
		if s.UserID == id {
			delete(r.d.st.sessions, sid)
		}
	}
	for wid, w := range r.d.st.wallets {
		if w.UserID == id {
			delete(r.d.st.wallets, wid)
		}
	}
	for uid, u := range r.d.st.uploads {
		if u.UserID == id {
			delete(r.d.st.uploads, uid)
		}
	}
	return nil
}

// ---- verification tokens ----

type tokenRepo struct{ d *db }

func (r tokenRepo) Create(_ context.Context, t *models.VerificationToken) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.st.tokens[t.Token]; ok {
		return repositories.ErrDuplicate
	}
	t.ID = uuid.New()
	t.CreatedAt = r.d.now()
	r.d.st.tokens[t.Token] = *t
	return nil
}

func (r tokenRepo) Take(_ context.Context, token, purpose string) (*models.VerificationToken, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	t, ok := r.d.st.tokens[token]
	if !ok || t.Purpose != purpose {
		return nil, repositories.ErrNotFound
	}
	delete(r.d.st.tokens, token)
	return &t, nil
}

func (r tokenRepo) DeleteByEmail(_ context.Context, email, purpose string) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var n int64
	for k, t := range r.d.st.tokens {
		if t.Email == email && t.Purpose == purpose {
			delete(r.d.st.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r tokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var n int64
	for k, t := range r.d.st.tokens {
		if t.Expired(now) {
			delete(r.d.st.tokens, k)
			n++
		}
	}
	return n, nil
}

// ---- sessions ----

type sessionRepo struct{ d *db }

func (r sessionRepo) Create(_ context.Context, s *models.Session) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.st.users[s.UserID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range r.d.st.sessions {
		if existing.Token == s.Token {
			return repositories.ErrDuplicate
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = r.d.now()
	r.d.st.sessions[s.ID] = *s
	return nil
}

func (r sessionRepo) GetByToken(_ context.Context, token string) (*models.Session, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, s := range r.d.st.sessions {
		if s.Token == token {
			return &s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r sessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	s, ok := r.d.st.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r sessionRepo) DeleteByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	s, ok := r.d.st.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	delete(r.d.st.sessions, id)
	return &s, nil
}

func (r sessionRepo) DeleteByUser(_ context.Context, userID uuid.UUID, keepID uuid.UUID) ([]models.Session, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var removed []models.Session
	for id, s := range r.d.st.sessions {
		if s.UserID == userID && id != keepID {
			delete(r.d.st.sessions, id)
			removed = append(removed, s)
		}
	}
	return removed, nil
}

func (r sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var n int64
	for id, s := range r.d.st.sessions {
		if s.Expired(now) {
			delete(r.d.st.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---- wallets ----

type walletRepo struct{ d *db }

func (r walletRepo) Create(_ context.Context, w *models.Wallet) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.st.users[w.UserID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range r.d.st.wallets {
		if existing.UserID == w.UserID && existing.Address == w.Address {
			return repositories.ErrDuplicate
		}
	}
	w.ID = uuid.New()
	w.CreatedAt = r.d.now()
	w.UpdatedAt = w.CreatedAt
	r.d.st.wallets[w.ID] = *w
	r.d.stamp(w.ID)
	return nil
}

func (r walletRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	wallets := []models.Wallet{}
	for _, w := range r.d.st.wallets {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool {
		if !wallets[i].CreatedAt.Equal(wallets[j].CreatedAt) {
			return wallets[i].CreatedAt.Before(wallets[j].CreatedAt)
		}
		return r.d.st.seq[wallets[i].ID] < r.d.st.seq[wallets[j].ID]
	})
	return wallets, nil
}

func (r walletRepo) GetForUser(_ context.Context, userID, id uuid.UUID) (*models.Wallet, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	w, ok := r.d.st.wallets[id]
	if !ok || w.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	return &w, nil
}

func (r walletRepo) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	n := 0
	for _, w := range r.d.st.wallets {
		if w.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r walletRepo) ExistsAddress(_ context.Context, userID uuid.UUID, address string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, w := range r.d.st.wallets {
		if w.UserID == userID && w.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (r walletRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	w, ok := r.d.st.wallets[id]
	if !ok || w.UserID != userID {
		return repositories.ErrNotFound
	}
	delete(r.d.st.wallets, id)
	return nil
}

func (r walletRepo) SetPrimary(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	target, ok := r.d.st.wallets[id]
	if !ok || target.UserID != userID {
		return repositories.ErrNotFound
	}
	for wid, w := range r.d.st.wallets {
		if w.UserID != userID {
			continue
		}
		primary := wid == id
		if w.IsPrimary != primary {
			w.IsPrimary = primary
			w.UpdatedAt = at
			r.d.st.wallets[wid] = w
		}
	}
	return nil
}

// ---- uploads ----

type uploadRepo struct{ d *db }

func (r uploadRepo) Create(_ context.Context, u *models.UploadRecord) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.st.users[u.UserID]; !ok {
		return repositories.ErrNotFound
	}
	for _, v := range []decimal.NullDecimal{
		u.BaseValue, u.CompletenessMultiplier, u.ScarcityMultiplier,
		u.DemandMultiplier, u.TotalValue, u.MonthlyYield,
	} {
		if !numericFits(v) {
			return repositories.ErrOutOfRange
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.d.now()
	u.UpdatedAt = u.CreatedAt
	r.d.st.uploads[u.ID] = *u
	r.d.stamp(u.ID)
	return nil
}

// Postgres NUMERIC limits: 131072 digits before the point, 16383 after.
const (
	numericMaxIntDigits  = 131072
	numericMaxFracDigits = 16383
)

func numericFits(v decimal.NullDecimal) bool {
	if !v.Valid {
		return true
	}
	if -v.Decimal.Exponent() > numericMaxFracDigits {
		return false
	}
	return len(v.Decimal.Abs().Truncate(0).String()) <= numericMaxIntDigits
}

func (r uploadRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.UploadRecord, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	uploads := []models.UploadRecord{}
	for _, u := range r.d.st.uploads {
		if u.UserID == userID {
			uploads = append(uploads, u)
		}
	}
	sort.Slice(uploads, func(i, j int) bool {
		if !uploads[i].CreatedAt.Equal(uploads[j].CreatedAt) {
			return uploads[i].CreatedAt.After(uploads[j].CreatedAt)
		}
		return r.d.st.seq[uploads[i].ID] > r.d.st.seq[uploads[j].ID]
	})
	return uploads, nil
}

func (r uploadRepo) GetForUser(_ context.Context, userID, id uuid.UUID) (*models.UploadRecord, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.st.uploads[id]
	if !ok || u.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r uploadRepo) DeleteForUser(_ context.Context, userID, id uuid.UUID) (uuid.UUID, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.st.uploads[id]
	if !ok || u.UserID != userID {
		return uuid.Nil, repositories.ErrNotFound
	}
	delete(r.d.st.uploads, id)
	return id, nil
}

func (r uploadRepo) SummaryByUser(_ context.Context, userID uuid.UUID) (*models.UploadSummary, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	s := &models.UploadSummary{TotalValue: decimal.Zero, MonthlyYield: decimal.Zero}
	for _, u := range r.d.st.uploads {
		if u.UserID != userID {
			continue
		}
		s.Count++
		if u.TotalValue.Valid {
			s.TotalValue = s.TotalValue.Add(u.TotalValue.Decimal)
		}
		if u.MonthlyYield.Valid {
			s.MonthlyYield = s.MonthlyYield.Add(u.MonthlyYield.Decimal)
		}
	}
	return s, nil
}

// ---- audit ----

type auditRepo struct{ d *db }

func (r auditRepo) Log(_ context.Context, entry models.AuditLog) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	entry.ID = uuid.New()
	entry.CreatedAt = r.d.now()
	r.d.st.audit = append(r.d.st.audit, entry)
	return nil
}

func (r auditRepo) ListByActor(_ context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	logs := []models.AuditLog{}
	for i := len(r.d.st.audit) - 1; i >= 0 && len(logs) < limit; i-- {
		e := r.d.st.audit[i]
		if e.ActorUserID != nil && *e.ActorUserID == userID {
			logs = append(logs, e)
		}
	}
	return logs, nil
}
