package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/config"
	"github.com/lifevault/backend/internal/events"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"github.com/lifevault/backend/internal/repositories/memstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	kind string
	to   string
	link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) SendVerification(_ context.Context, to, link string) error {
	return m.record("verify", to, link)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	return m.record("reset", to, link)
}

func (m *fakeMailer) record(kind, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, link: link})
	return nil
}

// lastToken returns the token of the most recent mail of kind sent to to.
func (m *fakeMailer) lastToken(t *testing.T, kind, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind && m.sent[i].to == to {
			_, tok, ok := strings.Cut(m.sent[i].link, "token=")
			require.True(t, ok, "link without token: %s", m.sent[i].link)
			return tok
		}
	}
	t.Fatalf("no %s mail sent to %s", kind, to)
	return ""
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	store     *memstore.Store
	mailer    *fakeMailer
	publisher *recordingPublisher
	clock     *testClock
	cfg       *config.Config

	tokens   *TokenLedger
	sessions *SessionService
	auth     *AuthService
	users    *UserService
	wallets  *WalletService
	uploads  *UploadService
}

func testConfig() *config.Config {
	return &config.Config{
		AppURL:          "https://app.test",
		JWTSecret:       "test-secret",
		BcryptCost:      bcrypt.MinCost,
		SessionTTL:      720 * time.Hour,
		SessionCacheTTL: 5 * time.Minute,
		VerifyTokenTTL:  24 * time.Hour,
		ResetTokenTTL:   time.Hour,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memstore.New(),
		mailer:    &fakeMailer{},
		publisher: &recordingPublisher{},
		clock:     &testClock{t: time.Now().UTC()},
		cfg:       testConfig(),
	}
	env.store.SetClock(env.clock.Now)
	log := zap.NewNop()

	env.tokens = NewTokenLedger(env.store, env.cfg)
	env.tokens.now = env.clock.Now
	env.sessions = NewSessionService(env.store, nil, env.cfg, log)
	env.sessions.now = env.clock.Now
	env.auth = NewAuthService(env.store, env.tokens, env.sessions, env.mailer, env.publisher, env.cfg, log)
	env.auth.now = env.clock.Now
	env.users = NewUserService(env.store, env.tokens, env.sessions, env.mailer, env.publisher, env.cfg, log)
	env.users.now = env.clock.Now
	env.wallets = NewWalletService(env.store, env.publisher, log)
	env.wallets.now = env.clock.Now
	env.uploads = NewUploadService(env.store, env.publisher, log)
	return env
}

func (e *testEnv) register(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Email: email, Password: "password123"})
	require.NoError(t, err)
	return u
}

func walletAddr(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

func assertPrimaryInvariant(t *testing.T, env *testEnv, userID uuid.UUID) {
	t.Helper()
	wallets, err := env.wallets.List(context.Background(), userID)
	require.NoError(t, err)
	want := 0
	if len(wallets) > 0 {
		want = 1
	}
	require.Equal(t, want, models.CountPrimary(wallets), "wallets: %+v", wallets)
}

// hookedStore runs a one-shot callback right after selected reads return,
// letting a test land a concurrent write inside a service call.
type hookedStore struct {
	repositories.Store
	afterSessionByToken func()
	afterUserByID       func()
}

func fire(fn *func()) {
	if f := *fn; f != nil {
		*fn = nil
		f()
	}
}

func (h *hookedStore) Sessions() repositories.SessionRepository {
	return hookedSessions{SessionRepository: h.Store.Sessions(), h: h}
}

func (h *hookedStore) Users() repositories.UserRepository {
	return hookedUsers{UserRepository: h.Store.Users(), h: h}
}

type hookedSessions struct {
	repositories.SessionRepository
	h *hookedStore
}

func (r hookedSessions) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	s, err := r.SessionRepository.GetByToken(ctx, token)
	fire(&r.h.afterSessionByToken)
	return s, err
}

type hookedUsers struct {
	repositories.UserRepository
	h *hookedStore
}

func (r hookedUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.UserRepository.GetByID(ctx, id)
	fire(&r.h.afterUserByID)
	return u, err
}
