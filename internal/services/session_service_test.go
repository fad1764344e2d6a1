package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu      sync.Mutex
	byToken map[string]models.Session
	ttls    map[uuid.UUID]time.Duration
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{byToken: map[string]models.Session{}, ttls: map[uuid.UUID]time.Duration{}}
}

func (c *mapCache) ByToken(_ context.Context, token string) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byToken[token]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &s, nil
}

func (c *mapCache) ByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.byToken {
		if s.ID == id {
			c.hits++
			return &s, nil
		}
	}
	return nil, nil
}

func (c *mapCache) Put(_ context.Context, s *models.Session, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byToken[s.Token] = *s
	c.ttls[s.ID] = ttl
	return nil
}

func (c *mapCache) Evict(_ context.Context, sessions ...models.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range sessions {
		delete(c.byToken, s.Token)
	}
	return nil
}

func TestResolveUnknownOrEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.sessions.Resolve(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.sessions.ResolveID(ctx, uuid.Nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.sessions.ResolveID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveExpiredSessionDeletesRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	sess, err := env.sessions.Create(ctx, u.ID, "ua", "127.0.0.1")
	require.NoError(t, err)

	env.clock.Advance(env.cfg.SessionTTL)
	_, err = env.sessions.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.store.Sessions().GetByID(ctx, sess.ID)
	assert.Error(t, err)
}

func TestResolveUsesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := newMapCache()
	env.sessions = NewSessionService(env.store, cache, env.cfg, zap.NewNop())
	env.sessions.now = env.clock.Now
	u := env.register(t, "alice@example.com")

	sess, err := env.sessions.Create(ctx, u.ID, "", "")
	require.NoError(t, err)

	_, err = env.sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Zero(t, cache.hits)
	assert.Equal(t, env.cfg.SessionCacheTTL, cache.ttls[sess.ID])

	got, err := env.sessions.ResolveID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, 1, cache.hits)

	require.NoError(t, env.sessions.Revoke(ctx, sess.ID))
	_, err = env.sessions.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCacheTTLNeverOutlivesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := newMapCache()
	env.sessions = NewSessionService(env.store, cache, env.cfg, zap.NewNop())
	env.sessions.now = env.clock.Now
	u := env.register(t, "alice@example.com")

	sess, err := env.sessions.Create(ctx, u.ID, "", "")
	require.NoError(t, err)
	env.clock.Advance(env.cfg.SessionTTL - time.Minute)

	_, err = env.sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cache.ttls[sess.ID])
}

func TestRevokeAllKeepsCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	keep, err := env.sessions.Create(ctx, u.ID, "", "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := env.sessions.Create(ctx, u.ID, "", "")
		require.NoError(t, err)
	}

	n, err := env.sessions.RevokeAll(ctx, u.ID, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = env.sessions.Resolve(ctx, keep.Token)
	assert.NoError(t, err)

	// revoking an unknown session is a no-op
	assert.NoError(t, env.sessions.Revoke(ctx, uuid.New()))
}

func TestPurgeExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice@example.com")

	_, err := env.sessions.Create(ctx, u.ID, "", "")
	require.NoError(t, err)
	env.clock.Advance(env.cfg.SessionTTL + time.Hour)
	_, err = env.sessions.Create(ctx, u.ID, "", "")
	require.NoError(t, err)

	n, err := env.sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRevokeDuringResolveDoesNotRepopulateCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := newMapCache()
	u := env.register(t, "alice@example.com")

	plain := NewSessionService(env.store, cache, env.cfg, zap.NewNop())
	plain.now = env.clock.Now
	sess, err := plain.Create(ctx, u.ID, "", "")
	require.NoError(t, err)

	hooked := &hookedStore{Store: env.store}
	hooked.afterSessionByToken = func() {
		require.NoError(t, plain.Revoke(ctx, sess.ID))
	}
	racing := NewSessionService(hooked, cache, env.cfg, zap.NewNop())
	racing.now = env.clock.Now

	_, err = racing.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = plain.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = plain.ResolveID(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, cache.byToken)
}
