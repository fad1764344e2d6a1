package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "sess:"

// SessionCache keeps resolved sessions in Redis under both their token and
// their id so either credential form resolves without a database round trip.
type SessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

type cachedSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func tokenKey(token string) string { return sessionPrefix + "t:" + token }
func idKey(id uuid.UUID) string    { return sessionPrefix + "i:" + id.String() }

// ByToken returns nil, nil on a miss.
func (c *SessionCache) ByToken(ctx context.Context, token string) (*models.Session, error) {
	s, err := c.get(ctx, tokenKey(token))
	if s != nil {
		s.Token = token
	}
	return s, err
}

// ByID returns nil, nil on a miss.
func (c *SessionCache) ByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return c.get(ctx, idKey(id))
}

func (c *SessionCache) Put(ctx context.Context, s *models.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(cachedSession{ID: s.ID, UserID: s.UserID, ExpiresAt: s.ExpiresAt})
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, idKey(s.ID), data, ttl)
	if s.Token != "" {
		pipe.Set(ctx, tokenKey(s.Token), data, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *SessionCache) Evict(ctx context.Context, sessions ...models.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(sessions)*2)
	for _, s := range sessions {
		keys = append(keys, idKey(s.ID))
		if s.Token != "" {
			keys = append(keys, tokenKey(s.Token))
		}
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *SessionCache) get(ctx context.Context, key string) (*models.Session, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cs cachedSession
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	return &models.Session{ID: cs.ID, UserID: cs.UserID, ExpiresAt: cs.ExpiresAt}, nil
}
