package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore is the subset of storage.RedisClient a RevocationCache needs.
// Declaring it here, rather than importing internal/storage, keeps auth
// free of a dependency on a concrete storage backend.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RevocationCache records logged-out token IDs until their natural expiry,
// so a bearer token presented after /api/logout is rejected even though it
// has not yet expired.
type RevocationCache struct {
	store redisStore
}

// NewRevocationCache returns a RevocationCache backed by store.
func NewRevocationCache(store redisStore) *RevocationCache {
	return &RevocationCache{store: store}
}

func revocationKey(jti string) string {
	return "rconsole:revoked:" + jti
}

// Revoke marks jti as revoked for the remainder of ttl (the token's
// remaining lifetime — no point outliving the token it guards).
func (c *RevocationCache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.store.Set(ctx, revocationKey(jti), "1", ttl)
}

// IsRevoked reports whether jti has been revoked.
func (c *RevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := c.store.Get(ctx, revocationKey(jti))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
