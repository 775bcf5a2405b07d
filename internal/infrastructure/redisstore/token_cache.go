package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-gateway/internal/domain"
)

const tokenKeyPrefix = "token:"

// TokenCache caches verified decoded identities by token fingerprint.
// Implements domain.TokenCache. Entries never outlive the token they
// describe; callers cap the TTL at the token's remaining validity.
type TokenCache struct {
	client *redis.Client
}

// NewTokenCache creates a Redis-backed token cache.
func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

// Get returns the cached identity for fp, if present.
func (c *TokenCache) Get(ctx context.Context, fp domain.Fingerprint) (*domain.DecodedIdentity, bool, error) {
	raw, err := c.client.Get(ctx, tokenKeyPrefix+fp.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read token cache: %w", err)
	}

	var identity domain.DecodedIdentity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, false, fmt.Errorf("corrupt token cache entry: %w", err)
	}
	return &identity, true, nil
}

// Put stores identity under fp for ttl. A non-positive ttl is refused
// silently; caching an already-expired token would be a correctness bug.
func (c *TokenCache) Put(ctx context.Context, fp domain.Fingerprint, identity domain.DecodedIdentity, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	if err := c.client.Set(ctx, tokenKeyPrefix+fp.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}
