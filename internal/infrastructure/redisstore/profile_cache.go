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

const profileKeyPrefix = "profile:"

// ProfileCache caches user profile projections by subject id with a
// deliberately short TTL: it bounds how long a role change can stay
// invisible to requests that resolve outside the claim channel.
// Implements domain.ProfileCache.
type ProfileCache struct {
	client *redis.Client
}

// NewProfileCache creates a Redis-backed profile cache.
func NewProfileCache(client *redis.Client) *ProfileCache {
	return &ProfileCache{client: client}
}

// Get returns the cached profile for subjectID, if present.
func (c *ProfileCache) Get(ctx context.Context, subjectID string) (*domain.CachedProfile, bool, error) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+subjectID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read profile cache: %w", err)
	}

	var profile domain.CachedProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, false, fmt.Errorf("corrupt profile cache entry: %w", err)
	}
	return &profile, true, nil
}

// Put stores profile for ttl.
func (c *ProfileCache) Put(ctx context.Context, subjectID string, profile domain.CachedProfile, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := c.client.Set(ctx, profileKeyPrefix+subjectID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write profile cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached profile immediately. Called on every
// security-critical mutation so role changes take effect on the next
// request instead of after TTL expiry.
func (c *ProfileCache) Invalidate(ctx context.Context, subjectID string) error {
	if err := c.client.Del(ctx, profileKeyPrefix+subjectID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate profile cache: %w", err)
	}
	return nil
}
