package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-gateway/internal/domain"
)

const revocationKeyPrefix = "revoked:"

// RevocationStore is the Redis-backed registry of revoked token
// fingerprints. Implements domain.RevocationStore.
//
// A mark expires together with the token it blocks, so the registry
// never grows beyond the set of still-valid revoked tokens.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore creates a Redis-backed revocation store.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Mark inserts a revocation for fp valid for ttl. A non-positive ttl
// means the token has already expired and needs no mark.
func (s *RevocationStore) Mark(ctx context.Context, fp domain.Fingerprint, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	key := revocationKeyPrefix + fp.String()
	if err := s.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether fp carries an unexpired revocation mark.
func (s *RevocationStore) IsRevoked(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	key := revocationKeyPrefix + fp.String()
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
