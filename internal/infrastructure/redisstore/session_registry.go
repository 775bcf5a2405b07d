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

const sessionKeyPrefix = "session:"

// SessionRegistry tracks active sessions as one Redis hash per subject,
// keyed by token fingerprint. Implements domain.SessionRegistry.
//
// The whole hash expires after the registry TTL; sessions are
// best-effort bookkeeping, not an authorization input, so losing the
// group only costs logout-everywhere coverage for already-dead tokens.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRegistry creates a Redis-backed session registry whose
// groups expire after ttl.
func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{client: client, ttl: ttl}
}

// Create records a session in the subject's group and refreshes the
// group expiry.
func (r *SessionRegistry) Create(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := sessionKeyPrefix + session.SubjectID
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, session.Fingerprint.String(), raw)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Touch updates the session's last-activity timestamp. A missing
// session is not an error; the registry may have expired underneath a
// still-valid token.
func (r *SessionRegistry) Touch(ctx context.Context, subjectID string, fp domain.Fingerprint) error {
	key := sessionKeyPrefix + subjectID

	raw, err := r.client.HGet(ctx, key, fp.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return fmt.Errorf("corrupt session entry: %w", err)
	}

	session.LastActivity = time.Now()
	updated, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.client.HSet(ctx, key, fp.String(), updated).Err(); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// ListActive returns every session in the subject's group. Corrupt
// entries are skipped rather than failing the whole listing.
func (r *SessionRegistry) ListActive(ctx context.Context, subjectID string) ([]domain.Session, error) {
	entries, err := r.client.HGetAll(ctx, sessionKeyPrefix+subjectID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, raw := range entries {
		var session domain.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Remove deletes a single session from the subject's group.
func (r *SessionRegistry) Remove(ctx context.Context, subjectID string, fp domain.Fingerprint) error {
	if err := r.client.HDel(ctx, sessionKeyPrefix+subjectID, fp.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// RemoveAll deletes the subject's whole session group.
func (r *SessionRegistry) RemoveAll(ctx context.Context, subjectID string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+subjectID).Err(); err != nil {
		return fmt.Errorf("failed to remove sessions: %w", err)
	}
	return nil
}
