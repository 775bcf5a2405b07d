package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"auth-gateway/internal/domain"
)

// ManageSessions lists and revokes a subject's active sessions.
//
// Revocation marks each fingerprint in the revocation store for the
// token's remaining lifetime before the registry entry is removed. The
// marks are the security guarantee, so a mark failure aborts the whole
// operation; registry cleanup after a successful mark is best effort.
type ManageSessions struct {
	sessions   domain.SessionRegistry
	revocation domain.RevocationStore
	profiles   domain.ProfileCache
	logger     *slog.Logger
}

// NewManageSessions creates the session management usecase.
func NewManageSessions(
	sessions domain.SessionRegistry,
	revocation domain.RevocationStore,
	profiles domain.ProfileCache,
	logger *slog.Logger,
) *ManageSessions {
	return &ManageSessions{
		sessions:   sessions,
		revocation: revocation,
		profiles:   profiles,
		logger:     logger.With("component", "manage_sessions"),
	}
}

// List returns the subject's active sessions.
func (uc *ManageSessions) List(ctx context.Context, subjectID string) ([]domain.Session, error) {
	return uc.sessions.ListActive(ctx, subjectID)
}

// RevokeAll revokes every active session for a subject and returns the
// number of tokens marked.
func (uc *ManageSessions) RevokeAll(ctx context.Context, subjectID string) (int, error) {
	active, err := uc.sessions.ListActive(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	marked := 0
	for _, session := range active {
		ttl := session.TokenExpires.Sub(now)
		if ttl <= 0 {
			continue
		}
		if err := uc.revocation.Mark(ctx, session.Fingerprint, ttl); err != nil {
			return marked, fmt.Errorf("%w: %w", domain.ErrRevocationUnavailable, err)
		}
		marked++
	}

	if err := uc.sessions.RemoveAll(ctx, subjectID); err != nil {
		uc.logger.Warn("session registry cleanup failed",
			"subject_id", subjectID,
			"error", err)
	}
	if err := uc.profiles.Invalidate(ctx, subjectID); err != nil {
		uc.logger.Warn("profile cache invalidation failed",
			"subject_id", subjectID,
			"error", err)
	}

	uc.logger.Info("sessions revoked",
		"subject_id", subjectID,
		"marked", marked,
		"total", len(active))
	return marked, nil
}

// RevokeOne revokes a single session identified by its fingerprint.
func (uc *ManageSessions) RevokeOne(ctx context.Context, subjectID string, fp domain.Fingerprint) error {
	active, err := uc.sessions.ListActive(ctx, subjectID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, session := range active {
		if session.Fingerprint != fp {
			continue
		}
		if ttl := session.TokenExpires.Sub(now); ttl > 0 {
			if err := uc.revocation.Mark(ctx, fp, ttl); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrRevocationUnavailable, err)
			}
		}
		if err := uc.sessions.Remove(ctx, subjectID, fp); err != nil {
			uc.logger.Warn("session registry cleanup failed",
				"subject_id", subjectID,
				"fingerprint", fp.Short(),
				"error", err)
		}
		uc.logger.Info("session revoked",
			"subject_id", subjectID,
			"fingerprint", fp.Short())
		return nil
	}
	return domain.ErrSessionNotFound
}
