package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"auth-gateway/internal/domain"
)

// Authenticate turns a raw bearer token into an authorized identity.
//
// Order matters: the revocation check runs before the token cache so a
// revoked token can never be served from cache. The revocation store is
// fail-closed; the token cache is fail-open and only costs a provider
// round trip when it is down.
type Authenticate struct {
	verifier   domain.TokenVerifier
	revocation domain.RevocationStore
	tokens     domain.TokenCache
	resolver   *ResolveRole
	sessions   domain.SessionRegistry
	users      domain.UserRepository
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewAuthenticate creates the token authentication usecase.
func NewAuthenticate(
	verifier domain.TokenVerifier,
	revocation domain.RevocationStore,
	tokens domain.TokenCache,
	resolver *ResolveRole,
	sessions domain.SessionRegistry,
	users domain.UserRepository,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Authenticate {
	return &Authenticate{
		verifier:   verifier,
		revocation: revocation,
		tokens:     tokens,
		resolver:   resolver,
		sessions:   sessions,
		users:      users,
		cacheTTL:   cacheTTL,
		logger:     logger.With("component", "authenticate"),
	}
}

// Execute authenticates a bearer token. The device string is recorded on
// the session entry for diagnostics.
func (uc *Authenticate) Execute(ctx context.Context, token, device string) (*domain.DecodedIdentity, error) {
	if token == "" {
		return nil, domain.ErrTokenMissing
	}
	fp := domain.NewFingerprint(token)

	revoked, err := uc.revocation.IsRevoked(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRevocationUnavailable, err)
	}
	if revoked {
		uc.logger.Info("revoked token rejected", "fingerprint", fp.Short())
		return nil, domain.ErrTokenRevoked
	}

	now := time.Now()

	cached, found, err := uc.tokens.Get(ctx, fp)
	if err != nil {
		uc.logger.Warn("token cache read failed", "error", err)
	}
	if found && cached.ExpiresAt.After(now) {
		uc.touchSession(ctx, cached.SubjectID, fp)
		return cached, nil
	}

	identity, err := uc.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !identity.ExpiresAt.IsZero() && !identity.ExpiresAt.After(now) {
		return nil, domain.ErrTokenExpired
	}

	if err := uc.resolver.Execute(ctx, identity); err != nil {
		return nil, err
	}

	// Entries never outlive the token itself.
	ttl := uc.cacheTTL
	if remaining := identity.Remaining(now); remaining < ttl {
		ttl = remaining
	}
	if ttl > 0 {
		if err := uc.tokens.Put(ctx, fp, *identity, ttl); err != nil {
			uc.logger.Warn("token cache write failed", "error", err)
		}
	}

	uc.createSession(ctx, identity, fp, device, now)

	if err := uc.users.TouchLastLogin(ctx, identity.SubjectID); err != nil {
		uc.logger.Warn("last login touch failed",
			"subject_id", identity.SubjectID,
			"error", err)
	}

	uc.logger.Info("token verified",
		"subject_id", identity.SubjectID,
		"role", identity.Role,
		"source", identity.Source,
		"fingerprint", fp.Short())
	return identity, nil
}

// touchSession refreshes session activity. Best effort: a registry
// failure never rejects an otherwise valid request.
func (uc *Authenticate) touchSession(ctx context.Context, subjectID string, fp domain.Fingerprint) {
	if err := uc.sessions.Touch(ctx, subjectID, fp); err != nil {
		uc.logger.Warn("session touch failed",
			"subject_id", subjectID,
			"fingerprint", fp.Short(),
			"error", err)
	}
}

func (uc *Authenticate) createSession(ctx context.Context, identity *domain.DecodedIdentity, fp domain.Fingerprint, device string, now time.Time) {
	session := domain.Session{
		SubjectID:    identity.SubjectID,
		Fingerprint:  fp,
		Device:       device,
		CreatedAt:    now,
		LastActivity: now,
		TokenExpires: identity.ExpiresAt,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		uc.logger.Warn("session create failed",
			"subject_id", identity.SubjectID,
			"fingerprint", fp.Short(),
			"error", err)
	}
}
