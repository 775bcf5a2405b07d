package domain

import (
	"context"
	"time"
)

// TokenVerifier validates a bearer token against the identity provider
// and extracts the base identity claims. Verification is pure: it never
// mutates provider or local state.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*DecodedIdentity, error)
}

// RevocationStore is the keyed TTL registry of revoked token
// fingerprints. It is consulted before any other check; a store error
// must be treated as a denial by callers.
type RevocationStore interface {
	Mark(ctx context.Context, fp Fingerprint, ttl time.Duration) error
	IsRevoked(ctx context.Context, fp Fingerprint) (bool, error)
}

// TokenCache maps a token fingerprint to its verified, role-enriched
// identity for the token's remaining lifetime. Unavailability is a
// performance problem only; callers fall through to verification.
type TokenCache interface {
	Get(ctx context.Context, fp Fingerprint) (*DecodedIdentity, bool, error)
	Put(ctx context.Context, fp Fingerprint, identity DecodedIdentity, ttl time.Duration) error
}

// ProfileCache holds the short-TTL user profile projection used by the
// role resolver when the token carries no role claim.
type ProfileCache interface {
	Get(ctx context.Context, subjectID string) (*CachedProfile, bool, error)
	Put(ctx context.Context, subjectID string, profile CachedProfile, ttl time.Duration) error
	Invalidate(ctx context.Context, subjectID string) error
}

// SessionRegistry tracks active (subject, fingerprint) pairs grouped
// per subject to support logout-everywhere.
type SessionRegistry interface {
	Create(ctx context.Context, session Session) error
	Touch(ctx context.Context, subjectID string, fp Fingerprint) error
	ListActive(ctx context.Context, subjectID string) ([]Session, error)
	Remove(ctx context.Context, subjectID string, fp Fingerprint) error
	RemoveAll(ctx context.Context, subjectID string) error
}

// UserRepository is the durable system of record for role assignments.
type UserRepository interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	List(ctx context.Context, offset, limit int) ([]*User, error)
	UpdateRole(ctx context.Context, subjectID string, role Role, updatedBy string) error
	TouchLastLogin(ctx context.Context, subjectID string) error
	Delete(ctx context.Context, subjectID string) error
}

// ClaimChannel writes role claims into the provider's tamper-proof
// metadata so future tokens resolve without any local lookup.
type ClaimChannel interface {
	SetRoleClaim(ctx context.Context, subjectID string, role Role) error
}

// IdentityAdmin exposes the provider's administrative identity
// operations used by user management.
type IdentityAdmin interface {
	CreateIdentity(ctx context.Context, email, password, displayName string, role Role) (string, error)
	DeleteIdentity(ctx context.Context, subjectID string) error
}

// RepairScheduler enqueues an asynchronous claim-channel repair for a
// subject. ScheduleRevoke additionally retries the revocation of the
// subject's sessions. Scheduling never blocks the request path.
type RepairScheduler interface {
	Schedule(subjectID string)
	ScheduleRevoke(subjectID string)
}
