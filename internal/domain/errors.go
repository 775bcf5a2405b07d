package domain

import "errors"

// Token errors. All of these reject the request as unauthenticated.
var (
	ErrTokenMissing   = errors.New("bearer token missing")
	ErrTokenMalformed = errors.New("bearer token malformed")
	ErrTokenInvalid   = errors.New("bearer token invalid")
	ErrTokenExpired   = errors.New("bearer token expired")
	ErrTokenRevoked   = errors.New("bearer token revoked")
)

// External dependency errors. The revocation store is a correctness
// precondition, so its unavailability denies the request; the identity
// provider failing is likewise a hard rejection.
var (
	ErrProviderUnavailable   = errors.New("identity provider unavailable")
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	ErrStoreUnavailable      = errors.New("user store unavailable")
)

// Authorization errors.
var (
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrUnprovisioned         = errors.New("no provisioned account for identity")
	ErrSelfOperation         = errors.New("operation not allowed on own account")
)

// User management errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidRole  = errors.New("invalid role")
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Rate limiting errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)
