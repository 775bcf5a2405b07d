package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
)

type authFixture struct {
	verifier   *mockVerifier
	revocation *mockRevocation
	tokens     *mockTokenCache
	profiles   *mockProfileCache
	sessions   *mockSessions
	users      *mockUsers
	repairs    *mockRepairs
	uc         *Authenticate
}

func newAuthFixture(users ...*domain.User) *authFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &authFixture{
		verifier:   &mockVerifier{},
		revocation: newMockRevocation(),
		tokens:     newMockTokenCache(),
		profiles:   newMockProfileCache(),
		sessions:   newMockSessions(),
		users:      newMockUsers(users...),
		repairs:    &mockRepairs{},
	}
	resolver := NewResolveRole(f.profiles, f.users, f.repairs, 30*time.Second, true, logger)
	f.uc = NewAuthenticate(f.verifier, f.revocation, f.tokens, resolver,
		f.sessions, f.users, 55*time.Minute, logger)
	return f
}

func verifiedIdentity(expiresIn time.Duration) *domain.DecodedIdentity {
	return &domain.DecodedIdentity{
		SubjectID: "subject-1",
		Email:     "alice@example.com",
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: time.Now().Add(expiresIn),
	}
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	f := newAuthFixture()

	identity, err := f.uc.Execute(context.Background(), "", "")

	assert.Nil(t, identity)
	assert.ErrorIs(t, err, domain.ErrTokenMissing)
}

func TestAuthenticate_RevokedTokenNeverServedFromCache(t *testing.T) {
	f := newAuthFixture()
	fp := domain.NewFingerprint("revoked-token")

	// Cached and revoked at the same time: revocation must win.
	f.tokens.entries[fp] = *verifiedIdentity(time.Hour)
	require.NoError(t, f.revocation.Mark(context.Background(), fp, time.Hour))

	identity, err := f.uc.Execute(context.Background(), "revoked-token", "")

	assert.Nil(t, identity)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
	assert.Zero(t, f.verifier.calls)
}

func TestAuthenticate_RevocationStoreDownFailsClosed(t *testing.T) {
	f := newAuthFixture()
	f.verifier.identity = verifiedIdentity(time.Hour)
	f.revocation.isErr = errors.New("connection refused")

	identity, err := f.uc.Execute(context.Background(), "some-token", "")

	assert.Nil(t, identity)
	assert.ErrorIs(t, err, domain.ErrRevocationUnavailable)
	assert.Zero(t, f.verifier.calls, "must not verify when revocation state is unknown")
}

func TestAuthenticate_CacheHitSkipsVerifier(t *testing.T) {
	f := newAuthFixture()
	fp := domain.NewFingerprint("cached-token")
	cached := *verifiedIdentity(time.Hour)
	cached.Role = domain.RoleAdmin
	cached.Source = domain.SourceClaim
	f.tokens.entries[fp] = cached

	identity, err := f.uc.Execute(context.Background(), "cached-token", "")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.Zero(t, f.verifier.calls)
	assert.Equal(t, []domain.Fingerprint{fp}, f.sessions.touched)
}

func TestAuthenticate_CacheMissVerifiesAndCaches(t *testing.T) {
	f := newAuthFixture()
	id := verifiedIdentity(2 * time.Hour)
	id.RoleClaim = domain.RoleAdmin
	f.verifier.identity = id
	fp := domain.NewFingerprint("fresh-token")

	identity, err := f.uc.Execute(context.Background(), "fresh-token", "cli/1.0")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.Equal(t, domain.SourceClaim, identity.Source)
	assert.Equal(t, 1, f.verifier.calls)

	cached, ok := f.tokens.entries[fp]
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, cached.Role)
	assert.Equal(t, 55*time.Minute, f.tokens.ttls[fp], "cache TTL capped at the configured maximum")

	require.Len(t, f.sessions.created, 1)
	assert.Equal(t, "cli/1.0", f.sessions.created[0].Device)
	assert.Equal(t, fp, f.sessions.created[0].Fingerprint)

	assert.Equal(t, []string{"subject-1"}, f.users.touched)
}

func TestAuthenticate_CacheTTLNeverOutlivesToken(t *testing.T) {
	f := newAuthFixture()
	id := verifiedIdentity(10 * time.Minute)
	id.RoleClaim = domain.RoleUser
	f.verifier.identity = id
	fp := domain.NewFingerprint("short-token")

	_, err := f.uc.Execute(context.Background(), "short-token", "")

	require.NoError(t, err)
	ttl := f.tokens.ttls[fp]
	assert.Greater(t, ttl, 9*time.Minute)
	assert.LessOrEqual(t, ttl, 10*time.Minute)
}

func TestAuthenticate_ExpiredTokenNotCached(t *testing.T) {
	f := newAuthFixture()
	f.verifier.identity = verifiedIdentity(-time.Minute)

	identity, err := f.uc.Execute(context.Background(), "stale-token", "")

	assert.Nil(t, identity)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.Empty(t, f.tokens.entries)
	assert.Empty(t, f.sessions.created)
}

func TestAuthenticate_TokenCacheDownFailsOpen(t *testing.T) {
	f := newAuthFixture()
	id := verifiedIdentity(time.Hour)
	id.RoleClaim = domain.RoleUser
	f.verifier.identity = id
	f.tokens.getErr = errors.New("connection refused")
	f.tokens.putErr = errors.New("connection refused")

	identity, err := f.uc.Execute(context.Background(), "some-token", "")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, identity.Role)
	assert.Equal(t, 1, f.verifier.calls)
}

func TestAuthenticate_VerifierRejection(t *testing.T) {
	f := newAuthFixture()
	f.verifier.err = domain.ErrTokenInvalid

	identity, err := f.uc.Execute(context.Background(), "bad-token", "")

	assert.Nil(t, identity)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.Empty(t, f.tokens.entries)
}

func TestAuthenticate_ExpiredCacheEntryIgnored(t *testing.T) {
	f := newAuthFixture()
	fp := domain.NewFingerprint("token")
	f.tokens.entries[fp] = *verifiedIdentity(-time.Second)
	id := verifiedIdentity(time.Hour)
	id.RoleClaim = domain.RoleUser
	f.verifier.identity = id

	identity, err := f.uc.Execute(context.Background(), "token", "")

	require.NoError(t, err)
	assert.Equal(t, 1, f.verifier.calls, "stale cache entry must fall through to verification")
	assert.Equal(t, domain.RoleUser, identity.Role)
}
