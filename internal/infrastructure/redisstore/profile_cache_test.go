package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
)

func TestProfileCache_PutGetInvalidate(t *testing.T) {
	client, _ := setupClient(t)
	cache := NewProfileCache(client)
	ctx := context.Background()

	profile := domain.CachedProfile{
		SubjectID: "subject-1",
		Email:     "alice@example.com",
		Role:      domain.RoleAdmin,
		UserID:    "internal-1",
	}

	require.NoError(t, cache.Put(ctx, "subject-1", profile, 30*time.Second))

	got, found, err := cache.Get(ctx, "subject-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, profile, *got)

	require.NoError(t, cache.Invalidate(ctx, "subject-1"))

	_, found, err = cache.Get(ctx, "subject-1")
	require.NoError(t, err)
	assert.False(t, found, "invalidation must take effect immediately")
}

func TestProfileCache_ShortTTLBoundsStaleness(t *testing.T) {
	client, mr := setupClient(t)
	cache := NewProfileCache(client)
	ctx := context.Background()

	profile := domain.CachedProfile{SubjectID: "subject-1", Role: domain.RoleUser}
	require.NoError(t, cache.Put(ctx, "subject-1", profile, 30*time.Second))

	mr.FastForward(31 * time.Second)

	_, found, err := cache.Get(ctx, "subject-1")
	require.NoError(t, err)
	assert.False(t, found, "stale role data must vanish within the cache TTL")
}

func TestProfileCache_InvalidateMissingIsNoop(t *testing.T) {
	client, _ := setupClient(t)
	cache := NewProfileCache(client)

	assert.NoError(t, cache.Invalidate(context.Background(), "never-cached"))
}
