package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/apxfed/apx/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorCacheMissThenHit(t *testing.T) {
	db := setupTestDB(t)
	cache := store.NewActorCache(db, 10, time.Hour)

	_, ok := cache.Get("https://example.social/users/alice")
	assert.False(t, ok)

	raw := map[string]any{"id": "https://example.social/users/alice", "type": "Person"}
	require.NoError(t, cache.Put(context.Background(), "https://example.social/users/alice", raw))

	got, ok := cache.Get("https://example.social/users/alice")
	require.True(t, ok)
	assert.Equal(t, "Person", got["type"])
}

func TestActorCacheExpiresAfterTTL(t *testing.T) {
	db := setupTestDB(t)
	cache := store.NewActorCache(db, 10, -time.Second) // already expired

	raw := map[string]any{"id": "https://example.social/users/bob", "type": "Person"}
	require.NoError(t, cache.Put(context.Background(), "https://example.social/users/bob", raw))

	_, ok := cache.Get("https://example.social/users/bob")
	assert.False(t, ok)
}

func TestActorCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	db := setupTestDB(t)
	cache := store.NewActorCache(db, 2, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "a", map[string]any{"id": "a"}))
	require.NoError(t, cache.Put(ctx, "b", map[string]any{"id": "b"}))
	// touch "a" so "b" becomes least-recently-used
	_, _ = cache.Get("a")
	require.NoError(t, cache.Put(ctx, "c", map[string]any{"id": "c"}))

	_, aOK := cache.Get("a")
	assert.True(t, aOK)
	_, cOK := cache.Get("c")
	assert.True(t, cOK)
}

func TestActorCacheInvalidateForcesReread(t *testing.T) {
	db := setupTestDB(t)
	cache := store.NewActorCache(db, 10, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "https://example.social/users/carol", map[string]any{"id": "https://example.social/users/carol"}))
	cache.Invalidate("https://example.social/users/carol")

	got, ok := cache.Get("https://example.social/users/carol")
	require.True(t, ok, "invalidated entry still readable from the persisted row")
	assert.Equal(t, "https://example.social/users/carol", got["id"])
}
