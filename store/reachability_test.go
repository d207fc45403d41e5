package store_test

import (
	"context"
	"testing"

	"github.com/apxfed/apx/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachabilityNewOriginIsNotSuppressed(t *testing.T) {
	db := setupTestDB(t)
	rs := store.NewReachabilityStore(db)

	suppressed, err := rs.IsSuppressed(context.Background(), "https://unknown.example")
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestReachabilityMarkFailureUnreachableSuppresses(t *testing.T) {
	db := setupTestDB(t)
	rs := store.NewReachabilityStore(db)
	ctx := context.Background()

	require.NoError(t, rs.MarkFailure(ctx, "https://down.example", true))

	suppressed, err := rs.IsSuppressed(ctx, "https://down.example")
	require.NoError(t, err)
	assert.True(t, suppressed)
}

func TestReachabilityMarkFailureTransientDoesNotSuppress(t *testing.T) {
	db := setupTestDB(t)
	rs := store.NewReachabilityStore(db)
	ctx := context.Background()

	require.NoError(t, rs.MarkFailure(ctx, "https://flaky.example", false))

	suppressed, err := rs.IsSuppressed(ctx, "https://flaky.example")
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestReachabilityMarkSuccessClearsSuppression(t *testing.T) {
	db := setupTestDB(t)
	rs := store.NewReachabilityStore(db)
	ctx := context.Background()

	require.NoError(t, rs.MarkFailure(ctx, "https://recovering.example", true))
	require.NoError(t, rs.MarkSuccess(ctx, "https://recovering.example"))

	suppressed, err := rs.IsSuppressed(ctx, "https://recovering.example")
	require.NoError(t, err)
	assert.False(t, suppressed)
}
