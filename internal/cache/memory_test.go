package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-analytics/internal/cache"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	got, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "k", []byte("abc"), time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStoreDeletePattern(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	keys := []string{
		"analytics:dashboard:org=1:aaa",
		"analytics:dashboard:org=1:bbb",
		"analytics:time_series:org=1:ticket_count:ccc",
		"analytics:dashboard:org=2:ddd",
	}
	for _, key := range keys {
		require.NoError(t, store.Set(ctx, key, []byte("v"), time.Minute))
	}

	deleted, err := store.DeletePattern(ctx, cache.OpPattern(cache.OpDashboard, 1))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	// Other operations and other organizations stay cached.
	got, err := store.Get(ctx, "analytics:time_series:org=1:ticket_count:ccc")
	require.NoError(t, err)
	require.NotNil(t, got)
	got, err = store.Get(ctx, "analytics:dashboard:org=2:ddd")
	require.NoError(t, err)
	require.NotNil(t, got)
	got, err = store.Get(ctx, "analytics:dashboard:org=1:aaa")
	require.NoError(t, err)
	require.Nil(t, got)
}
