package cache_test

import (
	"context"
	"testing"

	"event-booking-engine/internal/cache"
	"event-booking-engine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availabilityCacheContract(t *testing.T, newCache func(t *testing.T) cache.AvailabilityCache) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		c := newCache(t)
		entry := cache.AvailabilityEntry{TicketTypeID: "tt-1", Total: 100, Booked: 30, Available: 70, Version: 3}

		written, err := c.Put(ctx, "ev-1", entry)
		require.NoError(t, err)
		assert.True(t, written)

		got, err := c.Get(ctx, "ev-1", "tt-1")
		require.NoError(t, err)
		assert.Equal(t, entry, got)
	})

	t.Run("Stale version is ignored", func(t *testing.T) {
		c := newCache(t)
		_, err := c.Put(ctx, "ev-1", cache.AvailabilityEntry{TicketTypeID: "tt-1", Total: 10, Booked: 5, Available: 5, Version: 8})
		require.NoError(t, err)

		written, err := c.Put(ctx, "ev-1", cache.AvailabilityEntry{TicketTypeID: "tt-1", Total: 10, Booked: 2, Available: 8, Version: 6})
		require.NoError(t, err)
		assert.False(t, written)

		got, err := c.Get(ctx, "ev-1", "tt-1")
		require.NoError(t, err)
		assert.Equal(t, 5, got.Available)
		assert.Equal(t, int64(8), got.Version)
	})

	t.Run("Failed - miss", func(t *testing.T) {
		c := newCache(t)

		_, err := c.Get(ctx, "ev-404", "tt-1")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)

		_, err = c.GetEvent(ctx, "ev-404")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("GetEvent and Invalidate", func(t *testing.T) {
		c := newCache(t)
		for _, id := range []string{"tt-b", "tt-a"} {
			_, err := c.Put(ctx, "ev-2", cache.AvailabilityEntry{TicketTypeID: id, Total: 5, Available: 5, Version: 1})
			require.NoError(t, err)
		}

		entries, err := c.GetEvent(ctx, "ev-2")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "tt-a", entries[0].TicketTypeID)

		require.NoError(t, c.Invalidate(ctx, "ev-2"))
		_, err = c.GetEvent(ctx, "ev-2")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})
}

func TestMemoryAvailabilityCache(t *testing.T) {
	availabilityCacheContract(t, func(*testing.T) cache.AvailabilityCache {
		return cache.NewMemoryAvailabilityCache()
	})
}

func TestRedisAvailabilityCache(t *testing.T) {
	rdb := testutil.NewTestRedis(t)

	availabilityCacheContract(t, func(t *testing.T) cache.AvailabilityCache {
		require.NoError(t, rdb.FlushDB(context.Background()).Err())
		return cache.NewRedisAvailabilityCache(rdb)
	})
}
