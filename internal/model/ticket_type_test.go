package model_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"event-booking-engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketType(total int) *model.TicketType {
	return model.NewTicketType("event-1", "General", "", model.TierStandard, 50, total)
}

func TestTicketType_Reserve(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		tt := newTicketType(10)

		labels, ok := tt.ReserveSeats(3)

		require.True(t, ok)
		assert.Equal(t, []string{"STANDARD-1", "STANDARD-2", "STANDARD-3"}, labels)
		assert.Equal(t, 7, tt.AvailableQuantity())
		assert.Equal(t, 3, tt.BookedCount())
	})

	t.Run("Success - exactly remaining", func(t *testing.T) {
		tt := newTicketType(2)

		assert.True(t, tt.Reserve(2))
		assert.Equal(t, 0, tt.AvailableQuantity())
	})

	t.Run("Failed - insufficient leaves counters untouched", func(t *testing.T) {
		tt := newTicketType(2)
		before := tt.Snapshot()

		assert.False(t, tt.Reserve(3))
		assert.Equal(t, before, tt.Snapshot())
	})

	t.Run("Failed - non positive quantity", func(t *testing.T) {
		tt := newTicketType(2)

		assert.False(t, tt.Reserve(0))
		assert.False(t, tt.Reserve(-1))
		assert.Equal(t, 2, tt.AvailableQuantity())
	})
}

func TestTicketType_Release(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		tt := newTicketType(5)
		require.True(t, tt.Reserve(4))

		tt.Release(3)

		assert.Equal(t, 4, tt.AvailableQuantity())
	})

	t.Run("Floors at zero", func(t *testing.T) {
		tt := newTicketType(5)
		require.True(t, tt.Reserve(2))

		tt.Release(10)

		assert.Equal(t, 0, tt.BookedCount())
		assert.Equal(t, 5, tt.AvailableQuantity())
	})

	t.Run("Zero and negative are no-ops", func(t *testing.T) {
		tt := newTicketType(5)
		require.True(t, tt.Reserve(2))
		version := tt.Snapshot().Version

		tt.Release(0)
		tt.Release(-3)

		assert.Equal(t, 3, tt.AvailableQuantity())
		assert.Equal(t, version, tt.Snapshot().Version)
	})

	t.Run("Seat labels are not reused", func(t *testing.T) {
		tt := newTicketType(1)
		first, ok := tt.ReserveSeats(1)
		require.True(t, ok)
		tt.Release(1)

		second, ok := tt.ReserveSeats(1)
		require.True(t, ok)
		assert.NotEqual(t, first, second)
	})
}

func TestTicketType_ConcurrentReserve_NoOversell(t *testing.T) {
	const (
		capacity   = 100
		goroutines = 500
	)
	tt := newTicketType(capacity)

	var (
		wg      sync.WaitGroup
		success atomic.Int64
		mu      sync.Mutex
		seats   = make(map[string]struct{})
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels, ok := tt.ReserveSeats(1)
			if !ok {
				return
			}
			success.Add(1)
			mu.Lock()
			for _, l := range labels {
				seats[l] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), success.Load())
	assert.Len(t, seats, capacity)
	assert.Equal(t, 0, tt.AvailableQuantity())
	assert.Equal(t, capacity, tt.BookedCount())
}

func TestTicketType_ConcurrentReserveRelease(t *testing.T) {
	tt := newTicketType(20)
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tt.Reserve(2) {
				assert.GreaterOrEqual(t, tt.AvailableQuantity(), 0)
				tt.Release(2)
			}
		}()
	}
	wg.Wait()

	s := tt.Snapshot()
	assert.Equal(t, 0, s.Booked)
	assert.Equal(t, 20, s.Available)
	assert.Equal(t, s.Total-s.Booked, tt.AvailableQuantity())
}
