package service_test

import (
	"context"
	"testing"
	"time"

	"event-booking-engine/internal/cache"
	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/model"
	"event-booking-engine/internal/repository"
	"event-booking-engine/internal/service"
	apperrors "event-booking-engine/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEventService(t *testing.T) (service.EventService, cache.AvailabilityCache, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(baseTime)
	availability := cache.NewMemoryAvailabilityCache()
	return service.NewEventService(repository.NewEventRepository(), availability, clk), availability, clk
}

func createEventRequest() model.CreateEventRequest {
	return model.CreateEventRequest{
		Name:      "Jazz Night",
		Category:  model.CategoryConcert,
		Venue:     model.Venue{Name: "Legacy Taipei", City: "Taipei", Capacity: 1200},
		EventDate: baseTime.Add(7 * 24 * time.Hour),
	}
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, _, _ := setupEventService(t)

		event, err := svc.CreateEvent(ctx, createEventRequest())

		require.NoError(t, err)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, model.EventStatusUpcoming, event.Status())
		assert.Equal(t, baseTime, event.CreatedAt)

		got, err := svc.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Same(t, event, got)
	})

	t.Run("Failed - date in the past", func(t *testing.T) {
		svc, _, _ := setupEventService(t)
		req := createEventRequest()
		req.EventDate = baseTime.Add(-time.Hour)

		_, err := svc.CreateEvent(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Failed - missing name", func(t *testing.T) {
		svc, _, _ := setupEventService(t)
		req := createEventRequest()
		req.Name = ""

		_, err := svc.CreateEvent(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestEventService_AddTicketType(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, availability, _ := setupEventService(t)
		event, err := svc.CreateEvent(ctx, createEventRequest())
		require.NoError(t, err)

		tt, err := svc.AddTicketType(ctx, event.ID, model.AddTicketTypeRequest{
			Name: "Early Bird", Tier: model.TierEarlyBird, Price: 80, Quantity: 100,
		})

		require.NoError(t, err)
		assert.Equal(t, 100, tt.AvailableQuantity())
		assert.Equal(t, event.ID, tt.EventID)
		assert.Equal(t, 100, event.AvailableCapacity())

		entry, err := availability.Get(ctx, event.ID, tt.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, entry.Available)
	})

	t.Run("Failed - zero quantity", func(t *testing.T) {
		svc, _, _ := setupEventService(t)
		event, err := svc.CreateEvent(ctx, createEventRequest())
		require.NoError(t, err)

		_, err = svc.AddTicketType(ctx, event.ID, model.AddTicketTypeRequest{
			Name: "Free", Tier: model.TierStandard, Price: 0, Quantity: 0,
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Empty(t, event.TicketTypes())
	})

	t.Run("Failed - ErrEventNotFound", func(t *testing.T) {
		svc, _, _ := setupEventService(t)

		_, err := svc.AddTicketType(ctx, "missing", model.AddTicketTypeRequest{
			Name: "VIP", Tier: model.TierVIP, Price: 10, Quantity: 1,
		})

		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})
}

func TestEventService_CancelEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupEventService(t)
	event, err := svc.CreateEvent(ctx, createEventRequest())
	require.NoError(t, err)

	cancelled, err := svc.CancelEvent(ctx, event.ID)

	require.NoError(t, err)
	assert.Equal(t, model.EventStatusCancelled, cancelled.Status())

	upcoming, err := svc.ListUpcomingEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	all, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEventService_ListUpcomingEvents(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := setupEventService(t)

	soon := createEventRequest()
	soon.EventDate = baseTime.Add(time.Hour)
	later := createEventRequest()
	later.Name = "Later"
	_, err := svc.CreateEvent(ctx, later)
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, soon)
	require.NoError(t, err)

	events, err := svc.ListUpcomingEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Jazz Night", events[0].Name)

	clk.Advance(2 * time.Hour)
	events, err = svc.ListUpcomingEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Later", events[0].Name)
}

func TestEventService_ListEventsByCategory(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := setupEventService(t)

	soon := createEventRequest()
	soon.Name = "Soon"
	soon.EventDate = baseTime.Add(time.Hour)
	later := createEventRequest()
	later.Name = "Later"
	talk := createEventRequest()
	talk.Name = "Keynote"
	talk.Category = model.CategoryConference
	for _, req := range []model.CreateEventRequest{later, soon, talk} {
		_, err := svc.CreateEvent(ctx, req)
		require.NoError(t, err)
	}

	t.Run("Success", func(t *testing.T) {
		events, err := svc.ListEventsByCategory(ctx, model.CategoryConcert, false)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "Soon", events[0].Name)
		assert.Equal(t, "Later", events[1].Name)
	})

	t.Run("Success - upcoming only", func(t *testing.T) {
		clk.Advance(2 * time.Hour)
		t.Cleanup(func() { clk.Set(baseTime) })

		events, err := svc.ListEventsByCategory(ctx, model.CategoryConcert, true)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Later", events[0].Name)
	})

	t.Run("Failed - ErrInvalidInput", func(t *testing.T) {
		_, err := svc.ListEventsByCategory(ctx, "OPERA", false)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestEventService_Availability(t *testing.T) {
	ctx := context.Background()

	t.Run("live counters", func(t *testing.T) {
		svc, _, _ := setupEventService(t)
		event, err := svc.CreateEvent(ctx, createEventRequest())
		require.NoError(t, err)
		vip, err := svc.AddTicketType(ctx, event.ID, model.AddTicketTypeRequest{Name: "VIP", Tier: model.TierVIP, Price: 300, Quantity: 10})
		require.NoError(t, err)
		_, err = svc.AddTicketType(ctx, event.ID, model.AddTicketTypeRequest{Name: "GA", Tier: model.TierStandard, Price: 50, Quantity: 40})
		require.NoError(t, err)
		require.True(t, vip.Reserve(4))

		got, err := svc.GetAvailability(ctx, event.ID)

		require.NoError(t, err)
		assert.Equal(t, model.AvailabilitySourceLive, got.Source)
		assert.Equal(t, 46, got.TotalAvailable)
		require.Len(t, got.TicketTypes, 2)
		assert.Equal(t, 4, got.TicketTypes[0].Booked)
	})

	t.Run("display availability follows sync", func(t *testing.T) {
		svc, _, _ := setupEventService(t)
		event, err := svc.CreateEvent(ctx, createEventRequest())
		require.NoError(t, err)
		vip, err := svc.AddTicketType(ctx, event.ID, model.AddTicketTypeRequest{Name: "VIP", Tier: model.TierVIP, Price: 300, Quantity: 10})
		require.NoError(t, err)

		require.True(t, vip.Reserve(3))
		stale, err := svc.GetDisplayAvailability(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AvailabilitySourceCache, stale.Source)
		assert.Equal(t, 10, stale.TotalAvailable)

		require.NoError(t, svc.SyncAvailability(ctx, event.ID))
		fresh, err := svc.GetDisplayAvailability(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, fresh.TotalAvailable)
	})

	t.Run("display availability on cache miss", func(t *testing.T) {
		svc, availability, _ := setupEventService(t)
		event, err := svc.CreateEvent(ctx, createEventRequest())
		require.NoError(t, err)
		vip, err := svc.AddTicketType(ctx, event.ID, model.AddTicketTypeRequest{Name: "VIP", Tier: model.TierVIP, Price: 300, Quantity: 10})
		require.NoError(t, err)
		require.True(t, vip.Reserve(1))
		require.NoError(t, availability.Invalidate(ctx, event.ID))

		got, err := svc.GetDisplayAvailability(ctx, event.ID)

		require.NoError(t, err)
		assert.Equal(t, model.AvailabilitySourceCache, got.Source)
		assert.Equal(t, 9, got.TotalAvailable)
	})

	t.Run("Failed - ErrEventNotFound", func(t *testing.T) {
		svc, _, _ := setupEventService(t)

		_, err := svc.GetAvailability(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

		err = svc.SyncAvailability(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})
}
