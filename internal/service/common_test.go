package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/model"
	paymentMocks "event-booking-engine/internal/payment/mocks"
	"event-booking-engine/internal/queue"
	"event-booking-engine/internal/repository"
	"event-booking-engine/internal/service"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("booking store down")

// flakyBookingRepository 讓接下來 n 次 Update 失敗，其餘照常委派
type flakyBookingRepository struct {
	repository.BookingRepository
	failing atomic.Int32
}

func (r *flakyBookingRepository) failNextUpdates(n int32) {
	r.failing.Store(n)
}

func (r *flakyBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	if r.failing.Add(-1) >= 0 {
		return errStoreDown
	}
	r.failing.Store(0)
	return r.BookingRepository.Update(ctx, booking)
}

type bookingFixture struct {
	clock    *clock.Manual
	gateway  *paymentMocks.GatewayMock
	store    *flakyBookingRepository
	bookings repository.BookingRepository
	events   repository.EventRepository
	users    repository.UserRepository
	queue    queue.BookingEventQueue
	svc      service.BookingService

	event *model.Event
	user  *model.User
	vip   *model.TicketType
	std   *model.TicketType
}

// newBookingFixture 建立一個距今 eventIn 的活動，含 VIP(150) 與 STANDARD(25) 兩個票種
func newBookingFixture(t *testing.T, eventIn time.Duration, vipQty, stdQty int) *bookingFixture {
	t.Helper()
	ctx := context.Background()

	store := &flakyBookingRepository{BookingRepository: repository.NewMemoryBookingRepository()}
	f := &bookingFixture{
		clock:    clock.NewManual(baseTime),
		gateway:  &paymentMocks.GatewayMock{},
		store:    store,
		bookings: store,
		events:   repository.NewEventRepository(),
		users:    repository.NewMemoryUserRepository(),
		queue:    queue.NewMemoryBookingEventQueue(64),
	}
	t.Cleanup(func() { _ = f.queue.Close() })

	user, err := f.users.Create(ctx, model.NewUser("amy@example.com", "Amy", "Chen", "", model.UserRoleCustomer, baseTime))
	require.NoError(t, err)
	f.user = user

	event := model.NewEvent("Spring Live", "", model.CategoryConcert, model.Venue{Name: "Taipei Arena", Capacity: 100}, baseTime.Add(eventIn), baseTime)
	f.vip = model.NewTicketType(event.ID, "VIP", "", model.TierVIP, 150, vipQty)
	f.std = model.NewTicketType(event.ID, "Standard", "", model.TierStandard, 25, stdQty)
	event.AddTicketType(f.vip)
	event.AddTicketType(f.std)
	_, err = f.events.Create(ctx, event)
	require.NoError(t, err)
	f.event = event

	f.svc = service.NewBookingService(
		f.bookings, f.events, f.users, f.gateway,
		service.NewCancellationPolicy(service.DefaultCancellationCutoff),
		f.queue, f.clock,
	)
	return f
}

func (f *bookingFixture) request(tickets ...model.TicketRequest) model.ReserveBookingRequest {
	return model.ReserveBookingRequest{UserID: f.user.ID, EventID: f.event.ID, Tickets: tickets}
}

func ticketsOf(tt *model.TicketType, qty int) model.TicketRequest {
	return model.TicketRequest{TicketTypeID: tt.ID, Quantity: qty}
}

// drainEvents 讀出目前隊列中的所有事件類型
func drainEvents(t *testing.T, q queue.BookingEventQueue) []model.BookingEventType {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	deliveries, err := q.SubscribeBookingEvents(ctx)
	require.NoError(t, err)

	var types []model.BookingEventType
	for d := range deliveries {
		types = append(types, d.Data.Type)
		d.Ack()
	}
	return types
}
