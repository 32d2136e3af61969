package mocks

import (
	"context"

	"event-booking-engine/internal/model"

	"github.com/stretchr/testify/mock"
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) AddTicketType(ctx context.Context, eventID string, req model.AddTicketTypeRequest) (*model.TicketType, error) {
	args := m.Called(ctx, eventID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketType), args.Error(1)
}

func (m *EventServiceMock) CancelEvent(ctx context.Context, eventID string) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) ListEvents(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) ListUpcomingEvents(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) ListEventsByCategory(ctx context.Context, category model.EventCategory, upcomingOnly bool) ([]*model.Event, error) {
	args := m.Called(ctx, category, upcomingOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) GetAvailability(ctx context.Context, eventID string) (model.EventAvailability, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(model.EventAvailability), args.Error(1)
}

func (m *EventServiceMock) GetDisplayAvailability(ctx context.Context, eventID string) (model.EventAvailability, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(model.EventAvailability), args.Error(1)
}

func (m *EventServiceMock) SyncAvailability(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}
