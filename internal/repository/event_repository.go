package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"event-booking-engine/internal/model"
	apperrors "event-booking-engine/pkg/app_errors"
)

// EventRepository 活動與票種只存在記憶體，票種計數器是庫存唯一的權威來源
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]*model.Event, error)
	ListByCategory(ctx context.Context, category model.EventCategory) ([]*model.Event, error)
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

type EventRepositoryImpl struct {
	mu     sync.RWMutex
	events map[string]*model.Event
}

func NewEventRepository() EventRepository {
	return &EventRepositoryImpl{
		events: make(map[string]*model.Event),
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.ID] = event
	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	return r.filter(ctx, func(*model.Event) bool { return true })
}

func (r *EventRepositoryImpl) ListUpcoming(ctx context.Context, now time.Time) ([]*model.Event, error) {
	return r.filter(ctx, func(e *model.Event) bool { return e.IsBookable(now) })
}

func (r *EventRepositoryImpl) ListByCategory(ctx context.Context, category model.EventCategory) ([]*model.Event, error) {
	return r.filter(ctx, func(e *model.Event) bool { return e.Category == category })
}

// FindByID 回傳同一個 *Event，呼叫端直接對其票種做 reserve/release
func (r *EventRepositoryImpl) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return e, nil
}

// filter returns matching events ordered by event date.
func (r *EventRepositoryImpl) filter(ctx context.Context, match func(*model.Event) bool) ([]*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*model.Event, 0)
	for _, e := range r.events {
		if match(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].EventDate.Before(events[j].EventDate)
	})
	return events, nil
}
