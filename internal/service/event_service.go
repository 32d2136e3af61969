package service

import (
	"context"
	"errors"
	"fmt"

	"event-booking-engine/internal/cache"
	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/model"
	"event-booking-engine/internal/repository"
	apperrors "event-booking-engine/pkg/app_errors"
	"event-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	AddTicketType(ctx context.Context, eventID string, req model.AddTicketTypeRequest) (*model.TicketType, error)
	// CancelEvent 只改活動狀態，既有訂單不受影響
	CancelEvent(ctx context.Context, eventID string) (*model.Event, error)
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
	ListUpcomingEvents(ctx context.Context) ([]*model.Event, error)
	// upcomingOnly 時只保留目前可訂票的活動
	ListEventsByCategory(ctx context.Context, category model.EventCategory, upcomingOnly bool) ([]*model.Event, error)
	// GetAvailability 直接讀票種計數器
	GetAvailability(ctx context.Context, eventID string) (model.EventAvailability, error)
	// GetDisplayAvailability 從快取讀取，快取沒有時先同步一次
	GetDisplayAvailability(ctx context.Context, eventID string) (model.EventAvailability, error)
	// SyncAvailability 把目前計數器寫進快取，舊版本不覆蓋新版本
	SyncAvailability(ctx context.Context, eventID string) error
}

type EventServiceImpl struct {
	repo  repository.EventRepository
	cache cache.AvailabilityCache
	clock clock.Clock
	log   *zap.Logger
}

func NewEventService(repo repository.EventRepository, availabilityCache cache.AvailabilityCache, clk clock.Clock) EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &EventServiceImpl{
		repo:  repo,
		cache: availabilityCache,
		clock: clk,
		log:   logger.WithComponent("service"),
	}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !req.EventDate.After(now) {
		return nil, fmt.Errorf("%w: event_date must be in the future", apperrors.ErrInvalidInput)
	}

	event := model.NewEvent(req.Name, req.Description, req.Category, req.Venue, req.EventDate, now)
	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	s.log.Info("event created", zap.String("event_id", created.ID), zap.Time("event_date", created.EventDate))
	return created, nil
}

func (s *EventServiceImpl) AddTicketType(ctx context.Context, eventID string, req model.AddTicketTypeRequest) (*model.TicketType, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tt := model.NewTicketType(event.ID, req.Name, req.Description, req.Tier, req.Price, req.Quantity)
	event.AddTicketType(tt)
	s.log.Info("ticket type added",
		zap.String("event_id", event.ID),
		zap.String("ticket_type_id", tt.ID),
		zap.String("tier", string(tt.Tier)),
		zap.Int("quantity", req.Quantity),
	)

	if err := s.SyncAvailability(ctx, event.ID); err != nil {
		s.log.Warn("sync availability failed", zap.String("event_id", event.ID), zap.Error(err))
	}
	return tt, nil
}

func (s *EventServiceImpl) CancelEvent(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event.SetStatus(model.EventStatusCancelled)
	s.log.Info("event cancelled", zap.String("event_id", event.ID))
	return event, nil
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	return s.repo.FindByID(ctx, eventID)
}

func (s *EventServiceImpl) ListEvents(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) ListUpcomingEvents(ctx context.Context) ([]*model.Event, error) {
	return s.repo.ListUpcoming(ctx, s.clock.Now())
}

func (s *EventServiceImpl) ListEventsByCategory(ctx context.Context, category model.EventCategory, upcomingOnly bool) ([]*model.Event, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", apperrors.ErrInvalidInput, category)
	}
	events, err := s.repo.ListByCategory(ctx, category)
	if err != nil || !upcomingOnly {
		return events, err
	}

	now := s.clock.Now()
	upcoming := events[:0]
	for _, e := range events {
		if e.IsBookable(now) {
			upcoming = append(upcoming, e)
		}
	}
	return upcoming, nil
}

func (s *EventServiceImpl) GetAvailability(ctx context.Context, eventID string) (model.EventAvailability, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return model.EventAvailability{}, err
	}
	return event.LiveAvailability(), nil
}

func (s *EventServiceImpl) GetDisplayAvailability(ctx context.Context, eventID string) (model.EventAvailability, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return model.EventAvailability{}, err
	}

	entries, err := s.cache.GetEvent(ctx, event.ID)
	if errors.Is(err, cache.ErrCacheMiss) || (err == nil && len(entries) < len(event.TicketTypes())) {
		if err := s.SyncAvailability(ctx, event.ID); err != nil {
			return model.EventAvailability{}, err
		}
		entries, err = s.cache.GetEvent(ctx, event.ID)
	}
	if err != nil {
		s.log.Warn("display availability falling back to live counters", zap.String("event_id", event.ID), zap.Error(err))
		return event.LiveAvailability(), nil
	}

	out := model.EventAvailability{
		EventID:     event.ID,
		TicketTypes: make([]model.TicketAvailability, 0, len(entries)),
		Source:      model.AvailabilitySourceCache,
	}
	for _, e := range entries {
		out.TicketTypes = append(out.TicketTypes, model.TicketAvailability{
			TicketTypeID: e.TicketTypeID,
			Total:        e.Total,
			Booked:       e.Booked,
			Available:    e.Available,
		})
		out.TotalAvailable += e.Available
	}
	return out, nil
}

func (s *EventServiceImpl) SyncAvailability(ctx context.Context, eventID string) error {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	for _, tt := range event.TicketTypes() {
		snap := tt.Snapshot()
		written, err := s.cache.Put(ctx, event.ID, cache.AvailabilityEntry{
			TicketTypeID: tt.ID,
			Total:        snap.Total,
			Booked:       snap.Booked,
			Available:    snap.Available,
			Version:      snap.Version,
		})
		if err != nil {
			return fmt.Errorf("sync availability %s/%s: %w", event.ID, tt.ID, err)
		}
		if written {
			s.log.Debug("availability synced",
				zap.String("event_id", event.ID),
				zap.String("ticket_type_id", tt.ID),
				zap.Int("available", snap.Available),
				zap.Int64("version", snap.Version),
			)
		}
	}
	return nil
}
