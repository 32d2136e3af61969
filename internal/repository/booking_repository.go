package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"event-booking-engine/internal/model"
	apperrors "event-booking-engine/pkg/app_errors"
)

type BookingRepository interface {
	Save(ctx context.Context, booking *model.Booking) error
	Update(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Booking, error)
	FindByUserIDAndStatus(ctx context.Context, userID string, status model.BookingStatus) ([]*model.Booking, error)
	FindByEventID(ctx context.Context, eventID string) ([]*model.Booking, error)
}

// MemoryBookingRepository 以 map 保存 booking，存入與讀出都做深拷貝
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
}

func NewMemoryBookingRepository() BookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]*model.Booking),
	}
}

func (r *MemoryBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.ID]; exists {
		return fmt.Errorf("booking %s already saved", booking.ID)
	}
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *MemoryBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.ID]; !exists {
		return apperrors.ErrBookingNotFound
	}
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *MemoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryBookingRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Booking, error) {
	return r.filter(ctx, func(b *model.Booking) bool { return b.UserID == userID })
}

func (r *MemoryBookingRepository) FindByUserIDAndStatus(ctx context.Context, userID string, status model.BookingStatus) ([]*model.Booking, error) {
	return r.filter(ctx, func(b *model.Booking) bool { return b.UserID == userID && b.Status == status })
}

func (r *MemoryBookingRepository) FindByEventID(ctx context.Context, eventID string) ([]*model.Booking, error) {
	return r.filter(ctx, func(b *model.Booking) bool { return b.EventID == eventID })
}

// filter returns matching bookings, newest first.
func (r *MemoryBookingRepository) filter(ctx context.Context, match func(*model.Booking) bool) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Booking, 0)
	for _, b := range r.bookings {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
