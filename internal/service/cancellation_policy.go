package service

import (
	"fmt"
	"time"

	"event-booking-engine/internal/model"
	apperrors "event-booking-engine/pkg/app_errors"
)

const DefaultCancellationCutoff = 24 * time.Hour

// CancellationPolicy 決定一筆 booking 現在能否取消
type CancellationPolicy interface {
	Check(booking *model.Booking, eventDate, now time.Time) error
}

type deadlinePolicy struct {
	cutoff time.Duration
}

// NewCancellationPolicy 已確認且距離活動開始超過 cutoff 才可取消
func NewCancellationPolicy(cutoff time.Duration) CancellationPolicy {
	if cutoff < 0 {
		cutoff = DefaultCancellationCutoff
	}
	return deadlinePolicy{cutoff: cutoff}
}

func (p deadlinePolicy) Check(booking *model.Booking, eventDate, now time.Time) error {
	if booking.Status != model.BookingStatusConfirmed {
		return fmt.Errorf("%w: %w", apperrors.ErrCancellationNotAllowed, &apperrors.InvalidBookingStateError{
			BookingID: booking.ID,
			From:      string(booking.Status),
			To:        string(model.BookingStatusCancelled),
		})
	}
	if !booking.CanBeCancelled(now, eventDate, p.cutoff) {
		return fmt.Errorf("%w: booking %s must be cancelled at least %s before the event",
			apperrors.ErrCancellationNotAllowed, booking.ID, p.cutoff)
	}
	return nil
}
