package model

import "time"

// BookingEventType 訂單生命週期事件類型
type BookingEventType string

const (
	BookingEventReserved  BookingEventType = "booking.reserved"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventFailed    BookingEventType = "booking.failed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
	BookingEventRefunded  BookingEventType = "booking.refunded"
)

// BookingEvent 發布到 queue 的訊息，consumer 依 EventID 重新整理可售數量
type BookingEvent struct {
	Type        BookingEventType `json:"type"`
	BookingID   string           `json:"booking_id"`
	EventID     string           `json:"event_id"`
	UserID      string           `json:"user_id"`
	Status      BookingStatus    `json:"status"`
	TotalAmount float64          `json:"total_amount"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

func NewBookingEvent(t BookingEventType, b *Booking, now time.Time) BookingEvent {
	return BookingEvent{
		Type:        t,
		BookingID:   b.ID,
		EventID:     b.EventID,
		UserID:      b.UserID,
		Status:      b.Status,
		TotalAmount: b.TotalAmount,
		OccurredAt:  now,
	}
}
