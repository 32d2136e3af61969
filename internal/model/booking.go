package model

import (
	"fmt"
	"time"

	apperrors "event-booking-engine/pkg/app_errors"
)

// BookingStatus 訂單狀態類型
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// IsValid 驗證狀態是否有效
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusFailed, BookingStatusRefunded:
		return true
	}
	return false
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusFailed},
	BookingStatusConfirmed: {BookingStatusCancelled},
	BookingStatusCancelled: {BookingStatusRefunded},
	BookingStatusFailed:    {},
	BookingStatusRefunded:  {},
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	allowed, ok := bookingTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Booking 訂單模型，一次訂票的所有票券與付款
type Booking struct {
	ID          string        `json:"id" db:"id"`
	UserID      string        `json:"user_id" db:"user_id"`
	EventID     string        `json:"event_id" db:"event_id"`
	Tickets     []Ticket      `json:"tickets" db:"-"`
	TotalAmount float64       `json:"total_amount" db:"total_amount"`
	Status      BookingStatus `json:"status" db:"status"`
	Payment     *Payment      `json:"payment,omitempty" db:"-"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

func NewBooking(userID, eventID string, now time.Time) *Booking {
	return &Booking{
		ID:        fmt.Sprintf("BKG-%d-%s", now.Year(), shortID()),
		UserID:    userID,
		EventID:   eventID,
		Status:    BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddTicket 加入票券並累加總金額
func (b *Booking) AddTicket(t Ticket) {
	b.Tickets = append(b.Tickets, t)
	b.TotalAmount += t.PricePaid
}

// TransitionTo 依狀態機轉換，不合法時狀態不變
func (b *Booking) TransitionTo(target BookingStatus, now time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return &apperrors.InvalidBookingStateError{
			BookingID: b.ID,
			From:      string(b.Status),
			To:        string(target),
		}
	}
	b.Status = target
	b.UpdatedAt = now
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	return b.TransitionTo(BookingStatusConfirmed, now)
}

func (b *Booking) Fail(now time.Time) error {
	return b.TransitionTo(BookingStatusFailed, now)
}

// Cancel moves the booking to cancelled and cancels every ticket.
func (b *Booking) Cancel(now time.Time) error {
	if err := b.TransitionTo(BookingStatusCancelled, now); err != nil {
		return err
	}
	b.CancelTickets()
	return nil
}

func (b *Booking) Refund(now time.Time) error {
	return b.TransitionTo(BookingStatusRefunded, now)
}

func (b *Booking) CancelTickets() {
	for i := range b.Tickets {
		b.Tickets[i].Cancel()
	}
}

// UseTicket 入場核銷，只有 CONFIRMED 訂單中 ACTIVE 的票可以使用
func (b *Booking) UseTicket(ticketID string, now time.Time) error {
	if b.Status != BookingStatusConfirmed {
		return fmt.Errorf("%w: booking %s is %s, tickets can only be used on confirmed bookings",
			apperrors.ErrInvalidBookingState, b.ID, b.Status)
	}
	for i := range b.Tickets {
		if b.Tickets[i].ID != ticketID {
			continue
		}
		if !b.Tickets[i].Use() {
			return fmt.Errorf("%w: ticket %s is %s", apperrors.ErrTicketNotUsable, ticketID, b.Tickets[i].Status)
		}
		b.UpdatedAt = now
		return nil
	}
	return fmt.Errorf("%w: %s in booking %s", apperrors.ErrTicketNotFound, ticketID, b.ID)
}

// CanBeCancelled 已確認且距離活動開始超過 cutoff 才可取消
func (b *Booking) CanBeCancelled(now, eventDate time.Time, cutoff time.Duration) bool {
	return b.Status == BookingStatusConfirmed && now.Before(eventDate.Add(-cutoff))
}

// ReleasableByType 依票種彙總尚未使用的票數，順序依票券首次出現
func (b *Booking) ReleasableByType() []TicketRequest {
	index := make(map[string]int)
	var out []TicketRequest
	for _, t := range b.Tickets {
		if t.Status == TicketStatusUsed {
			continue
		}
		i, ok := index[t.TicketTypeID]
		if !ok {
			i = len(out)
			index[t.TicketTypeID] = i
			out = append(out, TicketRequest{TicketTypeID: t.TicketTypeID})
		}
		out[i].Quantity++
	}
	return out
}

// Clone 深拷貝，repository 存取時避免共用 slice 與 payment
func (b *Booking) Clone() *Booking {
	c := *b
	c.Tickets = make([]Ticket, len(b.Tickets))
	copy(c.Tickets, b.Tickets)
	if b.Payment != nil {
		p := *b.Payment
		if b.Payment.CompletedAt != nil {
			at := *b.Payment.CompletedAt
			p.CompletedAt = &at
		}
		c.Payment = &p
	}
	return &c
}

// TicketRequest 一個票種與數量
type TicketRequest struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// ReserveBookingRequest 訂票請求，票種依順序預留
type ReserveBookingRequest struct {
	UserID  string          `json:"user_id" validate:"required"`
	EventID string          `json:"event_id" validate:"required"`
	Tickets []TicketRequest `json:"tickets" validate:"required,min=1,dive"`
}

// SettlePaymentRequest 付款請求
type SettlePaymentRequest struct {
	Method PaymentMethod `json:"method" validate:"required,payment_method"`
}
