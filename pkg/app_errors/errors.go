package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrEventNotBookable       = errors.New("event not bookable")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrTicketNotUsable        = errors.New("ticket not usable")
	ErrUnknownTicketType      = errors.New("unknown ticket type")
	ErrInsufficientTickets    = errors.New("insufficient tickets")
	ErrInvalidBookingState    = errors.New("invalid booking state")
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrRefundFailed           = errors.New("refund failed")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternalServerError    = errors.New("internal server error")
)

// InsufficientTicketsError 票種庫存不足，帶出請求數量與剩餘數量
type InsufficientTicketsError struct {
	TicketTypeID string
	TicketType   string
	Requested    int
	Available    int
}

func (e *InsufficientTicketsError) Error() string {
	return fmt.Sprintf("insufficient tickets for %s (%s): requested %d, available %d",
		e.TicketType, e.TicketTypeID, e.Requested, e.Available)
}

func (e *InsufficientTicketsError) Unwrap() error {
	return ErrInsufficientTickets
}

// InvalidBookingStateError 訂單狀態不允許此轉換
type InvalidBookingStateError struct {
	BookingID string
	From      string
	To        string
}

func (e *InvalidBookingStateError) Error() string {
	return fmt.Sprintf("invalid booking state: booking %s cannot move from %s to %s", e.BookingID, e.From, e.To)
}

func (e *InvalidBookingStateError) Unwrap() error {
	return ErrInvalidBookingState
}

// UnknownTicketType wraps ErrUnknownTicketType with the offending id.
func UnknownTicketType(eventID, ticketTypeID string) error {
	return fmt.Errorf("%w: %s in event %s", ErrUnknownTicketType, ticketTypeID, eventID)
}
