package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus 票券狀態
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusRefunded  TicketStatus = "refunded"
	TicketStatusExpired   TicketStatus = "expired"
)

func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusActive, TicketStatusUsed, TicketStatusCancelled, TicketStatusRefunded, TicketStatusExpired:
		return true
	}
	return false
}

// Ticket 單張票券，屬於某一筆 booking；以 id 參照票種
type Ticket struct {
	ID           string       `json:"id" db:"id"`
	TicketTypeID string       `json:"ticket_type_id" db:"ticket_type_id"`
	Tier         TicketTier   `json:"tier" db:"tier"`
	SeatLabel    string       `json:"seat_label" db:"seat_label"`
	PricePaid    float64      `json:"price_paid" db:"price_paid"`
	Status       TicketStatus `json:"status" db:"status"`
	IssuedAt     time.Time    `json:"issued_at" db:"issued_at"`
}

func NewTicket(tt *TicketType, seatLabel string, now time.Time) Ticket {
	return Ticket{
		ID:           "TKT-" + shortID(),
		TicketTypeID: tt.ID,
		Tier:         tt.Tier,
		SeatLabel:    seatLabel,
		PricePaid:    tt.Price,
		Status:       TicketStatusActive,
		IssuedAt:     now,
	}
}

func (t *Ticket) Cancel() {
	t.Status = TicketStatusCancelled
}

// Use 只有 ACTIVE 的票可以入場
func (t *Ticket) Use() bool {
	if t.Status != TicketStatusActive {
		return false
	}
	t.Status = TicketStatusUsed
	return true
}

// shortID returns the first 8 hex digits of a random uuid, upper-cased.
func shortID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
