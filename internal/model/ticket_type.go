package model

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// TicketTier 票種等級
type TicketTier string

const (
	TierVIP       TicketTier = "VIP"
	TierPremium   TicketTier = "PREMIUM"
	TierStandard  TicketTier = "STANDARD"
	TierEconomy   TicketTier = "ECONOMY"
	TierEarlyBird TicketTier = "EARLY_BIRD"
)

// IsValid 驗證等級是否有效
func (t TicketTier) IsValid() bool {
	switch t {
	case TierVIP, TierPremium, TierStandard, TierEconomy, TierEarlyBird:
		return true
	}
	return false
}

// TicketType 單一票種的庫存，booked 與 seat 序號只在 mu 內變動；
// available 另外以 atomic 發布，讀取不需要拿鎖
type TicketType struct {
	ID          string
	EventID     string
	Name        string
	Description string
	Tier        TicketTier
	Price       float64

	mu            sync.Mutex
	totalQuantity int
	bookedCount   int
	nextSeat      int

	available atomic.Int64
	version   atomic.Int64
}

// TicketTypeSnapshot is a consistent copy of the counters taken under the lock.
type TicketTypeSnapshot struct {
	Total     int   `json:"total"`
	Booked    int   `json:"booked"`
	Available int   `json:"available"`
	Version   int64 `json:"version"`
}

func NewTicketType(eventID, name, description string, tier TicketTier, price float64, totalQuantity int) *TicketType {
	tt := &TicketType{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Name:          name,
		Description:   description,
		Tier:          tier,
		Price:         price,
		totalQuantity: totalQuantity,
	}
	tt.available.Store(int64(totalQuantity))
	return tt
}

// ReserveSeats 原子地檢查並扣除庫存，成功時回傳本次配發的座位標籤；
// 失敗時不做任何變動
func (t *TicketType) ReserveSeats(quantity int) ([]string, bool) {
	if quantity <= 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalQuantity-t.bookedCount < quantity {
		return nil, false
	}

	labels := make([]string, quantity)
	for i := range labels {
		t.nextSeat++
		labels[i] = fmt.Sprintf("%s-%d", t.Tier, t.nextSeat)
	}
	t.bookedCount += quantity
	t.publish()
	return labels, true
}

func (t *TicketType) Reserve(quantity int) bool {
	_, ok := t.ReserveSeats(quantity)
	return ok
}

// Release 歸還庫存，最低降到 0；負數視為 no-op
func (t *TicketType) Release(quantity int) {
	if quantity <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bookedCount -= quantity
	if t.bookedCount < 0 {
		t.bookedCount = 0
	}
	t.publish()
}

// publish must be called with mu held.
func (t *TicketType) publish() {
	t.available.Store(int64(t.totalQuantity - t.bookedCount))
	t.version.Add(1)
}

func (t *TicketType) AvailableQuantity() int {
	return int(t.available.Load())
}

func (t *TicketType) TotalQuantity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalQuantity
}

func (t *TicketType) BookedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bookedCount
}

func (t *TicketType) Snapshot() TicketTypeSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TicketTypeSnapshot{
		Total:     t.totalQuantity,
		Booked:    t.bookedCount,
		Available: t.totalQuantity - t.bookedCount,
		Version:   t.version.Load(),
	}
}

// TicketTypeResponse 票種響應
type TicketTypeResponse struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Tier        TicketTier `json:"tier"`
	Price       float64    `json:"price"`
	Total       int        `json:"total"`
	Booked      int        `json:"booked"`
	Available   int        `json:"available"`
}

func (t *TicketType) ToResponse() TicketTypeResponse {
	s := t.Snapshot()
	return TicketTypeResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		Description: t.Description,
		Tier:        t.Tier,
		Price:       t.Price,
		Total:       s.Total,
		Booked:      s.Booked,
		Available:   s.Available,
	}
}
