package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventCategory string

const (
	CategoryConcert    EventCategory = "CONCERT"
	CategorySports     EventCategory = "SPORTS"
	CategoryTheater    EventCategory = "THEATER"
	CategoryConference EventCategory = "CONFERENCE"
	CategoryWorkshop   EventCategory = "WORKSHOP"
	CategoryFestival   EventCategory = "FESTIVAL"
	CategoryExhibition EventCategory = "EXHIBITION"
	CategoryComedy     EventCategory = "COMEDY"
	CategoryOther      EventCategory = "OTHER"
)

func (c EventCategory) IsValid() bool {
	switch c {
	case CategoryConcert, CategorySports, CategoryTheater, CategoryConference, CategoryWorkshop,
		CategoryFestival, CategoryExhibition, CategoryComedy, CategoryOther:
		return true
	}
	return false
}

// EventStatus 活動狀態
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "UPCOMING"
	EventStatusOngoing   EventStatus = "ONGOING"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

type Venue struct {
	Name     string `json:"name" validate:"required,max=200"`
	City     string `json:"city,omitempty"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

// Event 活動模型，ticket types 以指標保存，庫存計數器只存在這一份
type Event struct {
	ID          string
	Name        string
	Description string
	Category    EventCategory
	Venue       Venue
	EventDate   time.Time
	CreatedAt   time.Time

	mu          sync.RWMutex
	status      EventStatus
	ticketTypes []*TicketType
}

func NewEvent(name, description string, category EventCategory, venue Venue, eventDate, now time.Time) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Category:    category,
		Venue:       venue,
		EventDate:   eventDate.UTC(),
		CreatedAt:   now,
		status:      EventStatusUpcoming,
	}
}

func (e *Event) Status() EventStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Event) SetStatus(status EventStatus) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
}

// IsBookable 只有 UPCOMING 且尚未開始的活動可以訂票
func (e *Event) IsBookable(now time.Time) bool {
	return e.Status() == EventStatusUpcoming && now.Before(e.EventDate)
}

func (e *Event) AddTicketType(tt *TicketType) {
	e.mu.Lock()
	e.ticketTypes = append(e.ticketTypes, tt)
	e.mu.Unlock()
}

// TicketType looks up a ticket type of this event by id.
func (e *Event) TicketType(id string) (*TicketType, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, tt := range e.ticketTypes {
		if tt.ID == id {
			return tt, true
		}
	}
	return nil, false
}

func (e *Event) TicketTypes() []*TicketType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*TicketType, len(e.ticketTypes))
	copy(out, e.ticketTypes)
	return out
}

// AvailableCapacity 所有票種剩餘數量總和
func (e *Event) AvailableCapacity() int {
	total := 0
	for _, tt := range e.TicketTypes() {
		total += tt.AvailableQuantity()
	}
	return total
}

// EventResponse 活動響應
type EventResponse struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Description       string               `json:"description,omitempty"`
	Category          EventCategory        `json:"category"`
	Venue             Venue                `json:"venue"`
	EventDate         time.Time            `json:"event_date"`
	Status            EventStatus          `json:"status"`
	AvailableCapacity int                  `json:"available_capacity"`
	TicketTypes       []TicketTypeResponse `json:"ticket_types"`
	CreatedAt         time.Time            `json:"created_at"`
}

func (e *Event) ToResponse() EventResponse {
	types := e.TicketTypes()
	resp := EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Category:    e.Category,
		Venue:       e.Venue,
		EventDate:   e.EventDate,
		Status:      e.Status(),
		TicketTypes: make([]TicketTypeResponse, 0, len(types)),
		CreatedAt:   e.CreatedAt,
	}
	for _, tt := range types {
		r := tt.ToResponse()
		resp.AvailableCapacity += r.Available
		resp.TicketTypes = append(resp.TicketTypes, r)
	}
	return resp
}

// CreateEventRequest 創建活動請求
type CreateEventRequest struct {
	Name        string        `json:"name" validate:"required,max=200"`
	Description string        `json:"description" validate:"max=2000"`
	Category    EventCategory `json:"category" validate:"required,event_category"`
	Venue       Venue         `json:"venue"`
	EventDate   time.Time     `json:"event_date" validate:"required"`
}

// AddTicketTypeRequest 新增票種請求
type AddTicketTypeRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	Tier        TicketTier `json:"tier" validate:"required,ticket_tier"`
	Price       float64    `json:"price" validate:"gte=0"`
	Quantity    int        `json:"quantity" validate:"required,gt=0"`
}

// TicketAvailability 單一票種的可售數量
type TicketAvailability struct {
	TicketTypeID string `json:"ticket_type_id"`
	Total        int    `json:"total"`
	Booked       int    `json:"booked"`
	Available    int    `json:"available"`
}

// EventAvailability 活動各票種可售數量與總和；Source 為 live 或 cache
type EventAvailability struct {
	EventID        string               `json:"event_id"`
	TicketTypes    []TicketAvailability `json:"ticket_types"`
	TotalAvailable int                  `json:"total_available"`
	Source         string               `json:"source"`
}

const (
	AvailabilitySourceLive  = "live"
	AvailabilitySourceCache = "cache"
)

// LiveAvailability reads every ticket type counter of the event.
func (e *Event) LiveAvailability() EventAvailability {
	types := e.TicketTypes()
	out := EventAvailability{
		EventID:     e.ID,
		TicketTypes: make([]TicketAvailability, 0, len(types)),
		Source:      AvailabilitySourceLive,
	}
	for _, tt := range types {
		s := tt.Snapshot()
		out.TicketTypes = append(out.TicketTypes, TicketAvailability{
			TicketTypeID: tt.ID,
			Total:        s.Total,
			Booked:       s.Booked,
			Available:    s.Available,
		})
		out.TotalAvailable += s.Available
	}
	return out
}
