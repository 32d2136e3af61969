package handler

import (
	"net/http"

	"event-booking-engine/internal/model"
	"event-booking-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:id", h.GetEvent)
		router.POST("events", h.Create)
		router.POST("events/:id/ticket-types", h.AddTicketType)
		router.GET("events/:id/availability", h.GetAvailability)
		router.PUT("events/:id/cancel", h.CancelEvent)
	}
}

// ListQuery ?upcoming=true 只列出可訂票的活動，?category= 依分類篩選
type ListQuery struct {
	Upcoming bool                `form:"upcoming"`
	Category model.EventCategory `form:"category"`
}

// AvailabilityQuery ?live=true 直接讀計數器，預設讀快取
type AvailabilityQuery struct {
	Live bool `form:"live"`
}

func (h *EventHandler) List(c *gin.Context) {
	var q ListQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}

	var (
		events []*model.Event
		err    error
	)
	switch {
	case q.Category != "":
		events, err = h.service.ListEventsByCategory(c, q.Category, q.Upcoming)
	case q.Upcoming:
		events, err = h.service.ListUpcomingEvents(c)
	default:
		events, err = h.service.ListEvents(c)
	}
	if err != nil {
		handleError(c, err, "List")
		return
	}

	resp := make([]model.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, e.ToResponse())
	}
	handleSuccess(c, resp, http.StatusOK)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.service.GetEvent(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	handleSuccess(c, event.ToResponse(), http.StatusOK)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := h.service.CreateEvent(c, req)
	if err != nil {
		handleError(c, err, "Create")
		return
	}
	handleSuccess(c, event.ToResponse(), http.StatusCreated)
}

func (h *EventHandler) AddTicketType(c *gin.Context) {
	var req model.AddTicketTypeRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	tt, err := h.service.AddTicketType(c, c.Param("id"), req)
	if err != nil {
		handleError(c, err, "AddTicketType")
		return
	}
	handleSuccess(c, tt.ToResponse(), http.StatusCreated)
}

func (h *EventHandler) GetAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}

	var (
		availability model.EventAvailability
		err          error
	)
	if q.Live {
		availability, err = h.service.GetAvailability(c, c.Param("id"))
	} else {
		availability, err = h.service.GetDisplayAvailability(c, c.Param("id"))
	}
	if err != nil {
		handleError(c, err, "GetAvailability")
		return
	}
	handleSuccess(c, availability, http.StatusOK)
}

func (h *EventHandler) CancelEvent(c *gin.Context) {
	event, err := h.service.CancelEvent(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "CancelEvent")
		return
	}
	handleSuccess(c, event.ToResponse(), http.StatusOK)
}
