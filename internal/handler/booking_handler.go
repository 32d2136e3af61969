package handler

import (
	"net/http"

	"event-booking-engine/internal/model"
	"event-booking-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service service.BookingService
}

func NewBookingHandler(service service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("bookings", h.ReserveBooking)
		router.GET("bookings/:id", h.GetBooking)
		router.POST("bookings/:id/payment", h.SettlePayment)
		router.POST("bookings/:id/cancel", h.CancelBooking)
		router.POST("bookings/:id/tickets/:ticketId/use", h.UseTicket)
		router.GET("users/:id/bookings", h.ListUserBookings)
		router.GET("events/:id/bookings", h.ListEventBookings)
	}
}

func (h *BookingHandler) ReserveBooking(c *gin.Context) {
	var req model.ReserveBookingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	booking, err := h.service.ReserveBooking(c, req)
	if err != nil {
		handleError(c, err, "ReserveBooking")
		return
	}
	handleSuccess(c, booking, http.StatusCreated)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.service.GetBooking(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "GetBooking")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}

func (h *BookingHandler) SettlePayment(c *gin.Context) {
	var req model.SettlePaymentRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if err := model.Validate(req); err != nil {
		handleError(c, err, "SettlePayment")
		return
	}

	booking, err := h.service.SettlePayment(c, c.Param("id"), req.Method)
	if err != nil {
		handleError(c, err, "SettlePayment")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.service.CancelBooking(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "CancelBooking")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}

func (h *BookingHandler) UseTicket(c *gin.Context) {
	booking, err := h.service.UseTicket(c, c.Param("id"), c.Param("ticketId"))
	if err != nil {
		handleError(c, err, "UseTicket")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}

// UserBookingsQuery ?status=confirmed 只列出該狀態的訂單
type UserBookingsQuery struct {
	Status model.BookingStatus `form:"status"`
}

func (h *BookingHandler) ListUserBookings(c *gin.Context) {
	var q UserBookingsQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}

	var (
		bookings []*model.Booking
		err      error
	)
	if q.Status != "" {
		bookings, err = h.service.ListUserBookingsByStatus(c, c.Param("id"), q.Status)
	} else {
		bookings, err = h.service.ListUserBookings(c, c.Param("id"))
	}
	if err != nil {
		handleError(c, err, "ListUserBookings")
		return
	}
	handleSuccess(c, bookings, http.StatusOK)
}

func (h *BookingHandler) ListEventBookings(c *gin.Context) {
	bookings, err := h.service.ListEventBookings(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "ListEventBookings")
		return
	}
	handleSuccess(c, bookings, http.StatusOK)
}
