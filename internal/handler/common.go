package handler

import (
	"errors"
	"net/http"

	apperrors "event-booking-engine/pkg/app_errors"
	"event-booking-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// errorMapping 依序比對，第一個符合的決定狀態碼
var errorMapping = []struct {
	target  error
	status  int
	message string
}{
	{apperrors.ErrBookingNotFound, http.StatusNotFound, "Booking not found"},
	{apperrors.ErrEventNotFound, http.StatusNotFound, "Event not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{apperrors.ErrUnknownTicketType, http.StatusNotFound, "Ticket type not found"},
	{apperrors.ErrTicketNotFound, http.StatusNotFound, "Ticket not found"},
	{apperrors.ErrCancellationNotAllowed, http.StatusUnprocessableEntity, "Cancellation not allowed"},
	{apperrors.ErrInsufficientTickets, http.StatusConflict, "Insufficient tickets"},
	{apperrors.ErrInvalidBookingState, http.StatusConflict, "Invalid booking state"},
	{apperrors.ErrEventNotBookable, http.StatusConflict, "Event not bookable"},
	{apperrors.ErrTicketNotUsable, http.StatusConflict, "Ticket not usable"},
	{apperrors.ErrUserAlreadyExists, http.StatusConflict, "User already exists"},
	{apperrors.ErrPaymentDeclined, http.StatusPaymentRequired, "Payment declined"},
	{apperrors.ErrRefundFailed, http.StatusBadGateway, "Refund failed"},
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "Invalid input"},
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	for _, m := range errorMapping {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			log.Error(m.message)
		} else {
			log.Warn(m.message)
		}
		c.JSON(m.status, gin.H{
			"error":  m.message,
			"detail": err.Error(),
		})
		return
	}

	log.Error("Unexpected error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
