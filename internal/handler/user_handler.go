package handler

import (
	"net/http"

	"event-booking-engine/internal/model"
	"event-booking-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("users", h.List)
		router.GET("users/:id", h.GetUser)
		router.POST("users", h.Create)
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req model.CreateUserRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	user, err := h.service.CreateUser(c, req)
	if err != nil {
		handleError(c, err, "Create")
		return
	}
	handleSuccess(c, user, http.StatusCreated)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c, c.Param("id"))
	if err != nil {
		handleError(c, err, "GetUser")
		return
	}
	handleSuccess(c, user, http.StatusOK)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.ListUsers(c)
	if err != nil {
		handleError(c, err, "List")
		return
	}
	handleSuccess(c, users, http.StatusOK)
}
