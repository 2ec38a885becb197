package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fisiohome/fisiohome-api/internal/service"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

// NotificationHandler serves per-user notifications.
type NotificationHandler struct {
	notifications *service.NotificationService
}

func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List notifications
// @Description Lists the caller's notifications, newest first.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	notifications, pagination, err := h.notifications.List(c.Request.Context(), actor, unreadOnly, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notifications, pagination)
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}
