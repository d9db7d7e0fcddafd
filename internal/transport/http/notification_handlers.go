package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/service/notifications"
	"github.com/civicalert/civicalert-server/internal/store"
)

// NotificationHandlers provides HTTP handlers for notification endpoints.
type NotificationHandlers struct {
	notifications *notifications.Service
	log           *zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance.
func NewNotificationHandlers(svc *notifications.Service, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		notifications: svc,
		log:           logger,
	}
}

// UnreadCountResponse represents the unread count response body.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// ListNotifications handles fetching the caller's notifications.
// GET /api/notifications
func (h *NotificationHandlers) ListNotifications(c *gin.Context) {
	userID, _, _ := currentUser(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, err := h.notifications.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if list == nil {
		list = []*store.Notification{}
	}

	c.JSON(http.StatusOK, list)
}

// UnreadCount handles fetching the caller's unread notification count.
// GET /api/notifications/unread-count
func (h *NotificationHandlers) UnreadCount(c *gin.Context) {
	userID, _, _ := currentUser(c)

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to count unread notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// MarkRead handles marking one of the caller's notifications as read.
// PUT /api/notifications/:id/read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	userID, _, _ := currentUser(c)

	if err := h.notifications.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to mark notification read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
