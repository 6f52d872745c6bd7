package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"persona-forge/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationChannel
}

func NewNotificationHandler(notifications *service.NotificationChannel) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications maneja GET /notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.notifications.List()})
}

// DismissNotification maneja DELETE /notifications/:id.
func (h *NotificationHandler) DismissNotification(c *gin.Context) {
	if !h.notifications.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": c.Param("id")})
}
