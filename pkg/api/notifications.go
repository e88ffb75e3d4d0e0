package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/errs"
)

// ListNotifications handles GET /notifications?user-id=&unread-only=.
func (s *Server) ListNotifications(c *gin.Context) {
	userID := c.Query("user-id")
	if userID == "" {
		writeError(c, errs.New(errs.InvalidInput, "user-id is required"))
		return
	}
	unreadOnly := c.Query("unread-only") == "true"

	notifications, err := s.store.ListNotifications(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// CountUnreadNotifications handles GET /notifications/unread/count?user-id=.
func (s *Server) CountUnreadNotifications(c *gin.Context) {
	userID := c.Query("user-id")
	if userID == "" {
		writeError(c, errs.New(errs.InvalidInput, "user-id is required"))
		return
	}

	count, err := s.store.CountUnreadNotifications(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead handles PUT /notifications/{id}/read.
func (s *Server) MarkNotificationRead(c *gin.Context) {
	if err := s.store.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// MarkAllNotificationsRead handles PUT /notifications/read-all?user-id=.
func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	userID := c.Query("user-id")
	if userID == "" {
		writeError(c, errs.New(errs.InvalidInput, "user-id is required"))
		return
	}
	if err := s.store.MarkAllNotificationsRead(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
