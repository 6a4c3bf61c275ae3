package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
)

func (s *Server) ListNotifications(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectNotification, authorization.ActionNotificationView); err != nil {
		AbortWithError(c, err)
		return
	}

	notifications, err := s.notificationSvc.List(c.Request.Context(), actorID(c), queryInt(c, "limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications})
}
