package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
	"go.uber.org/zap"
)

const sweepTriggerBatchSize = 100

// TriggerSweep is the manual escape hatch for the scheduled jobs. The
// signature check is constant-time and a mismatch looks like a missing
// route.
func (s *Server) TriggerSweep(c *gin.Context) {
	token := s.cfg.SweepTriggerToken
	provided := strings.TrimSpace(c.GetHeader(HeaderSweepSignature))
	if token == "" || provided == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.authzSvc.Authorize(c.Request.Context(), "system", authorization.ObjectSweep, authorization.ActionSweepTrigger); err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now()
	var (
		processed int
		err       error
	)
	job := strings.TrimSpace(c.Param("job"))
	switch job {
	case "delivery_reminder":
		processed, err = s.orderSvc.SweepDeliveryReminders(c.Request.Context(), now, sweepTriggerBatchSize)
	case "delivery_overdue":
		processed, err = s.orderSvc.SweepOverdue(c.Request.Context(), now, sweepTriggerBatchSize)
	case "confirmation_expired":
		processed, err = s.orderSvc.SweepConfirmExpired(c.Request.Context(), now, sweepTriggerBatchSize)
	default:
		AbortWithError(c, ErrNotFound)
		return
	}
	if err != nil {
		// Sweeps tolerate per-order failures; report what did get done.
		s.log.Warn("manual sweep finished with errors",
			zap.String("job", job),
			zap.Int("processed", processed),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"job": job, "processed": processed, "partial": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job, "processed": processed})
}
