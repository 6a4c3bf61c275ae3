package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
	paymentdomain "github.com/influmarkt/influmarkt/internal/payment/domain"
	"go.uber.org/zap"
)

func (s *Server) StartCheckout(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectOrder, authorization.ActionOrderCheckout); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body struct {
		Provider string `json:"provider"`
	}
	// An empty body selects the default provider.
	_ = c.ShouldBindJSON(&body)

	session, err := s.paymentSvc.StartCheckout(c.Request.Context(), actorID(c), id, body.Provider)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// PaymentWebhook ingests one at-least-once gateway delivery. Duplicates of
// an already-processed event acknowledge with 200 so the gateway stops
// retrying.
func (s *Server) PaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, newValidationError("payload", "invalid_payload", "unreadable payload"))
		return
	}

	err = s.paymentSvc.ProcessWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		s.log.Debug("duplicate webhook delivery acknowledged", zap.String("provider", provider))
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
