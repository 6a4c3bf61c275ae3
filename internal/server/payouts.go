package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
)

func (s *Server) SubmitPayoutInvoice(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectPayoutInvoice, authorization.ActionPayoutInvoiceSubmit); err != nil {
		AbortWithError(c, err)
		return
	}

	var body struct {
		DocumentRef string `json:"document_ref"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	invoice, err := s.payoutSvc.SubmitInvoice(c.Request.Context(), actorID(c), body.DocumentRef)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) GetPayoutInvoice(c *gin.Context) {
	s.payoutInvoiceAction(c, authorization.ActionPayoutInvoiceView, s.payoutSvc.GetInvoice)
}

func (s *Server) ClaimPayoutInvoice(c *gin.Context) {
	s.payoutInvoiceAction(c, authorization.ActionPayoutInvoiceClaim, s.payoutSvc.Claim)
}

func (s *Server) AcceptPayoutInvoice(c *gin.Context) {
	s.payoutInvoiceAction(c, authorization.ActionPayoutInvoiceAccept, s.payoutSvc.Accept)
}

func (s *Server) RejectPayoutInvoice(c *gin.Context) {
	s.payoutInvoiceAction(c, authorization.ActionPayoutInvoiceReject, s.payoutSvc.Reject)
}

func (s *Server) PayoutInvoiceReceipt(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectPayoutInvoice, authorization.ActionPayoutInvoiceReceipt); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pdf, err := s.payoutSvc.Receipt(c.Request.Context(), actorID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (s *Server) payoutInvoiceAction(
	c *gin.Context,
	action string,
	fn func(ctx context.Context, actorID, id snowflake.ID) (payoutdomain.PayoutInvoice, error),
) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectPayoutInvoice, action); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := fn(c.Request.Context(), actorID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}
