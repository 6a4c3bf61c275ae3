package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
	disputedomain "github.com/influmarkt/influmarkt/internal/dispute/domain"
)

func (s *Server) OpenDispute(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectDispute, authorization.ActionDisputeOpen); err != nil {
		AbortWithError(c, err)
		return
	}

	var body struct {
		OrderID string `json:"order_id"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	orderID, err := parseID(body.OrderID, "order_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dispute, err := s.disputeSvc.Open(c.Request.Context(), disputedomain.OpenRequest{
		ActorID: actorID(c),
		OrderID: orderID,
		Message: body.Message,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": dispute})
}

func (s *Server) GetDispute(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectDispute, authorization.ActionDisputeView); err != nil {
		AbortWithError(c, err)
		return
	}

	orderID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dispute, err := s.disputeSvc.Get(c.Request.Context(), actorID(c), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dispute})
}

func (s *Server) ClaimDispute(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectDispute, authorization.ActionDisputeClaim); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dispute, err := s.disputeSvc.Claim(c.Request.Context(), actorID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dispute})
}

func (s *Server) ResolveDispute(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectDispute, authorization.ActionDisputeResolve); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body struct {
		InfluencerFault bool   `json:"influencer_fault"`
		DecisionMessage string `json:"decision_message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	dispute, err := s.disputeSvc.Resolve(c.Request.Context(), disputedomain.ResolveRequest{
		ActorID:         actorID(c),
		DisputeID:       id,
		InfluencerFault: body.InfluencerFault,
		DecisionMessage: body.DecisionMessage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dispute})
}
