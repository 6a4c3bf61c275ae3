package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
)

func (s *Server) CreateOrder(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectOrder, authorization.ActionOrderCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	req.BuyerID = actorID(c)

	order, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

func (s *Server) GetOrder(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectOrder, authorization.ActionOrderView); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Get(c.Request.Context(), actorID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) ListOrders(c *gin.Context) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectOrder, authorization.ActionOrderView); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrdersRequest{
		ActorID:   actorID(c),
		Status:    c.Query("status"),
		PageToken: c.Query("page_token"),
		PageSize:  queryInt(c, "page_size"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            resp.Orders,
		"next_page_token": resp.NextPageToken,
		"has_more":        resp.HasMore,
	})
}

func (s *Server) AcceptOrder(c *gin.Context) {
	s.orderAction(c, authorization.ActionOrderAccept, s.orderSvc.InfluencerAccept)
}

func (s *Server) RejectOrder(c *gin.Context) {
	s.orderAction(c, authorization.ActionOrderReject, s.orderSvc.InfluencerReject)
}

func (s *Server) SubmitDelivery(c *gin.Context) {
	s.orderAction(c, authorization.ActionOrderDeliver, s.orderSvc.SubmitDelivery)
}

func (s *Server) ConfirmOrder(c *gin.Context) {
	s.orderAction(c, authorization.ActionOrderConfirm, s.orderSvc.BuyerConfirm)
}

func (s *Server) CancelOrderOnHold(c *gin.Context) {
	s.orderAction(c, authorization.ActionOrderCancel, s.orderSvc.BuyerCancelOnHold)
}

func (s *Server) orderAction(
	c *gin.Context,
	action string,
	fn func(ctx context.Context, actorID, id snowflake.ID) (orderdomain.Order, error),
) {
	if err := s.authzSvc.Authorize(c.Request.Context(), actorSubject(c), authorization.ObjectOrder, action); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := fn(c.Request.Context(), actorID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return value
}
