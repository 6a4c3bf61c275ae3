package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type OpenRequest struct {
	ActorID snowflake.ID
	OrderID snowflake.ID
	Message string `json:"message"`
}

type ResolveRequest struct {
	ActorID         snowflake.ID
	DisputeID       snowflake.ID
	InfluencerFault bool   `json:"influencer_fault"`
	DecisionMessage string `json:"decision_message"`
}

type Service interface {
	// Open creates the order's dispute, updates the complaint on an
	// already-open one, or reopens a resolved one.
	Open(ctx context.Context, req OpenRequest) (Dispute, error)

	Get(ctx context.Context, actorID, orderID snowflake.ID) (Dispute, error)

	// Claim assigns the dispute to a solver.
	Claim(ctx context.Context, actorID, disputeID snowflake.ID) (Dispute, error)

	// Resolve records the fault determination and drives the parent order
	// to its corrective status.
	Resolve(ctx context.Context, req ResolveRequest) (Dispute, error)
}
