package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/pkg/db/pagination"
	"gorm.io/gorm"
)

// Actions emitted on transitions. They key both the notification
// entity_action column and the email template dispatch table.
const (
	ActionOrderPaid             = "order_paid"
	ActionOrderPaymentFailed    = "order_payment_failed"
	ActionOrderAccepted         = "order_accepted"
	ActionOrderRejected         = "order_rejected"
	ActionOrderDelivered        = "order_delivered"
	ActionOrderConfirmed        = "order_confirmed"
	ActionOrderAutoConfirmed    = "order_auto_confirmed"
	ActionOrderOnHold           = "order_on_hold"
	ActionOrderCanceled         = "order_canceled"
	ActionOrderDeliveryReminder = "order_delivery_reminder"
	ActionDisputeOpened         = "dispute_opened"
	ActionDisputeWon            = "dispute_won"
	ActionDisputeLost           = "dispute_lost"
)

// Dispatcher records an in-app notification. Dispatch failures are logged
// and never roll back the transition that caused them.
type Dispatcher interface {
	Notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) error
}

// Mail is a templated, localized email request addressed by profile.
type Mail struct {
	Action      string
	RecipientID snowflake.ID
	Params      map[string]string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// Settler derives the payout and buyer invoice when an order settles. It must
// be idempotent per order.
type Settler interface {
	Settle(ctx context.Context, tx *gorm.DB, order *Order) error
}

type CreateOrderItem struct {
	ContentType string `json:"content_type"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

type CreateOrderRequest struct {
	BuyerID        snowflake.ID
	InfluencerID   string            `json:"influencer_id"`
	BasePrice      int64             `json:"base_price"`
	Discount       *int64            `json:"discount,omitempty"`
	DateOfDelivery time.Time         `json:"date_of_delivery"`
	Items          []CreateOrderItem `json:"items"`
}

type ListOrdersRequest struct {
	ActorID   snowflake.ID
	Status    string
	PageToken string
	PageSize  int
}

type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

type ListOrdersResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (Order, error)
	Get(ctx context.Context, actorID, id snowflake.ID) (OrderWithItems, error)
	List(ctx context.Context, req ListOrdersRequest) (ListOrdersResponse, error)

	InfluencerAccept(ctx context.Context, actorID, id snowflake.ID) (Order, error)
	InfluencerReject(ctx context.Context, actorID, id snowflake.ID) (Order, error)
	SubmitDelivery(ctx context.Context, actorID, id snowflake.ID) (Order, error)
	BuyerConfirm(ctx context.Context, actorID, id snowflake.ID) (Order, error)
	BuyerCancelOnHold(ctx context.Context, actorID, id snowflake.ID) (Order, error)

	// ApplyEvent drives gateway- and dispute-originated transitions that
	// carry no human actor.
	ApplyEvent(ctx context.Context, id snowflake.ID, event Event) (Order, error)

	// Sweeps. Each processes up to batch orders, tolerates per-order
	// failures, and returns how many orders it acted on.
	SweepDeliveryReminders(ctx context.Context, now time.Time, batch int) (int, error)
	SweepOverdue(ctx context.Context, now time.Time, batch int) (int, error)
	SweepConfirmExpired(ctx context.Context, now time.Time, batch int) (int, error)
}
