package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// CheckoutSession is returned to the buyer to complete payment externally.
type CheckoutSession struct {
	PaymentID   snowflake.ID `json:"payment_id"`
	Provider    string       `json:"provider"`
	IntentID    string       `json:"intent_id"`
	CheckoutURL string       `json:"checkout_url"`
}

type Service interface {
	// StartCheckout opens a payment intent for the order and moves it to
	// awaiting_payment.
	StartCheckout(ctx context.Context, actorID, orderID snowflake.ID, provider string) (CheckoutSession, error)

	// ProcessWebhook verifies, dedupes and applies one gateway delivery.
	// ErrEventAlreadyProcessed means a duplicate of a completed delivery.
	ProcessWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error
}
