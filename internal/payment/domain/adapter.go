package domain

import (
	"context"
	"net/http"
)

// WebhookEvent is a verified, provider-neutral gateway event.
type WebhookEvent struct {
	ProviderEventID string
	Type            EventType
	IntentID        string
	Raw             []byte
}

// IntentRequest asks the gateway to open a payment intent.
type IntentRequest struct {
	OrderID     string
	AmountCents int64
	Currency    string
}

// Intent is the gateway's handle for a pending payment.
type Intent struct {
	ID          string
	CheckoutURL string
}

// Adapter is one payment gateway integration. VerifyAndParse owns signature
// verification; the workflow core never sees an unverified payload.
type Adapter interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	VerifyAndParse(payload []byte, header http.Header) (WebhookEvent, error)
}

// Transferrer moves settled funds to an influencer's connected account.
type Transferrer interface {
	Transfer(ctx context.Context, amountCents int64, currency, destinationAccountID string) error
}
