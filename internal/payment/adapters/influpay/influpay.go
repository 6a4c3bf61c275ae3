// Package influpay is the reference payment gateway adapter. It speaks a
// minimal intent/webhook protocol with HMAC-SHA256 signed deliveries and
// stands in for a real gateway integration.
package influpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/influmarkt/influmarkt/internal/payment/domain"
)

const (
	Name = "influpay"

	// SignatureHeader carries "sha256=<hex hmac>" over the raw body.
	SignatureHeader = "X-Influpay-Signature"
)

type Adapter struct {
	secret      []byte
	checkoutURL string
}

func New(secret, checkoutBaseURL string) *Adapter {
	if checkoutBaseURL == "" {
		checkoutBaseURL = "https://checkout.influpay.com/session"
	}
	return &Adapter{secret: []byte(secret), checkoutURL: checkoutBaseURL}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) CreateIntent(ctx context.Context, req domain.IntentRequest) (domain.Intent, error) {
	_ = ctx
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return domain.Intent{
		ID:          id,
		CheckoutURL: a.checkoutURL + "/" + id,
	}, nil
}

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (a *Adapter) VerifyAndParse(payload []byte, header http.Header) (domain.WebhookEvent, error) {
	if !a.verify(payload, header.Get(SignatureHeader)) {
		return domain.WebhookEvent{}, domain.ErrInvalidSignature
	}

	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.WebhookEvent{}, domain.ErrUnknownEventType
	}

	eventType := domain.EventType(body.Type)
	if !eventType.Valid() {
		return domain.WebhookEvent{}, domain.ErrUnknownEventType
	}
	if body.ID == "" || body.Data.Object.ID == "" {
		return domain.WebhookEvent{}, domain.ErrIntentNotFound
	}

	return domain.WebhookEvent{
		ProviderEventID: body.ID,
		Type:            eventType,
		IntentID:        body.Data.Object.ID,
		Raw:             payload,
	}, nil
}

func (a *Adapter) verify(payload []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" || len(a.secret) == 0 {
		return false
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), given)
}

// Sign computes the signature header value for payload. Used by tests and by
// the local gateway simulator.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
