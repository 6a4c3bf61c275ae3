package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	orderrepo "github.com/influmarkt/influmarkt/internal/order/repository"
	orderservice "github.com/influmarkt/influmarkt/internal/order/service"
	"github.com/influmarkt/influmarkt/internal/payment/adapters"
	"github.com/influmarkt/influmarkt/internal/payment/adapters/influpay"
	"github.com/influmarkt/influmarkt/internal/payment/domain"
	paymentrepo "github.com/influmarkt/influmarkt/internal/payment/repository"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	profilerepo "github.com/influmarkt/influmarkt/internal/profile/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type noopDispatcher struct{}

func (noopDispatcher) Notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) error {
	return nil
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, mail orderdomain.Mail) error { return nil }

type noopSettler struct{}

func (noopSettler) Settle(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) error {
	return nil
}

type harness struct {
	db         *gorm.DB
	svc        domain.Service
	orders     orderdomain.Service
	orderRepo  orderdomain.Repository
	repo       domain.Repository
	clk        *clock.FakeClock
	node       *snowflake.Node
	buyer      profiledomain.Profile
	influencer profiledomain.Profile
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&profiledomain.Profile{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&domain.Payment{},
		&domain.EventRecord{},
	))
	// Webhook dedup target; raw inserts rely on it.
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_events_provider_event
		 ON payment_events (provider, provider_event_id)`,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
	policy := config.StaticPolicyHolder(config.DefaultPolicy())
	profiles := profilerepo.Provide()
	oRepo := orderrepo.Provide()

	orders := orderservice.New(orderservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Config:      config.Config{PublicBaseURL: "https://app.example.com"},
		Policy:      policy,
		Repo:        oRepo,
		ProfileRepo: profiles,
		Dispatcher:  noopDispatcher{},
		Mailer:      noopMailer{},
		Settler:     noopSettler{},
	})

	repo := paymentrepo.Provide()
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Policy:   policy,
		Registry: adapters.NewRegistry(influpay.New(webhookSecret, "")),
		Repo:     repo,
		Orders:   orders,
	})

	h := &harness{db: db, svc: svc, orders: orders, orderRepo: oRepo, repo: repo, clk: clk, node: node}

	ctx := context.Background()
	now := clk.Now()
	h.buyer = profiledomain.Profile{
		ID: node.Generate(), Kind: profiledomain.KindBrand, Name: "brand", Email: "brand@example.com",
		Locale: profiledomain.LocaleEN, CreatedAt: now, UpdatedAt: now,
	}
	h.influencer = profiledomain.Profile{
		ID: node.Generate(), Kind: profiledomain.KindInfluencer, Name: "creator", Email: "creator@example.com",
		Locale: profiledomain.LocaleEN, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, profiles.Insert(ctx, db, &h.buyer))
	require.NoError(t, profiles.Insert(ctx, db, &h.influencer))
	return h
}

func (h *harness) createOrder(t *testing.T) orderdomain.Order {
	t.Helper()
	order, err := h.orders.Create(context.Background(), orderdomain.CreateOrderRequest{
		BuyerID:        h.buyer.ID,
		InfluencerID:   h.influencer.ID.String(),
		BasePrice:      10000,
		DateOfDelivery: h.clk.Now().AddDate(0, 0, 7),
		Items:          []orderdomain.CreateOrderItem{{ContentType: "video", Quantity: 1, Price: 10000}},
	})
	require.NoError(t, err)
	return order
}

func webhook(t *testing.T, eventID string, eventType domain.EventType, intentID string) ([]byte, http.Header) {
	t.Helper()
	payload := []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"object":{"id":%q}}}`,
		eventID, eventType, intentID,
	))
	header := http.Header{}
	header.Set(influpay.SignatureHeader, influpay.Sign(webhookSecret, payload))
	return payload, header
}

func TestStartCheckoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.createOrder(t)

	session, err := h.svc.StartCheckout(ctx, h.buyer.ID, order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, influpay.Name, session.Provider)
	assert.NotEmpty(t, session.IntentID)
	assert.NotEmpty(t, session.CheckoutURL)

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusAwaitingPayment, reloaded.Status)

	again, err := h.svc.StartCheckout(ctx, h.buyer.ID, order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, session.IntentID, again.IntentID)
	assert.Equal(t, session.PaymentID, again.PaymentID)
}

func TestStartCheckoutRejectsNonBuyer(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t)

	_, err := h.svc.StartCheckout(context.Background(), h.influencer.ID, order.ID, "")
	assert.ErrorIs(t, err, orderdomain.ErrNotParticipant)
}

func TestWebhookSucceededConfirmsPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.createOrder(t)

	session, err := h.svc.StartCheckout(ctx, h.buyer.ID, order.ID, "")
	require.NoError(t, err)

	payload, header := webhook(t, "evt_1", domain.EventProcessing, session.IntentID)
	require.NoError(t, h.svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	payload, header = webhook(t, "evt_2", domain.EventSucceeded, session.IntentID)
	require.NoError(t, h.svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	payment, err := h.repo.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, payment.Status)

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaymentConfirmed, reloaded.Status)
}

func TestWebhookRedeliveryIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.createOrder(t)

	session, err := h.svc.StartCheckout(ctx, h.buyer.ID, order.ID, "")
	require.NoError(t, err)

	payload, header := webhook(t, "evt_1", domain.EventSucceeded, session.IntentID)
	require.NoError(t, h.svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	err = h.svc.ProcessWebhook(ctx, influpay.Name, payload, header)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
}

func TestWebhookFailedThenSucceededRecovers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.createOrder(t)

	session, err := h.svc.StartCheckout(ctx, h.buyer.ID, order.ID, "")
	require.NoError(t, err)

	payload, header := webhook(t, "evt_1", domain.EventFailed, session.IntentID)
	require.NoError(t, h.svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaymentFailed, reloaded.Status)

	payload, header = webhook(t, "evt_2", domain.EventSucceeded, session.IntentID)
	require.NoError(t, h.svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	reloaded, err = h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaymentConfirmed, reloaded.Status)
}

// flakyOrders fails ApplyEvent a set number of times before delegating,
// standing in for a transient order-side outage during webhook handling.
type flakyOrders struct {
	orderdomain.Service
	failures int
}

func (f *flakyOrders) ApplyEvent(ctx context.Context, id snowflake.ID, event orderdomain.Event) (orderdomain.Order, error) {
	if f.failures > 0 {
		f.failures--
		return orderdomain.Order{}, errors.New("db_unavailable")
	}
	return f.Service.ApplyEvent(ctx, id, event)
}

func TestWebhookRetryAfterOrderFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.createOrder(t)

	session, err := h.svc.StartCheckout(ctx, h.buyer.ID, order.ID, "")
	require.NoError(t, err)

	flaky := &flakyOrders{Service: h.orders, failures: 1}
	svc := New(Params{
		DB:       h.db,
		Log:      zap.NewNop(),
		GenID:    h.node,
		Clock:    h.clk,
		Policy:   config.StaticPolicyHolder(config.DefaultPolicy()),
		Registry: adapters.NewRegistry(influpay.New(webhookSecret, "")),
		Repo:     h.repo,
		Orders:   flaky,
	})

	// The payment CAS lands but the order transition fails; the event stays
	// unprocessed so the gateway will redeliver.
	payload, header := webhook(t, "evt_1", domain.EventSucceeded, session.IntentID)
	require.Error(t, svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	payment, err := h.repo.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, payment.Status)

	// Redelivery finds the payment already moved and still drives the order.
	require.NoError(t, svc.ProcessWebhook(ctx, influpay.Name, payload, header))

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaymentConfirmed, reloaded.Status)

	// Only now is the event acknowledged as processed.
	err = svc.ProcessWebhook(ctx, influpay.Name, payload, header)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
}

func TestWebhookUnknownIntent(t *testing.T) {
	h := newHarness(t)

	payload, header := webhook(t, "evt_1", domain.EventSucceeded, "pi_missing")
	err := h.svc.ProcessWebhook(context.Background(), influpay.Name, payload, header)
	assert.ErrorIs(t, err, domain.ErrIntentNotFound)
}

func TestWebhookUnknownProvider(t *testing.T) {
	h := newHarness(t)

	payload, header := webhook(t, "evt_1", domain.EventSucceeded, "pi_1")
	err := h.svc.ProcessWebhook(context.Background(), "stripe", payload, header)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestWebhookBadSignature(t *testing.T) {
	h := newHarness(t)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	header := http.Header{}
	header.Set(influpay.SignatureHeader, "sha256=deadbeef")
	err := h.svc.ProcessWebhook(context.Background(), influpay.Name, payload, header)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}
