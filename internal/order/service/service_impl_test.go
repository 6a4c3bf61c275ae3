package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	invoicedomain "github.com/influmarkt/influmarkt/internal/invoice/domain"
	invoicerepo "github.com/influmarkt/influmarkt/internal/invoice/repository"
	"github.com/influmarkt/influmarkt/internal/order/domain"
	orderrepo "github.com/influmarkt/influmarkt/internal/order/repository"
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
	payoutrepo "github.com/influmarkt/influmarkt/internal/payout/repository"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	profilerepo "github.com/influmarkt/influmarkt/internal/profile/repository"
	"github.com/influmarkt/influmarkt/internal/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordedNotification struct {
	NotifierID snowflake.ID
	Action     string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []recordedNotification
}

func (d *fakeDispatcher) Notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, recordedNotification{NotifierID: notifierID, Action: action})
	return nil
}

func (d *fakeDispatcher) count(action string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, call := range d.calls {
		if call.Action == action {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	mu    sync.Mutex
	mails []domain.Mail
}

func (m *fakeMailer) Send(ctx context.Context, mail domain.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, mail)
	return nil
}

func (m *fakeMailer) count(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mail := range m.mails {
		if mail.Action == action {
			n++
		}
	}
	return n
}

type harness struct {
	db         *gorm.DB
	svc        domain.Service
	node       *snowflake.Node
	clk        *clock.FakeClock
	dispatcher *fakeDispatcher
	mailer     *fakeMailer
	repo       domain.Repository
	invoices   invoicedomain.Repository
	payouts    payoutdomain.Repository
	profiles   profiledomain.Repository
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
		&domain.Order{},
		&domain.OrderItem{},
		&invoicedomain.Invoice{},
		&payoutdomain.Payout{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
	dispatcher := &fakeDispatcher{}
	mailer := &fakeMailer{}
	profiles := profilerepo.Provide()
	invoices := invoicerepo.Provide()
	payouts := payoutrepo.Provide()
	repo := orderrepo.Provide()

	settler := settlement.New(settlement.Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		ProfileRepo: profiles,
		InvoiceRepo: invoices,
		PayoutRepo:  payouts,
	})

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Config:      config.Config{PublicBaseURL: "https://app.example.com"},
		Policy:      config.StaticPolicyHolder(config.DefaultPolicy()),
		Repo:        repo,
		ProfileRepo: profiles,
		Dispatcher:  dispatcher,
		Mailer:      mailer,
		Settler:     settler,
	})

	h := &harness{
		db:         db,
		svc:        svc,
		node:       node,
		clk:        clk,
		dispatcher: dispatcher,
		mailer:     mailer,
		repo:       repo,
		invoices:   invoices,
		payouts:    payouts,
		profiles:   profiles,
	}
	h.buyer = h.addProfile(t, profiledomain.KindBrand)
	h.influencer = h.addProfile(t, profiledomain.KindInfluencer)
	return h
}

func (h *harness) addProfile(t *testing.T, kind profiledomain.Kind) profiledomain.Profile {
	t.Helper()
	now := h.clk.Now()
	profile := profiledomain.Profile{
		ID:        h.node.Generate(),
		Kind:      kind,
		Name:      string(kind) + " profile",
		Email:     string(kind) + "@example.com",
		Locale:    profiledomain.LocaleEN,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, h.profiles.Insert(context.Background(), h.db, &profile))
	return profile
}

func (h *harness) createOrder(t *testing.T, base int64) domain.Order {
	t.Helper()
	order, err := h.svc.Create(context.Background(), domain.CreateOrderRequest{
		BuyerID:        h.buyer.ID,
		InfluencerID:   h.influencer.ID.String(),
		BasePrice:      base,
		DateOfDelivery: h.clk.Now().AddDate(0, 0, 7),
		Items:          []domain.CreateOrderItem{{ContentType: "video", Quantity: 1, Price: base}},
	})
	require.NoError(t, err)
	return order
}

// payOrder walks the order through checkout and payment so lifecycle tests
// start from payment_confirmed.
func (h *harness) payOrder(t *testing.T, id snowflake.ID) {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.ApplyEvent(ctx, id, domain.EventCheckoutStarted)
	require.NoError(t, err)
	_, err = h.svc.ApplyEvent(ctx, id, domain.EventPaymentSucceeded)
	require.NoError(t, err)
}

func TestCreateOrderSnapshotsPolicyAndTotal(t *testing.T) {
	h := newHarness(t)

	order := h.createOrder(t, 10000)

	assert.Equal(t, domain.StatusCreated, order.Status)
	assert.Equal(t, int64(20), order.ServiceFeePct)
	assert.Equal(t, int64(5), order.TaxPct)
	assert.Equal(t, int64(2000), order.ServiceCut())
	assert.Equal(t, int64(600), order.BuyerTax())
	assert.Equal(t, int64(12600), order.Total)
}

func TestCreateOrderValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := domain.CreateOrderRequest{
		BuyerID:        h.buyer.ID,
		InfluencerID:   h.influencer.ID.String(),
		BasePrice:      10000,
		DateOfDelivery: h.clk.Now().AddDate(0, 0, 7),
		Items:          []domain.CreateOrderItem{{ContentType: "post", Quantity: 1, Price: 10000}},
	}

	req := base
	req.BasePrice = 0
	_, err := h.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	req = base
	req.DateOfDelivery = h.clk.Now().AddDate(0, 0, -1)
	_, err = h.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDelivery)

	req = base
	req.Items = nil
	_, err = h.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidItems)

	req = base
	req.InfluencerID = h.buyer.ID.String() // not an influencer
	_, err = h.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInfluencer)
}

func TestLifecycleConfirmSettlesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := h.createOrder(t, 10000)
	h.payOrder(t, order.ID)

	_, err := h.svc.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	delivered, err := h.svc.SubmitDelivery(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, delivered.DateItWasDelivered)

	confirmed, err := h.svc.BuyerConfirm(ctx, h.buyer.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)

	// The losing CAS on a second confirm reports invalid_transition and
	// derives nothing new.
	_, err = h.svc.BuyerConfirm(ctx, h.buyer.ID, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	invoice, err := h.invoices.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, int64(10000), invoice.SaleBaseValue)
	assert.Equal(t, int64(2000), invoice.ServiceCutValue)
	assert.Equal(t, int64(600), invoice.TaxValue)
	assert.Equal(t, int64(12600), invoice.SaleTotalValue)

	payout, err := h.payouts.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, int64(10000), payout.Value)
	assert.False(t, payout.Paid)
}

func TestSubmitDeliverySetsDateOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := h.createOrder(t, 5000)
	h.payOrder(t, order.ID)
	_, err := h.svc.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	first, err := h.svc.SubmitDelivery(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	_, err = h.svc.SubmitDelivery(ctx, h.influencer.ID, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	reloaded, err := h.repo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.DateItWasDelivered)
	assert.True(t, reloaded.DateItWasDelivered.Equal(*first.DateItWasDelivered))
}

func TestActorChecks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := h.createOrder(t, 5000)
	h.payOrder(t, order.ID)

	_, err := h.svc.InfluencerAccept(ctx, h.buyer.ID, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	stranger := h.addProfile(t, profiledomain.KindBrand)
	_, err = h.svc.Get(ctx, stranger.ID, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestSweepDeliveryReminders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Due tomorrow and accepted: qualifies for a reminder.
	order, err := h.svc.Create(ctx, domain.CreateOrderRequest{
		BuyerID:        h.buyer.ID,
		InfluencerID:   h.influencer.ID.String(),
		BasePrice:      5000,
		DateOfDelivery: h.clk.Now().Add(20 * time.Hour),
		Items:          []domain.CreateOrderItem{{ContentType: "story", Quantity: 1, Price: 5000}},
	})
	require.NoError(t, err)
	h.payOrder(t, order.ID)
	_, err = h.svc.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	processed, err := h.svc.SweepDeliveryReminders(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 2, h.dispatcher.count(domain.ActionOrderDeliveryReminder))
	assert.Equal(t, 2, h.mailer.count(domain.ActionOrderDeliveryReminder))

	// Rerunning the same day is a no-op.
	processed, err = h.svc.SweepDeliveryReminders(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 2, h.dispatcher.count(domain.ActionOrderDeliveryReminder))
}

func TestSweepOverdueHoldsAndExcludes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := h.createOrder(t, 5000)
	h.payOrder(t, order.ID)
	_, err := h.svc.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	// Past the delivery date without a submission.
	h.clk.Advance(8 * 24 * time.Hour)

	processed, err := h.svc.SweepOverdue(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	reloaded, err := h.repo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, reloaded.Status)
	assert.Equal(t, 2, h.dispatcher.count(domain.ActionOrderOnHold))
	assert.Equal(t, 2, h.mailer.count(domain.ActionOrderOnHold))

	// The status guard excludes held orders from the next run.
	processed, err = h.svc.SweepOverdue(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestLateDeliveryLiftsHold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := h.createOrder(t, 5000)
	h.payOrder(t, order.ID)
	_, err := h.svc.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	h.clk.Advance(8 * 24 * time.Hour)
	_, err = h.svc.SweepOverdue(ctx, h.clk.Now(), 50)
	require.NoError(t, err)

	// The influencer can still submit a late delivery on a held order.
	delivered, err := h.svc.SubmitDelivery(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DateItWasDelivered)

	// Confirming without a delivery is impossible; after one it works.
	confirmed, err := h.svc.BuyerConfirm(ctx, h.buyer.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
}

func TestSweepConfirmExpiredAutoConfirms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order := h.createOrder(t, 10000)
	h.payOrder(t, order.ID)
	_, err := h.svc.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)
	_, err = h.svc.SubmitDelivery(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)

	// Just inside the confirmation window: nothing happens.
	h.clk.Advance(95 * time.Hour)
	processed, err := h.svc.SweepConfirmExpired(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	h.clk.Advance(2 * time.Hour)
	processed, err = h.svc.SweepConfirmExpired(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	reloaded, err := h.repo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAutoConfirmed, reloaded.Status)

	invoice, err := h.invoices.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, invoice)

	// Rerun changes nothing and derives nothing twice.
	processed, err = h.svc.SweepConfirmExpired(ctx, h.clk.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestListFiltersByParticipant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.createOrder(t, 1000)
	h.createOrder(t, 2000)

	resp, err := h.svc.List(ctx, domain.ListOrdersRequest{ActorID: h.buyer.ID, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)

	resp, err = h.svc.List(ctx, domain.ListOrdersRequest{
		ActorID: h.buyer.ID,
		Status:  string(domain.StatusCreated),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)

	other := h.addProfile(t, profiledomain.KindBrand)
	resp, err = h.svc.List(ctx, domain.ListOrdersRequest{ActorID: other.ID})
	require.NoError(t, err)
	assert.Empty(t, resp.Orders)
}
