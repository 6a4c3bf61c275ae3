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
	"github.com/influmarkt/influmarkt/internal/dispute/domain"
	disputerepo "github.com/influmarkt/influmarkt/internal/dispute/repository"
	invoicedomain "github.com/influmarkt/influmarkt/internal/invoice/domain"
	invoicerepo "github.com/influmarkt/influmarkt/internal/invoice/repository"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	orderrepo "github.com/influmarkt/influmarkt/internal/order/repository"
	orderservice "github.com/influmarkt/influmarkt/internal/order/service"
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

type noopDispatcher struct{}

func (noopDispatcher) Notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) error {
	return nil
}

// recordingMailer satisfies both the order Mailer and the mailer Service so
// the dispute inbox path is observable.
type recordingMailer struct {
	mu        sync.Mutex
	mails     []orderdomain.Mail
	addressed []string
}

func (m *recordingMailer) Send(ctx context.Context, mail orderdomain.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, mail)
	return nil
}

func (m *recordingMailer) SendToAddress(ctx context.Context, action, to string, locale profiledomain.Locale, params map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addressed = append(m.addressed, to+":"+action)
	return nil
}

// lastActionFor returns the most recent mail action sent to the recipient,
// so verdict assertions are not shadowed by earlier lifecycle mails.
func (m *recordingMailer) lastActionFor(recipient snowflake.ID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.mails) - 1; i >= 0; i-- {
		if m.mails[i].RecipientID == recipient {
			return m.mails[i].Action
		}
	}
	return ""
}

type harness struct {
	db         *gorm.DB
	svc        domain.Service
	orders     orderdomain.Service
	orderRepo  orderdomain.Repository
	payouts    payoutdomain.Repository
	mailer     *recordingMailer
	clk        *clock.FakeClock
	profiles   profiledomain.Repository
	node       *snowflake.Node
	buyer      profiledomain.Profile
	influencer profiledomain.Profile
	solver     profiledomain.Profile
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
		&domain.Dispute{},
		&invoicedomain.Invoice{},
		&payoutdomain.Payout{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
	mailer := &recordingMailer{}
	profiles := profilerepo.Provide()
	oRepo := orderrepo.Provide()
	invoices := invoicerepo.Provide()
	payouts := payoutrepo.Provide()

	settler := settlement.New(settlement.Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		ProfileRepo: profiles,
		InvoiceRepo: invoices,
		PayoutRepo:  payouts,
	})

	cfg := config.Config{
		PublicBaseURL:      "https://app.example.com",
		PlatformInboxEmail: "disputes@example.com",
	}

	orders := orderservice.New(orderservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Config:      cfg,
		Policy:      config.StaticPolicyHolder(config.DefaultPolicy()),
		Repo:        oRepo,
		ProfileRepo: profiles,
		Dispatcher:  noopDispatcher{},
		Mailer:      mailer,
		Settler:     settler,
	})

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Config:      cfg,
		Repo:        disputerepo.Provide(),
		OrderRepo:   oRepo,
		Orders:      orders,
		ProfileRepo: profiles,
		Mailer:      mailer,
		Dispatcher:  noopDispatcher{},
	})

	h := &harness{
		db: db, svc: svc, orders: orders, orderRepo: oRepo, payouts: payouts,
		mailer: mailer, clk: clk, profiles: profiles, node: node,
	}
	h.buyer = h.addProfile(t, profiledomain.KindBrand)
	h.influencer = h.addProfile(t, profiledomain.KindInfluencer)
	h.solver = h.addProfile(t, profiledomain.KindSolver)
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

// deliveredOrder walks a fresh order to delivered, the earliest disputable
// status.
func (h *harness) deliveredOrder(t *testing.T) orderdomain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := h.orders.Create(ctx, orderdomain.CreateOrderRequest{
		BuyerID:        h.buyer.ID,
		InfluencerID:   h.influencer.ID.String(),
		BasePrice:      10000,
		DateOfDelivery: h.clk.Now().AddDate(0, 0, 7),
		Items:          []orderdomain.CreateOrderItem{{ContentType: "video", Quantity: 1, Price: 10000}},
	})
	require.NoError(t, err)

	_, err = h.orders.ApplyEvent(ctx, order.ID, orderdomain.EventCheckoutStarted)
	require.NoError(t, err)
	_, err = h.orders.ApplyEvent(ctx, order.ID, orderdomain.EventPaymentSucceeded)
	require.NoError(t, err)
	_, err = h.orders.InfluencerAccept(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)
	delivered, err := h.orders.SubmitDelivery(ctx, h.influencer.ID, order.ID)
	require.NoError(t, err)
	return delivered
}

func TestOpenDispute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	dispute, err := h.svc.Open(ctx, domain.OpenRequest{
		ActorID: h.buyer.ID,
		OrderID: order.ID,
		Message: "content never matched the brief",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, dispute.Status)
	assert.Equal(t, order.ID, dispute.OrderID)

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusDisputed, reloaded.Status)
	assert.Contains(t, h.mailer.addressed, "disputes@example.com:dispute_opened")
}

func TestOpenDisputeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	_, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)

	_, err = h.svc.Open(ctx, domain.OpenRequest{ActorID: h.influencer.ID, OrderID: order.ID, Message: "not mine to open"})
	assert.ErrorIs(t, err, orderdomain.ErrNotParticipant)
}

func TestOpenDisputeRejectsUndeliveredOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order, err := h.orders.Create(ctx, orderdomain.CreateOrderRequest{
		BuyerID:        h.buyer.ID,
		InfluencerID:   h.influencer.ID.String(),
		BasePrice:      5000,
		DateOfDelivery: h.clk.Now().AddDate(0, 0, 7),
		Items:          []orderdomain.CreateOrderItem{{ContentType: "post", Quantity: 1, Price: 5000}},
	})
	require.NoError(t, err)

	_, err = h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "too early"})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidTransition)
}

func TestOpenTwiceRefreshesMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	first, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "first complaint"})
	require.NoError(t, err)

	second, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "updated complaint"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "updated complaint", second.Message)
	assert.Equal(t, domain.StatusOpen, second.Status)
}

func TestClaimDispute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	dispute, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "complaint"})
	require.NoError(t, err)

	_, err = h.svc.Claim(ctx, h.buyer.ID, dispute.ID)
	assert.ErrorIs(t, err, domain.ErrNotSolver)

	claimed, err := h.svc.Claim(ctx, h.solver.ID, dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, claimed.Status)
	require.NotNil(t, claimed.SolverID)
	assert.Equal(t, h.solver.ID, *claimed.SolverID)

	other := h.addProfile(t, profiledomain.KindSolver)
	_, err = h.svc.Claim(ctx, other.ID, dispute.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
}

func TestResolveInfluencerFault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	dispute, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "complaint"})
	require.NoError(t, err)
	_, err = h.svc.Claim(ctx, h.solver.ID, dispute.ID)
	require.NoError(t, err)

	resolved, err := h.svc.Resolve(ctx, domain.ResolveRequest{
		ActorID:         h.solver.ID,
		DisputeID:       dispute.ID,
		InfluencerFault: true,
		DecisionMessage: "brief was not met",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, resolved.Status)

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusResolvedBuyer, reloaded.Status)

	// Buyer wins: no payout is derived.
	payout, err := h.payouts.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Nil(t, payout)

	assert.Equal(t, orderdomain.ActionDisputeWon, h.mailer.lastActionFor(h.buyer.ID))
	assert.Equal(t, orderdomain.ActionDisputeLost, h.mailer.lastActionFor(h.influencer.ID))
}

func TestResolveBuyerFaultSettles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	dispute, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "complaint"})
	require.NoError(t, err)
	_, err = h.svc.Claim(ctx, h.solver.ID, dispute.ID)
	require.NoError(t, err)

	_, err = h.svc.Resolve(ctx, domain.ResolveRequest{
		ActorID:         h.solver.ID,
		DisputeID:       dispute.ID,
		InfluencerFault: false,
		DecisionMessage: "delivery met the brief",
	})
	require.NoError(t, err)

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusResolvedInfluencer, reloaded.Status)

	payout, err := h.payouts.FindByOrder(ctx, h.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, int64(10000), payout.Value)
}

func TestResolveGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	dispute, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "complaint"})
	require.NoError(t, err)

	// Unclaimed dispute cannot be resolved.
	_, err = h.svc.Resolve(ctx, domain.ResolveRequest{
		ActorID: h.solver.ID, DisputeID: dispute.ID, DecisionMessage: "verdict",
	})
	assert.ErrorIs(t, err, domain.ErrNotClaimed)

	_, err = h.svc.Claim(ctx, h.solver.ID, dispute.ID)
	require.NoError(t, err)

	// Another solver cannot resolve someone else's claim.
	other := h.addProfile(t, profiledomain.KindSolver)
	_, err = h.svc.Resolve(ctx, domain.ResolveRequest{
		ActorID: other.ID, DisputeID: dispute.ID, DecisionMessage: "verdict",
	})
	assert.ErrorIs(t, err, domain.ErrNotSolver)

	_, err = h.svc.Resolve(ctx, domain.ResolveRequest{
		ActorID: h.solver.ID, DisputeID: dispute.ID, DecisionMessage: "  ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
}

func TestReopenResolvedDispute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t)

	dispute, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "complaint"})
	require.NoError(t, err)
	_, err = h.svc.Claim(ctx, h.solver.ID, dispute.ID)
	require.NoError(t, err)
	_, err = h.svc.Resolve(ctx, domain.ResolveRequest{
		ActorID: h.solver.ID, DisputeID: dispute.ID, InfluencerFault: false, DecisionMessage: "verdict",
	})
	require.NoError(t, err)

	reopened, err := h.svc.Open(ctx, domain.OpenRequest{ActorID: h.buyer.ID, OrderID: order.ID, Message: "still wrong"})
	require.NoError(t, err)
	assert.Equal(t, dispute.ID, reopened.ID)
	assert.Equal(t, domain.StatusOpen, reopened.Status)
	assert.Equal(t, "still wrong", reopened.Message)

	reloaded, err := h.orderRepo.FindByID(ctx, h.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusDisputed, reloaded.Status)
}
