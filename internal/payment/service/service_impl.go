package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/observability/metrics"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	"github.com/influmarkt/influmarkt/internal/payment/adapters"
	"github.com/influmarkt/influmarkt/internal/payment/domain"
	pkgdb "github.com/influmarkt/influmarkt/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.PolicyHolder
	Registry *adapters.Registry
	Repo     domain.Repository
	Orders   orderdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.PolicyHolder
	registry *adapters.Registry
	repo     domain.Repository
	orders   orderdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		registry: p.Registry,
		repo:     p.Repo,
		orders:   p.Orders,
		metrics:  p.Metrics,
	}
}

func (s *Service) StartCheckout(ctx context.Context, actorID, orderID snowflake.ID, provider string) (domain.CheckoutSession, error) {
	order, err := s.orders.Get(ctx, actorID, orderID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if order.BuyerID != actorID {
		return domain.CheckoutSession{}, orderdomain.ErrNotParticipant
	}

	// Restarting checkout for an order that already holds an intent is a
	// no-op returning the original session.
	if existing, err := s.repo.FindByOrder(ctx, s.db, orderID); err != nil {
		return domain.CheckoutSession{}, err
	} else if existing != nil {
		return session(existing), nil
	}

	if _, err := orderdomain.NextStatus(order.Status, orderdomain.EventCheckoutStarted); err != nil {
		return domain.CheckoutSession{}, err
	}

	adapter, err := s.adapter(provider)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	intent, err := adapter.CreateIntent(ctx, domain.IntentRequest{
		OrderID:     orderID.String(),
		AmountCents: order.Total,
		Currency:    s.policy.Current().Currency,
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	now := s.clock.Now().UTC()
	payment := domain.Payment{
		ID:               s.genID.Generate(),
		OrderID:          orderID,
		Provider:         adapter.Name(),
		ProviderIntentID: intent.ID,
		Status:           domain.StatusCreated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.InsertPayment(ctx, s.db, &payment); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByOrder(ctx, s.db, orderID)
			if findErr == nil && existing != nil {
				return session(existing), nil
			}
		}
		return domain.CheckoutSession{}, err
	}

	if _, err := s.orders.ApplyEvent(ctx, orderID, orderdomain.EventCheckoutStarted); err != nil {
		if !errors.Is(err, orderdomain.ErrInvalidTransition) {
			return domain.CheckoutSession{}, err
		}
	}

	result := session(&payment)
	result.CheckoutURL = intent.CheckoutURL
	return result, nil
}

// eventRoute maps a gateway event to the payment CAS and the order edge it
// drives.
type eventRoute struct {
	from       []domain.Status
	to         domain.Status
	orderEvent orderdomain.Event
}

var eventRoutes = map[domain.EventType]eventRoute{
	domain.EventProcessing: {
		from:       []domain.Status{domain.StatusCreated},
		to:         domain.StatusProcessing,
		orderEvent: orderdomain.EventPaymentProcessing,
	},
	domain.EventSucceeded: {
		from:       []domain.Status{domain.StatusCreated, domain.StatusProcessing, domain.StatusFailed},
		to:         domain.StatusProcessed,
		orderEvent: orderdomain.EventPaymentSucceeded,
	},
	domain.EventFailed: {
		from:       []domain.Status{domain.StatusCreated, domain.StatusProcessing},
		to:         domain.StatusFailed,
		orderEvent: orderdomain.EventPaymentFailed,
	},
}

func (s *Service) ProcessWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return err
	}

	event, err := adapter.VerifyAndParse(payload, header)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	record, err := s.repo.RecordEvent(ctx, s.db, &domain.EventRecord{
		ID:               s.genID.Generate(),
		Provider:         adapter.Name(),
		ProviderEventID:  event.ProviderEventID,
		EventType:        event.Type,
		ProviderIntentID: event.IntentID,
		Payload:          event.Raw,
		ReceivedAt:       now,
	})
	if err != nil {
		return err
	}
	if record.ProcessedAt != nil {
		return domain.ErrEventAlreadyProcessed
	}

	payment, err := s.repo.FindByIntent(ctx, s.db, adapter.Name(), event.IntentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return domain.ErrIntentNotFound
	}

	route := eventRoutes[event.Type]
	moved, err := s.repo.UpdateStatus(ctx, s.db, payment.ID, route.from, route.to, now)
	if err != nil {
		return err
	}
	if !moved {
		s.log.Info("payment already in target status",
			zap.String("event_type", string(event.Type)),
			zap.Int64("payment_id", payment.ID.Int64()))
	}

	// The order edge runs even when the payment CAS was a no-op: an earlier
	// delivery may have moved the payment and then failed before the order
	// transition, and the gateway redelivers the event because it was never
	// marked processed. Edges already applied come back ErrInvalidTransition.
	if _, err := s.orders.ApplyEvent(ctx, payment.OrderID, route.orderEvent); err != nil {
		if !errors.Is(err, orderdomain.ErrInvalidTransition) {
			return err
		}
		s.log.Warn("order ignored payment event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("order_id", payment.OrderID.Int64()))
	}

	if err := s.repo.MarkEventProcessed(ctx, s.db, record.ID, s.clock.Now().UTC()); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentEvent(ctx, adapter.Name(), string(event.Type))
	}
	return nil
}

func (s *Service) adapter(name string) (domain.Adapter, error) {
	if name == "" {
		return s.registry.Default()
	}
	return s.registry.Get(name)
}

func session(p *domain.Payment) domain.CheckoutSession {
	return domain.CheckoutSession{
		PaymentID: p.ID,
		Provider:  p.Provider,
		IntentID:  p.ProviderIntentID,
	}
}
