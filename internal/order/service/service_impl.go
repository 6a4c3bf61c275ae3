package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/observability/metrics"
	"github.com/influmarkt/influmarkt/internal/order/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	"github.com/influmarkt/influmarkt/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Policy      *config.PolicyHolder
	Repo        domain.Repository
	ProfileRepo profiledomain.Repository
	Dispatcher  domain.Dispatcher
	Mailer      domain.Mailer
	Settler     domain.Settler
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	policy      *config.PolicyHolder
	repo        domain.Repository
	profileRepo profiledomain.Repository
	dispatcher  domain.Dispatcher
	mailer      domain.Mailer
	settler     domain.Settler
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		policy:      p.Policy,
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		dispatcher:  p.Dispatcher,
		mailer:      p.Mailer,
		settler:     p.Settler,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if req.BuyerID == 0 {
		return domain.Order{}, domain.ErrInvalidBuyer
	}
	influencerID, err := snowflake.ParseString(strings.TrimSpace(req.InfluencerID))
	if err != nil || influencerID == 0 {
		return domain.Order{}, domain.ErrInvalidInfluencer
	}
	if req.BasePrice <= 0 {
		return domain.Order{}, domain.ErrInvalidPrice
	}
	if req.Discount != nil && *req.Discount < 0 {
		return domain.Order{}, domain.ErrInvalidPrice
	}
	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrInvalidItems
	}
	for _, item := range req.Items {
		if item.ContentType == "" || item.Quantity <= 0 || item.Price < 0 {
			return domain.Order{}, domain.ErrInvalidItems
		}
	}

	now := s.clock.Now().UTC()
	if !req.DateOfDelivery.After(now) {
		return domain.Order{}, domain.ErrInvalidDelivery
	}

	influencer, err := s.profileRepo.FindByID(ctx, s.db, influencerID)
	if err != nil {
		return domain.Order{}, err
	}
	if influencer == nil || influencer.Kind != profiledomain.KindInfluencer {
		return domain.Order{}, domain.ErrInvalidInfluencer
	}

	policy := s.policy.Current()
	order := domain.Order{
		ID:             s.genID.Generate(),
		BuyerID:        req.BuyerID,
		InfluencerID:   influencerID,
		Status:         domain.StatusCreated,
		BasePrice:      req.BasePrice,
		ServiceFeePct:  policy.ServiceFeePct,
		TaxPct:         policy.TaxPct,
		Discount:       req.Discount,
		DateOfDelivery: req.DateOfDelivery.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	order.Total = order.ComputeTotal()

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ID:          s.genID.Generate(),
			OrderID:     order.ID,
			ContentType: item.ContentType,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *Service) Get(ctx context.Context, actorID, id snowflake.ID) (domain.OrderWithItems, error) {
	order, err := s.loadParticipant(ctx, actorID, id)
	if err != nil {
		return domain.OrderWithItems{}, err
	}
	items, err := s.repo.FindItems(ctx, s.db, id)
	if err != nil {
		return domain.OrderWithItems{}, err
	}
	return domain.OrderWithItems{Order: *order, Items: items}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrdersRequest) (domain.ListOrdersResponse, error) {
	if req.ActorID == 0 {
		return domain.ListOrdersResponse{}, domain.ErrNotParticipant
	}

	actor, err := s.profileRepo.FindByID(ctx, s.db, req.ActorID)
	if err != nil {
		return domain.ListOrdersResponse{}, err
	}
	if actor == nil {
		return domain.ListOrdersResponse{}, domain.ErrNotParticipant
	}

	filter := domain.ListFilter{Status: domain.Status(strings.TrimSpace(req.Status))}
	if actor.Kind == profiledomain.KindInfluencer {
		filter.InfluencerID = req.ActorID
	} else {
		filter.BuyerID = req.ActorID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListOrdersResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        order.ID.String(),
			CreatedAt: order.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		orders = append(orders, *item)
	}

	resp := domain.ListOrdersResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) InfluencerAccept(ctx context.Context, actorID, id snowflake.ID) (domain.Order, error) {
	order, err := s.loadParticipant(ctx, actorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.InfluencerID != actorID {
		return domain.Order{}, domain.ErrNotParticipant
	}
	return s.apply(ctx, order, domain.EventInfluencerAccept)
}

func (s *Service) InfluencerReject(ctx context.Context, actorID, id snowflake.ID) (domain.Order, error) {
	order, err := s.loadParticipant(ctx, actorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.InfluencerID != actorID {
		return domain.Order{}, domain.ErrNotParticipant
	}
	return s.apply(ctx, order, domain.EventInfluencerReject)
}

func (s *Service) SubmitDelivery(ctx context.Context, actorID, id snowflake.ID) (domain.Order, error) {
	order, err := s.loadParticipant(ctx, actorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.InfluencerID != actorID {
		return domain.Order{}, domain.ErrNotParticipant
	}
	if _, err := domain.NextStatus(order.Status, domain.EventDeliverySubmitted); err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now().UTC()
	ok, err := s.repo.MarkDelivered(ctx, s.db, order.ID, now)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	s.recordTransition(order.Status, domain.StatusDelivered)
	order.Status = domain.StatusDelivered
	order.DateItWasDelivered = &now
	s.emit(ctx, order, domain.EventDeliverySubmitted)
	return *order, nil
}

func (s *Service) BuyerConfirm(ctx context.Context, actorID, id snowflake.ID) (domain.Order, error) {
	order, err := s.loadParticipant(ctx, actorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.BuyerID != actorID {
		return domain.Order{}, domain.ErrNotParticipant
	}
	return s.apply(ctx, order, domain.EventBuyerConfirm)
}

func (s *Service) BuyerCancelOnHold(ctx context.Context, actorID, id snowflake.ID) (domain.Order, error) {
	order, err := s.loadParticipant(ctx, actorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.BuyerID != actorID {
		return domain.Order{}, domain.ErrNotParticipant
	}
	return s.apply(ctx, order, domain.EventBuyerCancelOnHold)
}

func (s *Service) ApplyEvent(ctx context.Context, id snowflake.ID, event domain.Event) (domain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return s.apply(ctx, order, event)
}

// apply performs the compare-and-swap transition, settles when the new status
// entitles the influencer to funds, and fires side effects. A lost race
// surfaces as ErrInvalidTransition so at-least-once callers can treat it as
// already-processed.
func (s *Service) apply(ctx context.Context, order *domain.Order, event domain.Event) (domain.Order, error) {
	next, err := domain.NextStatus(order.Status, event)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.Transition(ctx, tx, order.ID, order.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		if next.Settles() {
			return s.settler.Settle(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.recordTransition(order.Status, next)
	order.Status = next
	order.UpdatedAt = now
	s.emit(ctx, order, event)
	return *order, nil
}

func (s *Service) SweepDeliveryReminders(ctx context.Context, now time.Time, batch int) (int, error) {
	policy := s.policy.Current()
	today := midnight(now)
	due := today.AddDate(0, 0, policy.ReminderLeadDays)

	orders, err := s.repo.FindDueOn(ctx, s.db, due, today, batch)
	if err != nil {
		return 0, err
	}

	var errs []error
	processed := 0
	for _, order := range orders {
		ok, err := s.repo.MarkReminded(ctx, s.db, order.ID, today)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		s.notify(ctx, order.InfluencerID, order.BuyerID, order.ID, domain.ActionOrderDeliveryReminder)
		s.notify(ctx, order.BuyerID, order.InfluencerID, order.ID, domain.ActionOrderDeliveryReminder)
		s.mail(ctx, order, domain.ActionOrderDeliveryReminder, order.InfluencerID)
		s.mail(ctx, order, domain.ActionOrderDeliveryReminder, order.BuyerID)
		processed++
	}
	return processed, errors.Join(errs...)
}

func (s *Service) SweepOverdue(ctx context.Context, now time.Time, batch int) (int, error) {
	orders, err := s.repo.FindOverdue(ctx, s.db, midnight(now), batch)
	if err != nil {
		return 0, err
	}

	var errs []error
	processed := 0
	for _, order := range orders {
		if _, err := s.apply(ctx, order, domain.EventHoldOverdue); err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) {
				errs = append(errs, err)
			}
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

func (s *Service) SweepConfirmExpired(ctx context.Context, now time.Time, batch int) (int, error) {
	policy := s.policy.Current()
	cutoff := now.UTC().Add(-time.Duration(policy.ConfirmWindowHours) * time.Hour)

	orders, err := s.repo.FindConfirmExpired(ctx, s.db, cutoff, batch)
	if err != nil {
		return 0, err
	}

	var errs []error
	processed := 0
	for _, order := range orders {
		if _, err := s.apply(ctx, order, domain.EventAutoConfirm); err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) {
				errs = append(errs, err)
			}
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

func (s *Service) loadParticipant(ctx context.Context, actorID, id snowflake.ID) (*domain.Order, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if actorID != order.BuyerID && actorID != order.InfluencerID {
		return nil, domain.ErrNotParticipant
	}
	return order, nil
}

// sideEffect names the parties addressed after a transition.
type sideEffect struct {
	action         string
	toBuyer        bool
	toInfluencer   bool
	mailBuyer      bool
	mailInfluencer bool
}

// sideEffects is the per-event dispatch table. Dispute edges are absent: the
// dispute subsystem owns their messaging.
var sideEffects = map[domain.Event]sideEffect{
	domain.EventPaymentSucceeded: {action: domain.ActionOrderPaid, toInfluencer: true, mailInfluencer: true},
	domain.EventPaymentFailed:    {action: domain.ActionOrderPaymentFailed, toBuyer: true, mailBuyer: true},
	domain.EventInfluencerAccept: {action: domain.ActionOrderAccepted, toBuyer: true, mailBuyer: true},
	domain.EventInfluencerReject: {action: domain.ActionOrderRejected, toBuyer: true, mailBuyer: true},
	domain.EventDeliverySubmitted: {
		action: domain.ActionOrderDelivered, toBuyer: true, mailBuyer: true,
	},
	domain.EventBuyerConfirm: {action: domain.ActionOrderConfirmed, toInfluencer: true, mailInfluencer: true},
	domain.EventAutoConfirm: {
		action: domain.ActionOrderAutoConfirmed, toBuyer: true, toInfluencer: true, mailBuyer: true, mailInfluencer: true,
	},
	domain.EventHoldOverdue: {
		action: domain.ActionOrderOnHold, toBuyer: true, toInfluencer: true, mailBuyer: true, mailInfluencer: true,
	},
	domain.EventBuyerCancelOnHold: {action: domain.ActionOrderCanceled, toInfluencer: true, mailInfluencer: true},
}

// emit fires notifications and emails for the event. Side effects are
// best-effort: failures are logged and never undo the persisted transition.
func (s *Service) emit(ctx context.Context, order *domain.Order, event domain.Event) {
	effect, ok := sideEffects[event]
	if !ok {
		return
	}
	if effect.toBuyer {
		s.notify(ctx, order.BuyerID, order.InfluencerID, order.ID, effect.action)
	}
	if effect.toInfluencer {
		s.notify(ctx, order.InfluencerID, order.BuyerID, order.ID, effect.action)
	}
	if effect.mailBuyer {
		s.mail(ctx, order, effect.action, order.BuyerID)
	}
	if effect.mailInfluencer {
		s.mail(ctx, order, effect.action, order.InfluencerID)
	}
}

func (s *Service) notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) {
	if err := s.dispatcher.Notify(ctx, notifierID, senderID, entityID, action); err != nil {
		s.log.Warn("notification dispatch failed",
			zap.String("action", action),
			zap.Int64("order_id", entityID.Int64()),
			zap.Error(err))
	}
}

func (s *Service) mail(ctx context.Context, order *domain.Order, action string, recipient snowflake.ID) {
	err := s.mailer.Send(ctx, domain.Mail{
		Action:      action,
		RecipientID: recipient,
		Params: map[string]string{
			"order_id":  order.ID.String(),
			"order_url": s.cfg.PublicBaseURL + "/orders/" + order.ID.String(),
			"total":     strconv.FormatInt(order.Total, 10),
			"deadline":  order.DateOfDelivery.Format("2006-01-02"),
		},
	})
	if err != nil {
		s.log.Warn("email dispatch failed",
			zap.String("action", action),
			zap.Int64("order_id", order.ID.Int64()),
			zap.Error(err))
	}
}

func (s *Service) recordTransition(from, to domain.Status) {
	if s.metrics != nil {
		s.metrics.RecordOrderTransition(string(from), string(to))
	}
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
