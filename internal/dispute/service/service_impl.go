package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/dispute/domain"
	mailerdomain "github.com/influmarkt/influmarkt/internal/mailer/domain"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	pkgdb "github.com/influmarkt/influmarkt/pkg/db"
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
	Repo        domain.Repository
	OrderRepo   orderdomain.Repository
	Orders      orderdomain.Service
	ProfileRepo profiledomain.Repository
	Mailer      mailerdomain.Service
	Dispatcher  orderdomain.Dispatcher
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	repo        domain.Repository
	orderRepo   orderdomain.Repository
	orders      orderdomain.Service
	profileRepo profiledomain.Repository
	mailer      mailerdomain.Service
	dispatcher  orderdomain.Dispatcher
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("dispute.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		repo:        p.Repo,
		orderRepo:   p.OrderRepo,
		orders:      p.Orders,
		profileRepo: p.ProfileRepo,
		mailer:      p.Mailer,
		dispatcher:  p.Dispatcher,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (domain.Dispute, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return domain.Dispute{}, domain.ErrInvalidMessage
	}

	order, err := s.orderRepo.FindByID(ctx, s.db, req.OrderID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if order == nil {
		return domain.Dispute{}, orderdomain.ErrNotFound
	}
	if order.BuyerID != req.ActorID {
		return domain.Dispute{}, orderdomain.ErrNotParticipant
	}
	if !order.Status.Disputable() && order.Status != orderdomain.StatusDisputed {
		return domain.Dispute{}, orderdomain.ErrInvalidTransition
	}

	now := s.clock.Now().UTC()
	dispute, err := s.upsert(ctx, order, message, now)
	if err != nil {
		return domain.Dispute{}, err
	}

	if order.Status != orderdomain.StatusDisputed {
		if _, err := s.orders.ApplyEvent(ctx, order.ID, orderdomain.EventDisputeOpen); err != nil {
			if !errors.Is(err, orderdomain.ErrInvalidTransition) {
				return domain.Dispute{}, err
			}
		}
	}

	s.notifyInbox(ctx, order, dispute)
	s.notify(ctx, order.InfluencerID, order.BuyerID, order.ID, orderdomain.ActionDisputeOpened)

	return *dispute, nil
}

// upsert creates the dispute, refreshes the complaint of an open one, or
// reopens a resolved one. Reopening discards the prior resolution status;
// the old solver and decision stay on the row until overwritten.
func (s *Service) upsert(ctx context.Context, order *orderdomain.Order, message string, now time.Time) (*domain.Dispute, error) {
	existing, err := s.repo.FindByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		dispute := &domain.Dispute{
			ID:        s.genID.Generate(),
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
			Status:    domain.StatusOpen,
			Message:   message,
			OpenedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, s.db, dispute); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return s.upsert(ctx, order, message, now)
			}
			return nil, err
		}
		return dispute, nil
	}

	switch existing.Status {
	case domain.StatusResolved:
		if _, err := s.repo.Reopen(ctx, s.db, existing.ID, message, now); err != nil {
			return nil, err
		}
	default:
		if err := s.repo.UpdateMessage(ctx, s.db, existing.ID, message, now); err != nil {
			return nil, err
		}
	}
	return s.repo.FindByID(ctx, s.db, existing.ID)
}

func (s *Service) Get(ctx context.Context, actorID, orderID snowflake.ID) (domain.Dispute, error) {
	order, err := s.orderRepo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if order == nil {
		return domain.Dispute{}, orderdomain.ErrNotFound
	}

	if actorID != order.BuyerID && actorID != order.InfluencerID {
		if solver, err := s.solver(ctx, actorID); err != nil || solver == nil {
			return domain.Dispute{}, orderdomain.ErrNotParticipant
		}
	}

	dispute, err := s.repo.FindByOrder(ctx, s.db, orderID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if dispute == nil {
		return domain.Dispute{}, domain.ErrNotFound
	}
	return *dispute, nil
}

func (s *Service) Claim(ctx context.Context, actorID, disputeID snowflake.ID) (domain.Dispute, error) {
	solver, err := s.solver(ctx, actorID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if solver == nil {
		return domain.Dispute{}, domain.ErrNotSolver
	}

	dispute, err := s.repo.FindByID(ctx, s.db, disputeID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if dispute == nil {
		return domain.Dispute{}, domain.ErrNotFound
	}

	ok, err := s.repo.Claim(ctx, s.db, disputeID, actorID, s.clock.Now().UTC())
	if err != nil {
		return domain.Dispute{}, err
	}
	if !ok {
		return domain.Dispute{}, domain.ErrAlreadyClaimed
	}

	claimed, err := s.repo.FindByID(ctx, s.db, disputeID)
	if err != nil {
		return domain.Dispute{}, err
	}
	return *claimed, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.Dispute, error) {
	decision := strings.TrimSpace(req.DecisionMessage)
	if decision == "" {
		return domain.Dispute{}, domain.ErrInvalidMessage
	}

	solver, err := s.solver(ctx, req.ActorID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if solver == nil {
		return domain.Dispute{}, domain.ErrNotSolver
	}

	dispute, err := s.repo.FindByID(ctx, s.db, req.DisputeID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if dispute == nil {
		return domain.Dispute{}, domain.ErrNotFound
	}

	ok, err := s.repo.Resolve(ctx, s.db, req.DisputeID, req.ActorID, req.InfluencerFault, decision, s.clock.Now().UTC())
	if err != nil {
		return domain.Dispute{}, err
	}
	if !ok {
		if dispute.SolverID != nil && *dispute.SolverID != req.ActorID {
			return domain.Dispute{}, domain.ErrNotSolver
		}
		return domain.Dispute{}, domain.ErrNotClaimed
	}

	event := orderdomain.EventDisputeInfluencerW
	if req.InfluencerFault {
		event = orderdomain.EventDisputeBuyerWins
	}
	order, err := s.orders.ApplyEvent(ctx, dispute.OrderID, event)
	if err != nil {
		if !errors.Is(err, orderdomain.ErrInvalidTransition) {
			return domain.Dispute{}, err
		}
		loaded, lerr := s.orderRepo.FindByID(ctx, s.db, dispute.OrderID)
		if lerr != nil {
			return domain.Dispute{}, lerr
		}
		if loaded == nil {
			return domain.Dispute{}, orderdomain.ErrNotFound
		}
		order = *loaded
	}

	s.sendVerdict(ctx, &order, req.InfluencerFault, decision)

	resolved, err := s.repo.FindByID(ctx, s.db, req.DisputeID)
	if err != nil {
		return domain.Dispute{}, err
	}
	return *resolved, nil
}

func (s *Service) solver(ctx context.Context, actorID snowflake.ID) (*profiledomain.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, s.db, actorID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Kind != profiledomain.KindSolver {
		return nil, nil
	}
	return profile, nil
}

func (s *Service) notifyInbox(ctx context.Context, order *orderdomain.Order, dispute *domain.Dispute) {
	err := s.mailer.SendToAddress(ctx, orderdomain.ActionDisputeOpened, s.cfg.PlatformInboxEmail, profiledomain.LocaleEN, map[string]string{
		"order_id":   order.ID.String(),
		"dispute_id": dispute.ID.String(),
		"message":    dispute.Message,
		"order_url":  s.cfg.PublicBaseURL + "/orders/" + order.ID.String(),
	})
	if err != nil {
		s.log.Warn("platform inbox email failed",
			zap.Int64("dispute_id", dispute.ID.Int64()),
			zap.Error(err))
	}
}

// sendVerdict emails both parties the decision with a follow-up link.
func (s *Service) sendVerdict(ctx context.Context, order *orderdomain.Order, influencerFault bool, decision string) {
	winner, loser := order.InfluencerID, order.BuyerID
	if influencerFault {
		winner, loser = order.BuyerID, order.InfluencerID
	}

	params := map[string]string{
		"order_id":  order.ID.String(),
		"decision":  decision,
		"order_url": s.cfg.PublicBaseURL + "/orders/" + order.ID.String(),
	}
	s.mail(ctx, order, orderdomain.ActionDisputeWon, winner, params)
	s.mail(ctx, order, orderdomain.ActionDisputeLost, loser, params)
	s.notify(ctx, winner, loser, order.ID, orderdomain.ActionDisputeWon)
	s.notify(ctx, loser, winner, order.ID, orderdomain.ActionDisputeLost)
}

func (s *Service) mail(ctx context.Context, order *orderdomain.Order, action string, recipient snowflake.ID, params map[string]string) {
	err := s.mailer.Send(ctx, orderdomain.Mail{
		Action:      action,
		RecipientID: recipient,
		Params:      params,
	})
	if err != nil {
		s.log.Warn("dispute email failed",
			zap.String("action", action),
			zap.Int64("order_id", order.ID.Int64()),
			zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) {
	if err := s.dispatcher.Notify(ctx, notifierID, senderID, entityID, action); err != nil {
		s.log.Warn("dispute notification failed",
			zap.String("action", action),
			zap.Int64("order_id", entityID.Int64()),
			zap.Error(err))
	}
}
