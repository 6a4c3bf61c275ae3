package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/notification/domain"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder
	Repo   domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyHolder
	repo   domain.Repository
}

// New builds the dispatcher backing every workflow side effect.
func New(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("notification.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,
		repo:   p.Repo,
	}
}

// AsDispatcher exposes the service under the workflow's dispatcher port.
func AsDispatcher(s *Service) orderdomain.Dispatcher { return s }

// AsService exposes the inbox read side.
func AsService(s *Service) domain.Service { return s }

func (s *Service) Notify(ctx context.Context, notifierID, senderID, entityID snowflake.ID, action string) error {
	notification := domain.Notification{
		ID:           s.genID.Generate(),
		NotifierID:   notifierID,
		SenderID:     senderID,
		EntityID:     entityID,
		EntityAction: action,
		CreatedAt:    s.clock.Now().UTC(),
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &notification); err != nil {
			return err
		}
		return s.repo.EvictBeyond(ctx, tx, notifierID, s.policy.Current().NotificationCap)
	})
}

func (s *Service) List(ctx context.Context, actorID snowflake.ID, limit int) ([]domain.Notification, error) {
	cap := s.policy.Current().NotificationCap
	if limit <= 0 || limit > cap {
		limit = cap
	}
	items, err := s.repo.ListByNotifier(ctx, s.db, actorID, limit)
	if err != nil {
		return nil, err
	}
	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		notifications = append(notifications, *item)
	}
	return notifications, nil
}
