package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrder         = "order"
	ObjectDispute       = "dispute"
	ObjectPayoutInvoice = "payout_invoice"
	ObjectNotification  = "notification"
	ObjectSweep         = "sweep"
)

const (
	ActionOrderCreate   = "order.create"
	ActionOrderView     = "order.view"
	ActionOrderCheckout = "order.checkout"
	ActionOrderAccept   = "order.accept"
	ActionOrderReject   = "order.reject"
	ActionOrderDeliver  = "order.deliver"
	ActionOrderConfirm  = "order.confirm"
	ActionOrderCancel   = "order.cancel"

	ActionDisputeOpen    = "dispute.open"
	ActionDisputeView    = "dispute.view"
	ActionDisputeClaim   = "dispute.claim"
	ActionDisputeResolve = "dispute.resolve"

	ActionPayoutInvoiceSubmit  = "payout_invoice.submit"
	ActionPayoutInvoiceView    = "payout_invoice.view"
	ActionPayoutInvoiceClaim   = "payout_invoice.claim"
	ActionPayoutInvoiceAccept  = "payout_invoice.accept"
	ActionPayoutInvoiceReject  = "payout_invoice.reject"
	ActionPayoutInvoiceReceipt = "payout_invoice.receipt"

	ActionNotificationView = "notification.view"

	ActionSweepTrigger = "sweep.trigger"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize checks that the actor may perform action on object.
	// Actors are "profile:<id>" or "system".
	Authorize(ctx context.Context, actor, object, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Profiles profiledomain.Repository
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	profiles profiledomain.Repository
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		profiles: p.Profiles,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	if strings.TrimSpace(object) == "" {
		return ErrInvalidObject
	}
	if strings.TrimSpace(action) == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action))
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "profile:") {
		raw := strings.TrimPrefix(actor, "profile:")
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return "", "", ErrInvalidActor
		}
		profile, err := s.profiles.FindByID(ctx, s.db, id)
		if err != nil {
			return "", "", err
		}
		if profile == nil {
			return "", "", ErrInvalidActor
		}
		return actor, roleForKind(profile.Kind), nil
	}
	return "", "", ErrInvalidActor
}

func roleForKind(kind profiledomain.Kind) string {
	switch kind {
	case profiledomain.KindBrand:
		return "role:buyer"
	case profiledomain.KindInfluencer:
		return "role:influencer"
	case profiledomain.KindSolver:
		return "role:solver"
	}
	return fmt.Sprintf("role:%s", strings.ToLower(string(kind)))
}

func (s *ServiceImpl) ensureGrouping(subject, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Buyers order and dispute.
		{"role:buyer", ObjectOrder, ActionOrderCreate},
		{"role:buyer", ObjectOrder, ActionOrderView},
		{"role:buyer", ObjectOrder, ActionOrderCheckout},
		{"role:buyer", ObjectOrder, ActionOrderConfirm},
		{"role:buyer", ObjectOrder, ActionOrderCancel},
		{"role:buyer", ObjectDispute, ActionDisputeOpen},
		{"role:buyer", ObjectDispute, ActionDisputeView},
		{"role:buyer", ObjectNotification, ActionNotificationView},

		// Influencers deliver and get paid.
		{"role:influencer", ObjectOrder, ActionOrderView},
		{"role:influencer", ObjectOrder, ActionOrderAccept},
		{"role:influencer", ObjectOrder, ActionOrderReject},
		{"role:influencer", ObjectOrder, ActionOrderDeliver},
		{"role:influencer", ObjectDispute, ActionDisputeView},
		{"role:influencer", ObjectPayoutInvoice, ActionPayoutInvoiceSubmit},
		{"role:influencer", ObjectPayoutInvoice, ActionPayoutInvoiceView},
		{"role:influencer", ObjectPayoutInvoice, ActionPayoutInvoiceReceipt},
		{"role:influencer", ObjectNotification, ActionNotificationView},

		// Solvers arbitrate disputes and review payout invoices.
		{"role:solver", ObjectOrder, ActionOrderView},
		{"role:solver", ObjectDispute, ActionDisputeView},
		{"role:solver", ObjectDispute, ActionDisputeClaim},
		{"role:solver", ObjectDispute, ActionDisputeResolve},
		{"role:solver", ObjectPayoutInvoice, ActionPayoutInvoiceView},
		{"role:solver", ObjectPayoutInvoice, ActionPayoutInvoiceClaim},
		{"role:solver", ObjectPayoutInvoice, ActionPayoutInvoiceAccept},
		{"role:solver", ObjectPayoutInvoice, ActionPayoutInvoiceReject},
		{"role:solver", ObjectPayoutInvoice, ActionPayoutInvoiceReceipt},
		{"role:solver", ObjectNotification, ActionNotificationView},

		// The platform itself runs sweeps.
		{"role:system", ObjectSweep, ActionSweepTrigger},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
