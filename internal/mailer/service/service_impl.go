package service

import (
	"context"

	"github.com/influmarkt/influmarkt/internal/mailer/domain"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	ProfileRepo profiledomain.Repository
	Sender      domain.Sender
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	profileRepo profiledomain.Repository
	sender      domain.Sender
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("mailer.service"),
		profileRepo: p.ProfileRepo,
		sender:      p.Sender,
	}
}

// AsService exposes the full mailer port.
func AsService(s *Service) domain.Service { return s }

// AsMailer exposes the profile-addressed port the order workflow consumes.
func AsMailer(s *Service) orderdomain.Mailer { return s }

// Send emails the profile behind mail.RecipientID, silently no-oping when the
// recipient disabled emails.
func (s *Service) Send(ctx context.Context, mail orderdomain.Mail) error {
	recipient, err := s.profileRepo.FindByID(ctx, s.db, mail.RecipientID)
	if err != nil {
		return err
	}
	if recipient == nil {
		return domain.ErrUnknownRecipient
	}
	if recipient.EmailsDisabled {
		s.log.Debug("recipient has emails disabled",
			zap.Int64("profile_id", recipient.ID.Int64()),
			zap.String("action", mail.Action))
		return nil
	}

	subject, body, err := render(mail.Action, recipient.Locale, mail.Params)
	if err != nil {
		return err
	}
	return s.sender.SendHTML(ctx, recipient.Email, subject, body)
}

func (s *Service) SendToAddress(ctx context.Context, action, to string, locale profiledomain.Locale, params map[string]string) error {
	subject, body, err := render(action, locale, params)
	if err != nil {
		return err
	}
	return s.sender.SendHTML(ctx, to, subject, body)
}
