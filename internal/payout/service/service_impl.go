package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	paymentdomain "github.com/influmarkt/influmarkt/internal/payment/domain"
	"github.com/influmarkt/influmarkt/internal/payout/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
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
	Policy      *config.PolicyHolder
	Repo        domain.Repository
	ProfileRepo profiledomain.Repository
	Transferrer paymentdomain.Transferrer
	Renderer    domain.ReceiptRenderer
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyHolder
	repo        domain.Repository
	profileRepo profiledomain.Repository
	transferrer paymentdomain.Transferrer
	renderer    domain.ReceiptRenderer
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payout.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		policy:      p.Policy,
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		transferrer: p.Transferrer,
		renderer:    p.Renderer,
	}
}

func (s *Service) SubmitInvoice(ctx context.Context, actorID snowflake.ID, documentRef string) (domain.PayoutInvoice, error) {
	documentRef = strings.TrimSpace(documentRef)
	if documentRef == "" {
		return domain.PayoutInvoice{}, domain.ErrInvalidDocument
	}

	influencer, err := s.profileRepo.FindByID(ctx, s.db, actorID)
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if influencer == nil || influencer.Kind != profiledomain.KindInfluencer {
		return domain.PayoutInvoice{}, domain.ErrNotInfluencer
	}

	now := s.clock.Now().UTC()
	cutoff := startOfMonth(now)

	invoice := domain.PayoutInvoice{
		ID:           s.genID.Generate(),
		InfluencerID: actorID,
		Status:       domain.InvoiceSubmitted,
		DocumentRef:  documentRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertInvoice(ctx, tx, &invoice); err != nil {
			return err
		}
		attached, err := s.repo.AttachEligible(ctx, tx, invoice.ID, actorID, cutoff, now)
		if err != nil {
			return err
		}
		if attached == 0 {
			return domain.ErrNoEligiblePayouts
		}
		payouts, err := s.repo.FindByInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		var value int64
		for _, payout := range payouts {
			value += payout.Value - payout.TaxValue
		}
		invoice.InvoiceValue = value
		return s.repo.UpdateInvoiceValue(ctx, tx, invoice.ID, value, now)
	})
	if err != nil {
		return domain.PayoutInvoice{}, err
	}

	return invoice, nil
}

func (s *Service) GetInvoice(ctx context.Context, actorID, id snowflake.ID) (domain.PayoutInvoice, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if invoice == nil {
		return domain.PayoutInvoice{}, domain.ErrNotFound
	}
	if invoice.InfluencerID != actorID {
		if reviewer, err := s.reviewer(ctx, actorID); err != nil || reviewer == nil {
			return domain.PayoutInvoice{}, domain.ErrNotFound
		}
	}
	return *invoice, nil
}

func (s *Service) Claim(ctx context.Context, actorID, id snowflake.ID) (domain.PayoutInvoice, error) {
	if err := s.requireReviewer(ctx, actorID); err != nil {
		return domain.PayoutInvoice{}, err
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if invoice == nil {
		return domain.PayoutInvoice{}, domain.ErrNotFound
	}

	ok, err := s.repo.ClaimInvoice(ctx, s.db, id, actorID, s.clock.Now().UTC())
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if !ok {
		return domain.PayoutInvoice{}, domain.ErrAlreadyClaimed
	}
	return s.reload(ctx, id)
}

// Accept fences the invoice into accepting, transfers, and only then flips
// it to accepted. A failed transfer drops it back to claimed so the reviewer
// can retry; a lost fence means another accept already reached the provider.
func (s *Service) Accept(ctx context.Context, actorID, id snowflake.ID) (domain.PayoutInvoice, error) {
	invoice, err := s.claimedBy(ctx, actorID, id)
	if err != nil {
		return domain.PayoutInvoice{}, err
	}

	influencer, err := s.profileRepo.FindByID(ctx, s.db, invoice.InfluencerID)
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if influencer == nil || influencer.PayoutAccountID == "" {
		return domain.PayoutInvoice{}, domain.ErrNoPayoutAccount
	}

	ok, err := s.repo.BeginAccept(ctx, s.db, id, actorID, s.clock.Now().UTC())
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if !ok {
		return domain.PayoutInvoice{}, domain.ErrNotClaimed
	}

	currency := s.policy.Current().Currency
	if err := s.transferrer.Transfer(ctx, invoice.InvoiceValue, currency, influencer.PayoutAccountID); err != nil {
		s.log.Error("payout transfer failed",
			zap.Int64("payout_invoice_id", id.Int64()),
			zap.Error(err))
		if abortErr := s.repo.AbortAccept(ctx, s.db, id, s.clock.Now().UTC()); abortErr != nil {
			s.log.Error("payout accept abort failed",
				zap.Int64("payout_invoice_id", id.Int64()),
				zap.Error(abortErr))
		}
		return domain.PayoutInvoice{}, err
	}

	now := s.clock.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.DecideInvoice(ctx, tx, id, actorID, domain.InvoiceAccepting, domain.InvoiceAccepted, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotClaimed
		}
		return s.repo.MarkPaid(ctx, tx, id, now)
	})
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	return s.reload(ctx, id)
}

func (s *Service) Reject(ctx context.Context, actorID, id snowflake.ID) (domain.PayoutInvoice, error) {
	if _, err := s.claimedBy(ctx, actorID, id); err != nil {
		return domain.PayoutInvoice{}, err
	}

	ok, err := s.repo.DecideInvoice(ctx, s.db, id, actorID, domain.InvoiceClaimed, domain.InvoiceRejected, s.clock.Now().UTC())
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if !ok {
		return domain.PayoutInvoice{}, domain.ErrNotClaimed
	}
	return s.reload(ctx, id)
}

func (s *Service) Receipt(ctx context.Context, actorID, id snowflake.ID) ([]byte, error) {
	invoice, err := s.GetInvoice(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	payouts, err := s.repo.FindByInvoice(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderPayoutInvoice(invoice, payouts)
}

func (s *Service) claimedBy(ctx context.Context, actorID, id snowflake.ID) (*domain.PayoutInvoice, error) {
	if err := s.requireReviewer(ctx, actorID); err != nil {
		return nil, err
	}
	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.Status != domain.InvoiceClaimed {
		return nil, domain.ErrNotClaimed
	}
	if invoice.ClaimedBy == nil || *invoice.ClaimedBy != actorID {
		return nil, domain.ErrNotClaimer
	}
	return invoice, nil
}

func (s *Service) requireReviewer(ctx context.Context, actorID snowflake.ID) error {
	reviewer, err := s.reviewer(ctx, actorID)
	if err != nil {
		return err
	}
	if reviewer == nil {
		return domain.ErrNotClaimer
	}
	return nil
}

func (s *Service) reviewer(ctx context.Context, actorID snowflake.ID) (*profiledomain.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, s.db, actorID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Kind != profiledomain.KindSolver {
		return nil, nil
	}
	return profile, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (domain.PayoutInvoice, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return domain.PayoutInvoice{}, err
	}
	if invoice == nil {
		return domain.PayoutInvoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
