// Package settlement derives the payout and buyer invoice when an order
// settles. Derivation is idempotent per order: the unique order_id guards on
// both tables absorb duplicate triggers.
package settlement

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	invoicedomain "github.com/influmarkt/influmarkt/internal/invoice/domain"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	ProfileRepo profiledomain.Repository
	InvoiceRepo invoicedomain.Repository
	PayoutRepo  payoutdomain.Repository
}

type Settler struct {
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	profileRepo profiledomain.Repository
	invoiceRepo invoicedomain.Repository
	payoutRepo  payoutdomain.Repository
}

func New(p Params) orderdomain.Settler {
	return &Settler{
		log:         p.Log.Named("settlement"),
		genID:       p.GenID,
		clock:       p.Clock,
		profileRepo: p.ProfileRepo,
		invoiceRepo: p.InvoiceRepo,
		payoutRepo:  p.PayoutRepo,
	}
}

func (s *Settler) Settle(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) error {
	buyer, err := s.profileRepo.FindByID(ctx, tx, order.BuyerID)
	if err != nil {
		return err
	}
	if buyer == nil {
		return profiledomain.ErrNotFound
	}
	influencer, err := s.profileRepo.FindByID(ctx, tx, order.InfluencerID)
	if err != nil {
		return err
	}
	if influencer == nil {
		return profiledomain.ErrNotFound
	}

	now := s.clock.Now().UTC()

	var discount int64
	if order.Discount != nil {
		discount = *order.Discount
	}

	billingName, billingEmail := buyer.BillingName, buyer.BillingEmail
	if billingName == "" {
		billingName = buyer.Name
	}
	if billingEmail == "" {
		billingEmail = buyer.Email
	}

	created, err := s.invoiceRepo.EnsureForOrder(ctx, tx, &invoicedomain.Invoice{
		ID:              s.genID.Generate(),
		OrderID:         order.ID,
		BuyerID:         order.BuyerID,
		BillingName:     billingName,
		BillingEmail:    billingEmail,
		BillingTIN:      buyer.BillingTIN,
		SaleBaseValue:   order.BasePrice,
		ServiceCutValue: order.ServiceCut(),
		TaxPct:          order.TaxPct,
		TaxValue:        order.BuyerTax(),
		DiscountValue:   discount,
		SaleTotalValue:  order.Total,
		CreatedAt:       now,
	})
	if err != nil {
		return err
	}
	if !created {
		s.log.Debug("invoice already derived", zap.Int64("order_id", order.ID.Int64()))
	}

	taxPct := influencer.PayoutTaxPct()
	created, err = s.payoutRepo.EnsureForOrder(ctx, tx, &payoutdomain.Payout{
		ID:           s.genID.Generate(),
		OrderID:      order.ID,
		InfluencerID: order.InfluencerID,
		Value:        order.BasePrice,
		TaxPct:       taxPct,
		TaxValue:     order.BasePrice * taxPct / 100,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}
	if !created {
		s.log.Debug("payout already derived", zap.Int64("order_id", order.ID.Int64()))
	}

	return nil
}
