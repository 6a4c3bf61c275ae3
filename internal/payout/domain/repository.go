package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// EnsureForOrder inserts the payout unless one already exists for the
	// order. Returns true when this call created it.
	EnsureForOrder(ctx context.Context, db *gorm.DB, payout *Payout) (bool, error)
	FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Payout, error)

	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *PayoutInvoice) error
	FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PayoutInvoice, error)
	UpdateInvoiceValue(ctx context.Context, db *gorm.DB, id snowflake.ID, value int64, now time.Time) error

	// AttachEligible binds every eligible payout of the influencer created
	// before cutoff to the invoice. Eligible means unpaid and either never
	// grouped or grouped into a rejected invoice. Returns how many rows it
	// attached.
	AttachEligible(ctx context.Context, db *gorm.DB, invoiceID, influencerID snowflake.ID, cutoff, now time.Time) (int64, error)

	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*Payout, error)

	// ClaimInvoice is the submitted -> claimed compare-and-swap.
	ClaimInvoice(ctx context.Context, db *gorm.DB, id, reviewerID snowflake.ID, now time.Time) (bool, error)

	// BeginAccept is the claimed -> accepting compare-and-swap, restricted to
	// the claiming reviewer. Losing it means another accept is in flight.
	BeginAccept(ctx context.Context, db *gorm.DB, id, reviewerID snowflake.ID, now time.Time) (bool, error)

	// AbortAccept returns an accepting invoice to claimed after a failed
	// transfer so the reviewer can retry.
	AbortAccept(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	// DecideInvoice is the from -> accepted|rejected compare-and-swap,
	// restricted to the claiming reviewer.
	DecideInvoice(ctx context.Context, db *gorm.DB, id, reviewerID snowflake.ID, from, to InvoiceStatus, now time.Time) (bool, error)

	// MarkPaid flags every payout grouped into the invoice.
	MarkPaid(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, now time.Time) error
}
