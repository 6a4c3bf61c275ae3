package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Payout is the influencer's claim on settled order funds. Value is the base
// price; the platform's cut never enters it.
type Payout struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID      snowflake.ID `gorm:"not null;uniqueIndex" json:"order_id"`
	InfluencerID snowflake.ID `gorm:"not null;index" json:"influencer_id"`

	Value    int64 `gorm:"not null" json:"value"`
	TaxPct   int64 `gorm:"not null" json:"tax_pct"`
	TaxValue int64 `gorm:"not null" json:"tax_value"`
	Paid     bool  `gorm:"not null;default:false" json:"paid"`

	PayoutInvoiceID *snowflake.ID `json:"payout_invoice_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

type InvoiceStatus string

const (
	InvoiceSubmitted InvoiceStatus = "submitted"
	InvoiceClaimed   InvoiceStatus = "claimed"
	// InvoiceAccepting fences the funds transfer: only one accept at a time
	// may reach the provider. A failed transfer drops back to claimed.
	InvoiceAccepting InvoiceStatus = "accepting"
	InvoiceAccepted  InvoiceStatus = "accepted"
	InvoiceRejected  InvoiceStatus = "rejected"
)

// PayoutInvoice groups an influencer's eligible payouts for one review and
// transfer cycle. It outlives any single order.
type PayoutInvoice struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	InfluencerID snowflake.ID  `gorm:"not null;index" json:"influencer_id"`
	Status       InvoiceStatus `gorm:"not null" json:"status"`

	// InvoiceValue is the transferable sum: payout values net of tax.
	InvoiceValue int64 `gorm:"not null" json:"invoice_value"`

	// DocumentRef points at the influencer's uploaded supporting invoice.
	DocumentRef string `gorm:"not null" json:"document_ref"`

	ClaimedBy *snowflake.ID `json:"claimed_by,omitempty"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("payout_invoice_not_found")
	ErrNoEligiblePayouts = errors.New("no_eligible_payouts")
	ErrInvalidDocument   = errors.New("invalid_document_ref")
	ErrAlreadyClaimed    = errors.New("payout_invoice_already_claimed")
	ErrNotClaimer        = errors.New("not_the_claimer")
	ErrNotClaimed        = errors.New("payout_invoice_not_claimed")
	ErrNoPayoutAccount   = errors.New("no_payout_account")
	ErrNotInfluencer     = errors.New("not_an_influencer")
)
