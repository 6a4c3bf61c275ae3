package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindBrand      Kind = "brand"
	KindInfluencer Kind = "influencer"
	KindSolver     Kind = "solver"
)

type Locale string

const (
	LocaleEN Locale = "en"
	LocalePT Locale = "pt"
)

// Profile is a marketplace participant. Brands buy, influencers deliver,
// solvers arbitrate disputes.
type Profile struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Kind           Kind         `gorm:"not null" json:"kind"`
	Name           string       `gorm:"not null" json:"name"`
	Email          string       `gorm:"not null" json:"email"`
	Locale         Locale       `gorm:"not null;default:en" json:"locale"`
	EmailsDisabled bool         `gorm:"not null;default:false" json:"emails_disabled"`

	// Billing snapshot source for buyer invoices.
	BillingName  string `json:"billing_name,omitempty"`
	BillingEmail string `json:"billing_email,omitempty"`
	BillingTIN   string `gorm:"column:billing_tin" json:"billing_tin,omitempty"`

	// Payout fields for influencers.
	PayoutAccountID string `json:"payout_account_id,omitempty"`
	TaxExempt       bool   `gorm:"not null;default:false" json:"tax_exempt"`
	CountryTaxPct   int64  `gorm:"not null;default:0" json:"country_tax_pct"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// PayoutTaxPct is the tax rate applied when deriving a payout for this
// profile. Exempt influencers pay nothing.
func (p Profile) PayoutTaxPct() int64 {
	if p.TaxExempt {
		return 0
	}
	return p.CountryTaxPct
}

func (l Locale) Valid() bool {
	return l == LocaleEN || l == LocalePT
}
