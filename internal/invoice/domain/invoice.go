package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Invoice is the buyer-facing sale record, derived once per order at
// settlement. Billing fields are a snapshot; later profile edits never
// rewrite history.
type Invoice struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID snowflake.ID `gorm:"not null;uniqueIndex" json:"order_id"`
	BuyerID snowflake.ID `gorm:"not null" json:"buyer_id"`

	BillingName  string `gorm:"not null" json:"billing_name"`
	BillingEmail string `gorm:"not null" json:"billing_email"`
	BillingTIN   string `gorm:"column:billing_tin" json:"billing_tin,omitempty"`

	SaleBaseValue   int64 `gorm:"not null" json:"sale_base_value"`
	ServiceCutValue int64 `gorm:"not null" json:"service_cut_value"`
	TaxPct          int64 `gorm:"not null" json:"tax_pct"`
	TaxValue        int64 `gorm:"not null" json:"tax_value"`
	DiscountValue   int64 `gorm:"not null" json:"discount_value"`
	SaleTotalValue  int64 `gorm:"not null" json:"sale_total_value"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

type Repository interface {
	// EnsureForOrder inserts the invoice unless one already exists for the
	// order. Returns true when this call created it.
	EnsureForOrder(ctx context.Context, db *gorm.DB, invoice *Invoice) (bool, error)
	FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Invoice, error)
}

var ErrNotFound = errors.New("invoice_not_found")
