package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Order is the root entity of the marketplace workflow. Commercial terms are
// snapshotted from the policy that applied at creation; later policy changes
// never touch existing orders.
type Order struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	BuyerID      snowflake.ID `gorm:"not null;index" json:"buyer_id"`
	InfluencerID snowflake.ID `gorm:"not null;index" json:"influencer_id"`
	Status       Status       `gorm:"not null;index" json:"status"`

	// Amounts in cents.
	BasePrice     int64  `gorm:"not null" json:"base_price"`
	ServiceFeePct int64  `gorm:"not null" json:"service_fee_pct"`
	TaxPct        int64  `gorm:"not null" json:"tax_pct"`
	Discount      *int64 `json:"discount,omitempty"`
	Total         int64  `gorm:"not null" json:"total"`

	DateOfDelivery     time.Time  `gorm:"not null" json:"date_of_delivery"`
	DateItWasDelivered *time.Time `json:"date_it_was_delivered,omitempty"`
	ReminderSentOn     *time.Time `gorm:"type:date" json:"reminder_sent_on,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// OrderItem is one value-pack line of an order.
type OrderItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID `gorm:"not null;index" json:"order_id"`
	ContentType string       `gorm:"not null" json:"content_type"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	Price       int64        `gorm:"not null" json:"price"`
}

// ServiceCut is the platform's share of the base price.
func (o Order) ServiceCut() int64 {
	return o.BasePrice * o.ServiceFeePct / 100
}

// BuyerTax is the tax applied to base plus service cut on the buyer invoice.
func (o Order) BuyerTax() int64 {
	return (o.BasePrice + o.ServiceCut()) * o.TaxPct / 100
}

// ComputeTotal derives the buyer-facing total, applying the discount last.
func (o Order) ComputeTotal() int64 {
	total := o.BasePrice + o.ServiceCut() + o.BuyerTax()
	if o.Discount != nil {
		total -= *o.Discount
	}
	if total < 0 {
		total = 0
	}
	return total
}
