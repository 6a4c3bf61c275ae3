package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) EnsureForOrder(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, order_id, buyer_id, billing_name, billing_email,
		                       billing_tin, sale_base_value, service_cut_value,
		                       tax_pct, tax_value, discount_value, sale_total_value,
		                       created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (order_id) DO NOTHING`,
		invoice.ID,
		invoice.OrderID,
		invoice.BuyerID,
		invoice.BillingName,
		invoice.BillingEmail,
		invoice.BillingTIN,
		invoice.SaleBaseValue,
		invoice.ServiceCutValue,
		invoice.TaxPct,
		invoice.TaxValue,
		invoice.DiscountValue,
		invoice.SaleTotalValue,
		invoice.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, buyer_id, billing_name, billing_email, billing_tin,
		        sale_base_value, service_cut_value, tax_pct, tax_value,
		        discount_value, sale_total_value, created_at
		 FROM invoices WHERE order_id = ?`,
		orderID,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}
