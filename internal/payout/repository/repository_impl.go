package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/payout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) EnsureForOrder(ctx context.Context, db *gorm.DB, payout *domain.Payout) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payouts (id, order_id, influencer_id, value, tax_pct, tax_value,
		                      paid, payout_invoice_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (order_id) DO NOTHING`,
		payout.ID,
		payout.OrderID,
		payout.InfluencerID,
		payout.Value,
		payout.TaxPct,
		payout.TaxValue,
		payout.Paid,
		payout.PayoutInvoiceID,
		payout.CreatedAt,
		payout.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Payout, error) {
	var payout domain.Payout
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, influencer_id, value, tax_pct, tax_value, paid,
		        payout_invoice_id, created_at, updated_at
		 FROM payouts WHERE order_id = ?`,
		orderID,
	).Scan(&payout).Error
	if err != nil {
		return nil, err
	}
	if payout.ID == 0 {
		return nil, nil
	}
	return &payout, nil
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.PayoutInvoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payout_invoices (id, influencer_id, status, invoice_value,
		                              document_ref, claimed_by, decided_at,
		                              created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InfluencerID,
		invoice.Status,
		invoice.InvoiceValue,
		invoice.DocumentRef,
		invoice.ClaimedBy,
		invoice.DecidedAt,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PayoutInvoice, error) {
	var invoice domain.PayoutInvoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, influencer_id, status, invoice_value, document_ref, claimed_by,
		        decided_at, created_at, updated_at
		 FROM payout_invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) UpdateInvoiceValue(ctx context.Context, db *gorm.DB, id snowflake.ID, value int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payout_invoices SET invoice_value = ?, updated_at = ? WHERE id = ?`,
		value, now, id,
	).Error
}

func (r *repo) AttachEligible(ctx context.Context, db *gorm.DB, invoiceID, influencerID snowflake.ID, cutoff, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts SET payout_invoice_id = ?, updated_at = ?
		 WHERE influencer_id = ?
		   AND paid = ?
		   AND created_at < ?
		   AND (payout_invoice_id IS NULL
		        OR payout_invoice_id IN (SELECT id FROM payout_invoices WHERE status = ?))`,
		invoiceID, now, influencerID, false, cutoff, domain.InvoiceRejected,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*domain.Payout, error) {
	var payouts []*domain.Payout
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, influencer_id, value, tax_pct, tax_value, paid,
		        payout_invoice_id, created_at, updated_at
		 FROM payouts WHERE payout_invoice_id = ? ORDER BY id`,
		invoiceID,
	).Scan(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repo) ClaimInvoice(ctx context.Context, db *gorm.DB, id, reviewerID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payout_invoices SET status = ?, claimed_by = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.InvoiceClaimed, reviewerID, now, id, domain.InvoiceSubmitted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) BeginAccept(ctx context.Context, db *gorm.DB, id, reviewerID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payout_invoices SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND claimed_by = ?`,
		domain.InvoiceAccepting, now, id, domain.InvoiceClaimed, reviewerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) AbortAccept(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payout_invoices SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.InvoiceClaimed, now, id, domain.InvoiceAccepting,
	).Error
}

func (r *repo) DecideInvoice(ctx context.Context, db *gorm.DB, id, reviewerID snowflake.ID, from, to domain.InvoiceStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payout_invoices SET status = ?, decided_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND claimed_by = ?`,
		to, now, now, id, from, reviewerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payouts SET paid = ?, updated_at = ? WHERE payout_invoice_id = ?`,
		true, now, invoiceID,
	).Error
}
