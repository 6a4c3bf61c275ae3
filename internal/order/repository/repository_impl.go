package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/order/domain"
	"github.com/influmarkt/influmarkt/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, buyer_id, influencer_id, status, base_price,
		                     service_fee_pct, tax_pct, discount, total,
		                     date_of_delivery, date_it_was_delivered,
		                     reminder_sent_on, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.BuyerID,
		order.InfluencerID,
		order.Status,
		order.BasePrice,
		order.ServiceFeePct,
		order.TaxPct,
		order.Discount,
		order.Total,
		order.DateOfDelivery,
		order.DateItWasDelivered,
		order.ReminderSentOn,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	for i := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_items (id, order_id, content_type, quantity, price)
			 VALUES (?, ?, ?, ?, ?)`,
			items[i].ID,
			items[i].OrderID,
			items[i].ContentType,
			items[i].Quantity,
			items[i].Price,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, buyer_id, influencer_id, status, base_price, service_fee_pct,
		        tax_pct, discount, total, date_of_delivery, date_it_was_delivered,
		        reminder_sent_on, created_at, updated_at
		 FROM orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, content_type, quantity, price
		 FROM order_items WHERE order_id = ? ORDER BY id`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.BuyerID != 0 {
		stmt = stmt.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.InfluencerID != 0 {
		stmt = stmt.Where("influencer_id = ?", filter.InfluencerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, now, id, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// deliverable covers regular delivery and a late delivery on a held order.
var deliverable = []domain.Status{domain.StatusInProgress, domain.StatusOnHold}

func (r *repo) MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, date_it_was_delivered = COALESCE(date_it_was_delivered, ?), updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.StatusDelivered, at, at, id, deliverable,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkReminded(ctx context.Context, db *gorm.DB, id snowflake.ID, day time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET reminder_sent_on = ?
		 WHERE id = ? AND (reminder_sent_on IS NULL OR reminder_sent_on < ?)`,
		day, id, day,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// awaiting-delivery statuses shared by the reminder and overdue sweeps.
var awaitingDelivery = []domain.Status{domain.StatusPaymentConfirmed, domain.StatusInProgress}

func (r *repo) FindDueOn(ctx context.Context, db *gorm.DB, day, notRemindedSince time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, buyer_id, influencer_id, status, base_price, service_fee_pct,
		        tax_pct, discount, total, date_of_delivery, date_it_was_delivered,
		        reminder_sent_on, created_at, updated_at
		 FROM orders
		 WHERE status IN ?
		   AND date_of_delivery >= ? AND date_of_delivery < ?
		   AND (reminder_sent_on IS NULL OR reminder_sent_on < ?)
		 ORDER BY id
		 LIMIT ?`,
		awaitingDelivery, day, day.AddDate(0, 0, 1), notRemindedSince, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) FindOverdue(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, buyer_id, influencer_id, status, base_price, service_fee_pct,
		        tax_pct, discount, total, date_of_delivery, date_it_was_delivered,
		        reminder_sent_on, created_at, updated_at
		 FROM orders
		 WHERE status IN ?
		   AND date_of_delivery < ?
		   AND date_it_was_delivered IS NULL
		 ORDER BY id
		 LIMIT ?`,
		awaitingDelivery, today, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) FindConfirmExpired(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, buyer_id, influencer_id, status, base_price, service_fee_pct,
		        tax_pct, discount, total, date_of_delivery, date_it_was_delivered,
		        reminder_sent_on, created_at, updated_at
		 FROM orders
		 WHERE status = ?
		   AND date_it_was_delivered IS NOT NULL
		   AND date_it_was_delivered <= ?
		 ORDER BY id
		 LIMIT ?`,
		domain.StatusDelivered, cutoff, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
