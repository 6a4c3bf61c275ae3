package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, order_id, provider, provider_intent_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrderID,
		payment.Provider,
		payment.ProviderIntentID,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, provider, provider_intent_id, status, created_at, updated_at
		 FROM payments WHERE order_id = ?`,
		orderID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindByIntent(ctx context.Context, db *gorm.DB, provider, intentID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, provider, provider_intent_id, status, created_at, updated_at
		 FROM payments WHERE provider = ? AND provider_intent_id = ?`,
		provider, intentID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.Status, to domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		to, now, id, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) RecordEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (*domain.EventRecord, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, provider, provider_event_id, event_type,
		                             provider_intent_id, payload, received_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.ProviderIntentID,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return event, nil
	}

	var existing domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, provider_intent_id,
		        payload, received_at, processed_at
		 FROM payment_events WHERE provider = ? AND provider_event_id = ?`,
		event.Provider, event.ProviderEventID,
	).Scan(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = COALESCE(processed_at, ?) WHERE id = ?`,
		at, id,
	).Error
}
