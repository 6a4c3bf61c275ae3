package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Payment, error)
	FindByIntent(ctx context.Context, db *gorm.DB, provider, intentID string) (*Payment, error)

	// UpdateStatus is a compare-and-swap from any of the allowed prior
	// statuses. Returns false when the payment already left them.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, to Status, now time.Time) (bool, error)

	// RecordEvent inserts the delivery or, on a duplicate
	// (provider, provider_event_id), returns the stored row.
	RecordEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (*EventRecord, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
