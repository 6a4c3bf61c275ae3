package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	BuyerID      snowflake.ID
	InfluencerID snowflake.ID
	Status       Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Order, error)

	// Transition is a compare-and-swap on status. It returns false when the
	// order was not in from, which callers treat as a lost race or an
	// invalid transition.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)

	// MarkDelivered transitions in_progress to delivered and stamps
	// date_it_was_delivered only if it is still null.
	MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)

	// MarkReminded records that the delivery reminder went out on day. It
	// returns false when a reminder was already sent that day, which is
	// the dedup guard for re-running the sweep.
	MarkReminded(ctx context.Context, db *gorm.DB, id snowflake.ID, day time.Time) (bool, error)

	// Sweep selections. Each is status-guarded so the follow-up
	// compare-and-swap transition keeps re-runs idempotent.
	FindDueOn(ctx context.Context, db *gorm.DB, day, notRemindedSince time.Time, limit int) ([]*Order, error)
	FindOverdue(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]*Order, error)
	FindConfirmExpired(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*Order, error)
}
