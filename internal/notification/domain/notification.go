package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Notification is one in-app inbox entry. Each user's inbox is capped; the
// oldest entries are evicted on overflow.
type Notification struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	NotifierID   snowflake.ID `gorm:"not null;index" json:"notifier_id"`
	SenderID     snowflake.ID `gorm:"not null" json:"sender_id"`
	EntityID     snowflake.ID `gorm:"not null" json:"entity_id"`
	EntityAction string       `gorm:"not null" json:"entity_action"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, notification *Notification) error

	// EvictBeyond drops the notifier's oldest entries past cap.
	EvictBeyond(ctx context.Context, db *gorm.DB, notifierID snowflake.ID, cap int) error

	ListByNotifier(ctx context.Context, db *gorm.DB, notifierID snowflake.ID, limit int) ([]*Notification, error)
}

type Service interface {
	List(ctx context.Context, actorID snowflake.ID, limit int) ([]Notification, error)
}
