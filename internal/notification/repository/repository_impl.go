package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, notification *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, notifier_id, sender_id, entity_id, entity_action, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		notification.ID,
		notification.NotifierID,
		notification.SenderID,
		notification.EntityID,
		notification.EntityAction,
		notification.CreatedAt,
	).Error
}

func (r *repo) EvictBeyond(ctx context.Context, db *gorm.DB, notifierID snowflake.ID, cap int) error {
	// Snowflake ids are time-ordered, so keeping the highest ids keeps the
	// newest notifications.
	return db.WithContext(ctx).Exec(
		`DELETE FROM notifications
		 WHERE notifier_id = ?
		   AND id NOT IN (
		       SELECT id FROM notifications
		       WHERE notifier_id = ?
		       ORDER BY id DESC
		       LIMIT ?)`,
		notifierID, notifierID, cap,
	).Error
}

func (r *repo) ListByNotifier(ctx context.Context, db *gorm.DB, notifierID snowflake.ID, limit int) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, notifier_id, sender_id, entity_id, entity_action, created_at
		 FROM notifications WHERE notifier_id = ? ORDER BY id DESC LIMIT ?`,
		notifierID, limit,
	).Scan(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
