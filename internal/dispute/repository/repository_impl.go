package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/dispute/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const columns = `id, order_id, buyer_id, status, message, solver_id,
	influencer_fault, decision_message, opened_at, resolved_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, dispute *domain.Dispute) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO disputes (id, order_id, buyer_id, status, message, solver_id,
		                       influencer_fault, decision_message, opened_at,
		                       resolved_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dispute.ID,
		dispute.OrderID,
		dispute.BuyerID,
		dispute.Status,
		dispute.Message,
		dispute.SolverID,
		dispute.InfluencerFault,
		dispute.DecisionMessage,
		dispute.OpenedAt,
		dispute.ResolvedAt,
		dispute.CreatedAt,
		dispute.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := db.WithContext(ctx).Raw(
		`SELECT `+columns+` FROM disputes WHERE id = ?`, id,
	).Scan(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := db.WithContext(ctx).Raw(
		`SELECT `+columns+` FROM disputes WHERE order_id = ?`, orderID,
	).Scan(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) UpdateMessage(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE disputes SET message = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		message, now, id, []domain.Status{domain.StatusOpen, domain.StatusInProgress},
	).Error
}

func (r *repo) Reopen(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE disputes
		 SET status = ?, message = ?, opened_at = ?, resolved_at = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusOpen, message, now, now, id, domain.StatusResolved,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, id, solverID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE disputes SET status = ?, solver_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusInProgress, solverID, now, id, domain.StatusOpen,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, id, solverID snowflake.ID, influencerFault bool, decision string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE disputes
		 SET status = ?, influencer_fault = ?, decision_message = ?, resolved_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND solver_id = ?`,
		domain.StatusResolved, influencerFault, decision, now, now,
		id, domain.StatusInProgress, solverID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
