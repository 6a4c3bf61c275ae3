package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, dispute *Dispute) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Dispute, error)
	FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Dispute, error)

	// UpdateMessage refreshes the buyer's complaint on a dispute that is
	// already open or claimed.
	UpdateMessage(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, now time.Time) error

	// Reopen resets a resolved dispute to open. The compare-and-swap on
	// status makes the Resolved -> Open edge explicit.
	Reopen(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, now time.Time) (bool, error)

	// Claim moves open -> in_progress recording the solver.
	Claim(ctx context.Context, db *gorm.DB, id, solverID snowflake.ID, now time.Time) (bool, error)

	// Resolve moves in_progress -> resolved for the claiming solver only.
	Resolve(ctx context.Context, db *gorm.DB, id, solverID snowflake.ID, influencerFault bool, decision string, now time.Time) (bool, error)
}
