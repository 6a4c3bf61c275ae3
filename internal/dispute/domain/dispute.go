package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// Dispute is the at-most-one-per-order arbitration record. Reopening a
// resolved dispute resets it to open; the prior solver identity and decision
// remain until the next resolution overwrites them.
type Dispute struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID snowflake.ID `gorm:"not null;uniqueIndex" json:"order_id"`
	BuyerID snowflake.ID `gorm:"not null" json:"buyer_id"`
	Status  Status       `gorm:"not null" json:"status"`
	Message string       `gorm:"not null" json:"message"`

	SolverID        *snowflake.ID `json:"solver_id,omitempty"`
	InfluencerFault *bool         `json:"influencer_fault,omitempty"`
	DecisionMessage *string       `json:"decision_message,omitempty"`

	OpenedAt   time.Time  `gorm:"not null" json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

var (
	ErrNotFound       = errors.New("dispute_not_found")
	ErrInvalidMessage = errors.New("invalid_dispute_message")
	ErrNotSolver      = errors.New("not_a_solver")
	ErrNotClaimed     = errors.New("dispute_not_claimed")
	ErrAlreadyClaimed = errors.New("dispute_already_claimed")
)
