package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Payment mirrors the gateway's payment intent, one per order.
type Payment struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID          snowflake.ID `gorm:"not null;uniqueIndex" json:"order_id"`
	Provider         string       `gorm:"not null" json:"provider"`
	ProviderIntentID string       `gorm:"not null" json:"provider_intent_id"`
	Status           Status       `gorm:"not null" json:"status"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

// EventRecord stores every inbound webhook delivery. The unique
// (provider, provider_event_id) pair is the at-least-once dedup guard;
// processed_at marks completion.
type EventRecord struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	Provider         string         `gorm:"not null" json:"provider"`
	ProviderEventID  string         `gorm:"not null" json:"provider_event_id"`
	EventType        EventType      `gorm:"not null" json:"event_type"`
	ProviderIntentID string         `gorm:"not null" json:"provider_intent_id"`
	Payload          datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	ReceivedAt       time.Time      `gorm:"not null" json:"received_at"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "payment_events" }

// EventType is the gateway event kind.
type EventType string

const (
	EventSucceeded  EventType = "payment_intent.succeeded"
	EventFailed     EventType = "payment_intent.payment_failed"
	EventProcessing EventType = "payment_intent.processing"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSucceeded, EventFailed, EventProcessing:
		return true
	}
	return false
}
