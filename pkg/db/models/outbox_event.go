package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a domain event waiting to be relayed to Pub/Sub.
type OutboxEvent struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EventType    string          `gorm:"column:event_type;type:text;not null"`
	AggregateID  string          `gorm:"column:aggregate_id;type:text;not null;default:''"`
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	OccurredAt   time.Time       `gorm:"column:occurred_at;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime;index:outbox_events_pending_idx"`
	PublishedAt  *time.Time      `gorm:"column:published_at;index:outbox_events_published_idx"`
	AttemptCount int             `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string         `gorm:"column:last_error;type:text"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
