package models

import (
	"time"

	"investorportal/internal/uuid"

	"gorm.io/gorm"
)

// OutboxEvent is a position event waiting to be relayed to the message bus.
// It is written in the same transaction as the mutation it describes.
type OutboxEvent struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	AggregateID string     `gorm:"type:uuid;not null;index" json:"aggregate_id"`
	EventType   string     `gorm:"type:varchar(64);not null" json:"event_type"`
	Payload     string     `gorm:"type:text;not null" json:"payload"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `gorm:"not null;default:''" json:"last_error,omitempty"`
}

// BeforeCreate assigns a time-ordered id.
func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New()
	}
	return nil
}

// Published reports whether the relay has delivered the event.
func (e *OutboxEvent) Published() bool { return e.PublishedAt != nil }
