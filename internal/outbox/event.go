// Package outbox stores position events alongside the mutation that caused
// them and relays them to Kafka once the transaction has committed.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"investorportal/internal/models"

	"gorm.io/gorm"
)

// EventTypePrefix namespaces position event types, e.g. "position.close".
const EventTypePrefix = "position."

// PositionEvent is the message body published for every ledger mutation.
type PositionEvent struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	PositionID string           `json:"position_id"`
	Version    int64            `json:"version"`
	Position   *models.Position `json:"position"`
	Audit      *models.AuditLog `json:"audit"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventType returns the event type recorded for an audit action.
func EventType(action models.AuditAction) string {
	return EventTypePrefix + string(action)
}

// NewPositionEvent snapshots p and its audit entry into an outbox row.
func NewPositionEvent(p *models.Position, entry *models.AuditLog) (*models.OutboxEvent, error) {
	evt := &models.OutboxEvent{
		AggregateID: p.ID,
		EventType:   EventType(entry.Action),
		CreatedAt:   entry.Timestamp,
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	// Assign the id up front so it can be embedded in the payload.
	if err := evt.BeforeCreate(nil); err != nil {
		return nil, err
	}

	body := PositionEvent{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		PositionID: p.ID,
		Version:    p.Version,
		Position:   p,
		Audit:      entry,
		OccurredAt: evt.CreatedAt,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal position event: %w", err)
	}
	evt.Payload = string(data)
	return evt, nil
}

// Enqueue writes a position event inside tx.
func Enqueue(tx *gorm.DB, p *models.Position, entry *models.AuditLog) error {
	evt, err := NewPositionEvent(p, entry)
	if err != nil {
		return err
	}
	if err := tx.Create(evt).Error; err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
