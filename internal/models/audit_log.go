package models

import (
	"time"

	"investorportal/internal/uuid"

	"gorm.io/gorm"
)

// AuditLog is an immutable record of one mutation applied to a position.
// Rows are only ever inserted.
type AuditLog struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	Action      AuditAction `gorm:"type:varchar(16);not null" json:"action"`
	PositionID  *string     `gorm:"type:uuid;index" json:"position_id"`
	UserID      *string     `gorm:"type:uuid" json:"user_id"`
	Timestamp   time.Time   `gorm:"not null;index" json:"timestamp"`
	DiffSummary string      `gorm:"not null" json:"diff_summary"`
	Notes       *string     `json:"notes"`
}

// TableName keeps the singular table name used by the portal schema.
func (AuditLog) TableName() string { return "audit_log" }

// BeforeCreate assigns the id and the server-side timestamp.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
