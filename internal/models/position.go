package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a tracked capital allocation with a Draft -> Live -> Closed ->
// Archived lifecycle. Money and quantity columns are exact decimals.
type Position struct {
	Base
	Title      string         `gorm:"not null" json:"title"`
	Ticker     *string        `json:"ticker"`
	Sector     *string        `json:"sector"`
	Status     PositionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Visibility Visibility     `gorm:"type:varchar(16);not null" json:"visibility"`

	EntryDate      Date                `gorm:"type:date;not null;index" json:"entry_date"`
	OpenedDate     *Date               `gorm:"type:date" json:"opened_date"`
	EntryPrice     decimal.Decimal     `gorm:"type:numeric(24,8);not null" json:"entry_price"`
	Quantity       decimal.Decimal     `gorm:"type:numeric(24,8);not null" json:"quantity"`
	CostBasis      decimal.Decimal     `gorm:"type:numeric(24,8);not null" json:"cost_basis"`
	TargetPrice    decimal.NullDecimal `gorm:"type:numeric(24,8)" json:"target_price"`
	MarketPrice    decimal.NullDecimal `gorm:"type:numeric(24,8)" json:"market_price"`
	PriceUpdatedAt *time.Time          `json:"price_updated_at"`
	ClosingPrice   decimal.NullDecimal `gorm:"type:numeric(24,8)" json:"closing_price"`
	ClosingDate    *Date               `gorm:"type:date" json:"closing_date"`
	RealizedPnL    decimal.NullDecimal `gorm:"column:realized_pnl;type:numeric(24,8)" json:"realized_pnl"`

	NotesAdmin string   `gorm:"not null;default:''" json:"notes_admin,omitempty"`
	PublicNote string   `gorm:"not null;default:''" json:"public_note"`
	Tags       []string `gorm:"type:text;serializer:json" json:"tags"`

	CreatedBy *string `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedBy *string `gorm:"type:uuid" json:"updated_by,omitempty"`
	Version   int64   `gorm:"not null;default:1" json:"version"`
}

// ComputeCostBasis returns entry price times quantity.
func ComputeCostBasis(entryPrice, quantity decimal.Decimal) decimal.Decimal {
	return entryPrice.Mul(quantity)
}

// RedactFor strips admin-only fields when the viewer is not an admin.
func (p *Position) RedactFor(role Role) {
	if role == RoleAdmin {
		return
	}
	p.NotesAdmin = ""
	p.CreatedBy = nil
	p.UpdatedBy = nil
}

// PositionWithCalculations is a position plus its derived, non-persisted metrics.
type PositionWithCalculations struct {
	Position
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	PerformancePct decimal.Decimal `json:"performance_pct"`
	DaysHeld       int             `json:"days_held"`
}
