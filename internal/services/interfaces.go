package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investorportal/internal/models"
	"investorportal/internal/pagination"
)

// CreatePositionInput carries the fields accepted when opening a position.
// Cost basis is always derived and never supplied.
type CreatePositionInput struct {
	Title       string
	Ticker      *string
	Sector      *string
	Status      models.PositionStatus
	Visibility  models.Visibility
	EntryDate   *models.Date
	EntryPrice  decimal.Decimal
	Quantity    decimal.Decimal
	TargetPrice decimal.NullDecimal
	MarketPrice decimal.NullDecimal
	NotesAdmin  string
	PublicNote  string
	Tags        []string
}

// PositionPatch is a partial update. Nil fields are left unchanged.
// An empty Ticker or Sector clears it; an invalid TargetPrice clears it.
type PositionPatch struct {
	Title       *string
	Ticker      *string
	Sector      *string
	Status      *models.PositionStatus
	Visibility  *models.Visibility
	EntryDate   *models.Date
	OpenedDate  *models.Date
	EntryPrice  *decimal.Decimal
	Quantity    *decimal.Decimal
	TargetPrice *decimal.NullDecimal
	MarketPrice *decimal.Decimal
	NotesAdmin  *string
	PublicNote  *string
	Tags        *[]string

	// ExpectedVersion, when set, must equal the stored version.
	ExpectedVersion *int64
}

// ClosePositionInput carries the closing reconciliation values.
type ClosePositionInput struct {
	ClosingPrice    decimal.Decimal
	ClosingDate     *models.Date
	PublicNote      *string
	ExpectedVersion *int64
}

// PortfolioSummary aggregates the positions visible to one role.
type PortfolioSummary struct {
	CostBasis     decimal.Decimal               `json:"portfolio_cost_basis"`
	UnrealizedPnL decimal.Decimal               `json:"total_unrealized_pnl"`
	RealizedPnL   decimal.Decimal               `json:"total_realized_pnl"`
	StatusCounts  map[models.PositionStatus]int `json:"status_counts"`
	Total         int                           `json:"total_positions"`
}

// PricingTarget is a Live position the price oracle should quote.
type PricingTarget struct {
	PositionID string `json:"position_id"`
	Ticker     string `json:"ticker"`
}

// PriceUpdate is one quote reported by the price oracle.
type PriceUpdate struct {
	PositionID string          `json:"position_id" binding:"required,uuid"`
	Price      decimal.Decimal `json:"price"`
}

// PriceFailure explains why one entry of a price batch was not applied.
type PriceFailure struct {
	PositionID string `json:"position_id"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// PriceBatchResult reports the outcome of RecordMarketPrices.
type PriceBatchResult struct {
	Updated int            `json:"updated"`
	Failed  []PriceFailure `json:"failed"`
}

// PositionServicer defines the contract for the position ledger.
type PositionServicer interface {
	Create(ctx context.Context, in CreatePositionInput, actor string) (*models.Position, error)
	Update(ctx context.Context, id string, patch PositionPatch, actor, diffSummary string) (*models.Position, error)
	Close(ctx context.Context, id string, in ClosePositionInput, actor string) (*models.Position, error)
	Archive(ctx context.Context, id, actor string) (*models.Position, error)
	ToggleVisibility(ctx context.Context, id string, visibility models.Visibility, actor string) (*models.Position, error)
	UpdateMarketPrice(ctx context.Context, id string, price decimal.Decimal, actor string) (*models.Position, error)
	ListVisible(ctx context.Context, role models.Role, page pagination.PageRequest) (*pagination.PageResponse[models.PositionWithCalculations], error)
	GetVisible(ctx context.Context, role models.Role, id string) (*models.PositionWithCalculations, error)
	Summary(ctx context.Context, role models.Role) (*PortfolioSummary, error)
	ListPricingTargets(ctx context.Context) ([]PricingTarget, error)
	RecordMarketPrices(ctx context.Context, prices []PriceUpdate, actor string) (*PriceBatchResult, error)
}

// AuditServicer defines the contract for the append-only audit trail.
type AuditServicer interface {
	// Record inserts entry using tx, so it commits or rolls back together
	// with the mutation it describes. A nil tx uses the service's own handle.
	Record(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error
	List(ctx context.Context, positionID *string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}

// ProfileServicer resolves roles and manages portal logins.
type ProfileServicer interface {
	Register(ctx context.Context, email, password, fullName string) (*models.Profile, error)
	Authenticate(ctx context.Context, email, password string) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetRole(ctx context.Context, id string) (models.Role, error)
	SetRole(ctx context.Context, id string, role models.Role) (*models.Profile, error)
}
