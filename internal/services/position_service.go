package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investorportal/internal/calc"
	apperrors "investorportal/internal/errors"
	"investorportal/internal/logger"
	"investorportal/internal/models"
	"investorportal/internal/outbox"
	"investorportal/internal/pagination"
)

const defaultEditSummary = "Position updated"

// positionService is the position ledger. Every mutation reads the row,
// checks it, writes it back conditioned on the version it read, and appends
// the audit entry and outbox event in the same transaction.
type positionService struct {
	db    *gorm.DB
	audit AuditServicer
	now   func() time.Time
}

// NewPositionService creates a new PositionServicer.
func NewPositionService(db *gorm.DB, audit AuditServicer) PositionServicer {
	return &positionService{
		db:    db,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// mutation applies a change to p in place and returns the audit entry
// describing it.
type mutation func(p *models.Position, now time.Time) (*models.AuditLog, error)

// Create opens a new position.
func (s *positionService) Create(ctx context.Context, in CreatePositionInput, actor string) (*models.Position, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Position{
		Title:       strings.TrimSpace(in.Title),
		Ticker:      optionalText(in.Ticker),
		Sector:      optionalText(in.Sector),
		Status:      in.Status,
		Visibility:  in.Visibility,
		EntryDate:   *in.EntryDate,
		EntryPrice:  in.EntryPrice,
		Quantity:    in.Quantity,
		CostBasis:   models.ComputeCostBasis(in.EntryPrice, in.Quantity),
		TargetPrice: in.TargetPrice,
		MarketPrice: in.MarketPrice,
		NotesAdmin:  in.NotesAdmin,
		PublicNote:  in.PublicNote,
		Tags:        normalizeTags(in.Tags),
		CreatedBy:   actorRef(actor),
		UpdatedBy:   actorRef(actor),
		Version:     1,
	}
	if p.MarketPrice.Valid {
		p.PriceUpdatedAt = &now
	}
	if p.Status == models.StatusLive {
		opened := p.EntryDate
		p.OpenedDate = &opened
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		notes := "Position opened: " + p.Title
		entry := &models.AuditLog{
			Action:      models.AuditCreate,
			DiffSummary: "Initial position created",
			Notes:       &notes,
		}
		return s.record(ctx, tx, p, actor, entry, now)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Update merges patch into the position. Status may only move forward
// through the lifecycle; closing and archiving have their own operations.
func (s *positionService) Update(ctx context.Context, id string, patch PositionPatch, actor, diffSummary string) (*models.Position, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	summary := strings.TrimSpace(diffSummary)
	if summary == "" {
		summary = defaultEditSummary
	}

	return s.mutate(ctx, id, actor, patch.ExpectedVersion, func(p *models.Position, now time.Time) (*models.AuditLog, error) {
		if err := applyPatch(p, &patch, now); err != nil {
			return nil, err
		}
		return &models.AuditLog{Action: models.AuditEdit, DiffSummary: summary}, nil
	})
}

// Close reconciles a Live position at its closing price. There is no way back.
func (s *positionService) Close(ctx context.Context, id string, in ClosePositionInput, actor string) (*models.Position, error) {
	if !in.ClosingPrice.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Closing price must be greater than zero")
	}
	if in.ClosingDate == nil || in.ClosingDate.IsZero() {
		return nil, apperrors.ErrMissingClosingDate
	}

	return s.mutate(ctx, id, actor, in.ExpectedVersion, func(p *models.Position, _ time.Time) (*models.AuditLog, error) {
		if p.Status != models.StatusLive || !p.Status.CanTransitionTo(models.StatusClosed) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidTransition,
				fmt.Sprintf("only Live positions can be closed (status is %s)", p.Status))
		}
		if in.ClosingDate.Before(p.EntryDate.Time) {
			return nil, apperrors.ErrClosingBeforeEntry
		}

		pnl := in.ClosingPrice.Sub(p.EntryPrice).Mul(p.Quantity)
		closingDate := *in.ClosingDate

		p.Status = models.StatusClosed
		p.ClosingPrice = decimal.NewNullDecimal(in.ClosingPrice)
		p.ClosingDate = &closingDate
		p.RealizedPnL = decimal.NewNullDecimal(pnl)
		if in.PublicNote != nil {
			p.PublicNote = *in.PublicNote
		}

		notes := "Realized P&L: " + pnl.StringFixed(2)
		return &models.AuditLog{
			Action:      models.AuditClose,
			DiffSummary: "Position closed at " + in.ClosingPrice.String(),
			Notes:       &notes,
		}, nil
	})
}

// Archive retires a position from any non-archived status.
func (s *positionService) Archive(ctx context.Context, id, actor string) (*models.Position, error) {
	return s.mutate(ctx, id, actor, nil, func(p *models.Position, _ time.Time) (*models.AuditLog, error) {
		if p.Status == models.StatusArchived || !p.Status.CanTransitionTo(models.StatusArchived) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidTransition, "position is already archived")
		}
		p.Status = models.StatusArchived
		return &models.AuditLog{Action: models.AuditArchive, DiffSummary: "Position archived"}, nil
	})
}

// ToggleVisibility publishes a position to members or hides it again.
func (s *positionService) ToggleVisibility(ctx context.Context, id string, visibility models.Visibility, actor string) (*models.Position, error) {
	if !visibility.Valid() {
		return nil, apperrors.ErrInvalidVisibility
	}

	return s.mutate(ctx, id, actor, nil, func(p *models.Position, _ time.Time) (*models.AuditLog, error) {
		p.Visibility = visibility
		return &models.AuditLog{
			Action:      models.VisibilityAction(visibility),
			DiffSummary: "Visibility changed to " + string(visibility),
		}, nil
	})
}

// UpdateMarketPrice marks an open position to market.
func (s *positionService) UpdateMarketPrice(ctx context.Context, id string, price decimal.Decimal, actor string) (*models.Position, error) {
	if !price.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Market price must be greater than zero")
	}

	return s.mutate(ctx, id, actor, nil, func(p *models.Position, now time.Time) (*models.AuditLog, error) {
		if !p.Status.Priceable() {
			return nil, apperrors.ErrPositionNotActive
		}
		p.MarketPrice = decimal.NewNullDecimal(price)
		p.PriceUpdatedAt = &now
		return &models.AuditLog{
			Action:      models.AuditEdit,
			DiffSummary: "Market price updated to " + price.String(),
		}, nil
	})
}

// ListVisible returns the positions role may see, newest entry first.
func (s *positionService) ListVisible(ctx context.Context, role models.Role, page pagination.PageRequest) (*pagination.PageResponse[models.PositionWithCalculations], error) {
	if !role.Valid() {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Position{}).Scopes(visibleTo(role))

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	var positions []models.Position
	if err := base.Order("entry_date DESC, created_at DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&positions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	for i := range positions {
		positions[i].RedactFor(role)
	}
	items := calc.EnrichAll(positions, s.now())

	result := pagination.NewPageResponse(items, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetVisible returns one position under the same visibility rule as
// ListVisible. A position the role may not see does not exist for it.
func (s *positionService) GetVisible(ctx context.Context, role models.Role, id string) (*models.PositionWithCalculations, error) {
	if !role.Valid() {
		return nil, apperrors.ErrForbidden
	}

	var p models.Position
	if err := s.db.WithContext(ctx).Scopes(visibleTo(role)).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPositionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	p.RedactFor(role)
	enriched := calc.Enrich(&p, s.now())
	return &enriched, nil
}

// Summary aggregates every position visible to role.
func (s *positionService) Summary(ctx context.Context, role models.Role) (*PortfolioSummary, error) {
	if !role.Valid() {
		return nil, apperrors.ErrForbidden
	}

	var positions []models.Position
	if err := s.db.WithContext(ctx).Scopes(visibleTo(role)).Find(&positions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	counts := make(map[models.PositionStatus]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for i := range positions {
		counts[positions[i].Status]++
	}

	return &PortfolioSummary{
		CostBasis:     calc.PortfolioCostBasis(positions),
		UnrealizedPnL: calc.TotalUnrealizedPnL(positions),
		RealizedPnL:   calc.TotalRealizedPnL(positions),
		StatusCounts:  counts,
		Total:         len(positions),
	}, nil
}

// ListPricingTargets returns Live positions that carry a ticker.
func (s *positionService) ListPricingTargets(ctx context.Context) ([]PricingTarget, error) {
	var positions []models.Position
	err := s.db.WithContext(ctx).
		Select("id", "ticker").
		Where("status = ? AND ticker IS NOT NULL AND ticker <> ''", models.StatusLive).
		Order("ticker ASC, id ASC").
		Find(&positions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	targets := make([]PricingTarget, 0, len(positions))
	for _, p := range positions {
		targets = append(targets, PricingTarget{PositionID: p.ID, Ticker: *p.Ticker})
	}
	return targets, nil
}

// RecordMarketPrices applies a batch of quotes. Each entry succeeds or fails
// on its own; only cancellation aborts the batch.
func (s *positionService) RecordMarketPrices(ctx context.Context, prices []PriceUpdate, actor string) (*PriceBatchResult, error) {
	result := &PriceBatchResult{Failed: []PriceFailure{}}

	for _, u := range prices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.UpdateMarketPrice(ctx, u.PositionID, u.Price, actor); err != nil {
			failure := PriceFailure{PositionID: u.PositionID, Code: apperrors.ErrInternalServer.Code, Message: err.Error()}
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				failure.Code = appErr.Code
				failure.Message = appErr.Message
			}
			logger.Get().Warnw("market price not recorded",
				"position_id", u.PositionID,
				"price", u.Price.String(),
				"error", err,
			)
			result.Failed = append(result.Failed, failure)
			continue
		}
		result.Updated++
	}

	return result, nil
}

// mutate runs apply against the current row inside a transaction and writes
// the result only if nobody else bumped the version in between.
func (s *positionService) mutate(ctx context.Context, id, actor string, expected *int64, apply mutation) (*models.Position, error) {
	var out models.Position

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Position
		if err := tx.Where("id = ?", id).First(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPositionNotFound
			}
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		if expected != nil && *expected != cur.Version {
			return apperrors.ErrVersionConflict
		}

		now := s.now()
		next := cur
		next.Tags = append([]string{}, cur.Tags...)

		entry, err := apply(&next, now)
		if err != nil {
			return err
		}

		if ref := actorRef(actor); ref != nil {
			next.UpdatedBy = ref
		}
		next.UpdatedAt = now
		next.Version = cur.Version + 1

		res := tx.Model(&next).
			Where("version = ?", cur.Version).
			Select("*").
			Omit("id", "created_at", "created_by").
			Updates(&next)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrVersionConflict
		}

		if err := s.record(ctx, tx, &next, actor, entry, now); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// record appends the audit entry and the outbox event for p within tx.
func (s *positionService) record(ctx context.Context, tx *gorm.DB, p *models.Position, actor string, entry *models.AuditLog, now time.Time) error {
	positionID := p.ID
	entry.PositionID = &positionID
	entry.UserID = actorRef(actor)
	entry.Timestamp = now

	if err := s.audit.Record(ctx, tx, entry); err != nil {
		return err
	}
	if err := outbox.Enqueue(tx, p, entry); err != nil {
		logger.Get().Errorw("failed to enqueue position event", "position_id", p.ID, "action", entry.Action, "error", err)
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return nil
}

// visibleTo limits a query to what role may read. Investors see only Live
// positions published to members.
func visibleTo(role models.Role) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if role == models.RoleAdmin {
			return db
		}
		return db.Where("status = ? AND visibility = ?", models.StatusLive, models.VisibilityMembersView)
	}
}

func validateCreate(in *CreatePositionInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.ErrMissingTitle
	}
	if in.EntryDate == nil || in.EntryDate.IsZero() {
		return apperrors.ErrMissingEntryDate
	}
	if !in.EntryPrice.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Entry price must be greater than zero")
	}
	if !in.Quantity.IsPositive() {
		return apperrors.ErrNonPositiveQuantity
	}

	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !in.Status.Valid() {
		return apperrors.ErrInvalidStatus
	}
	if in.Status != models.StatusDraft && in.Status != models.StatusLive {
		return apperrors.WithMessage(apperrors.ErrInvalidTransition, "new positions must start as Draft or Live")
	}

	if in.Visibility == "" {
		in.Visibility = models.VisibilityAdminOnly
	}
	if !in.Visibility.Valid() {
		return apperrors.ErrInvalidVisibility
	}

	if in.TargetPrice.Valid && !in.TargetPrice.Decimal.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Target price must be greater than zero")
	}
	if in.MarketPrice.Valid && !in.MarketPrice.Decimal.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Market price must be greater than zero")
	}
	return nil
}

// validatePatch checks the values in patch that do not depend on the stored row.
func validatePatch(patch *PositionPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return apperrors.ErrMissingTitle
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.ErrInvalidStatus
	}
	if patch.Visibility != nil && !patch.Visibility.Valid() {
		return apperrors.ErrInvalidVisibility
	}
	if patch.EntryDate != nil && patch.EntryDate.IsZero() {
		return apperrors.ErrMissingEntryDate
	}
	if patch.EntryPrice != nil && !patch.EntryPrice.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Entry price must be greater than zero")
	}
	if patch.Quantity != nil && !patch.Quantity.IsPositive() {
		return apperrors.ErrNonPositiveQuantity
	}
	if patch.TargetPrice != nil && patch.TargetPrice.Valid && !patch.TargetPrice.Decimal.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Target price must be greater than zero")
	}
	if patch.MarketPrice != nil && !patch.MarketPrice.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrNonPositivePrice, "Market price must be greater than zero")
	}
	return nil
}

// applyPatch merges patch into p against its current state.
func applyPatch(p *models.Position, patch *PositionPatch, now time.Time) error {
	locked := p.Status == models.StatusClosed || p.Status == models.StatusArchived
	touchesEconomics := patch.EntryPrice != nil || patch.Quantity != nil || patch.EntryDate != nil || patch.MarketPrice != nil
	if locked && touchesEconomics {
		return apperrors.ErrPositionLocked
	}

	if patch.Status != nil && *patch.Status != p.Status {
		target := *patch.Status
		if !p.Status.CanTransitionTo(target) {
			return apperrors.WithMessage(apperrors.ErrInvalidTransition,
				fmt.Sprintf("cannot move position from %s to %s", p.Status, target))
		}
		switch target {
		case models.StatusClosed:
			return apperrors.WithMessage(apperrors.ErrInvalidTransition, "use close to record a closing price")
		case models.StatusArchived:
			return apperrors.WithMessage(apperrors.ErrInvalidTransition, "use archive to retire a position")
		case models.StatusDraft, models.StatusLive:
			p.Status = target
		}
	}

	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Ticker != nil {
		p.Ticker = optionalText(patch.Ticker)
	}
	if patch.Sector != nil {
		p.Sector = optionalText(patch.Sector)
	}
	if patch.Visibility != nil {
		p.Visibility = *patch.Visibility
	}
	if patch.EntryDate != nil {
		p.EntryDate = *patch.EntryDate
	}
	if patch.EntryPrice != nil || patch.Quantity != nil {
		if patch.EntryPrice != nil {
			p.EntryPrice = *patch.EntryPrice
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
		}
		p.CostBasis = models.ComputeCostBasis(p.EntryPrice, p.Quantity)
	}
	if patch.TargetPrice != nil {
		p.TargetPrice = *patch.TargetPrice
	}
	if patch.MarketPrice != nil {
		p.MarketPrice = decimal.NewNullDecimal(*patch.MarketPrice)
		p.PriceUpdatedAt = &now
	}
	if patch.NotesAdmin != nil {
		p.NotesAdmin = *patch.NotesAdmin
	}
	if patch.PublicNote != nil {
		p.PublicNote = *patch.PublicNote
	}
	if patch.Tags != nil {
		p.Tags = normalizeTags(*patch.Tags)
	}

	// opened_date is written once, on the first update that finds the
	// position Live without one.
	if p.OpenedDate == nil && p.Status == models.StatusLive {
		opened := firstDate(patch.OpenedDate, patch.EntryDate, &p.EntryDate)
		if opened == nil {
			today := models.DateOf(now)
			opened = &today
		}
		p.OpenedDate = opened
	}

	return nil
}

func firstDate(candidates ...*models.Date) *models.Date {
	for _, d := range candidates {
		if d != nil && !d.IsZero() {
			v := *d
			return &v
		}
	}
	return nil
}

func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
