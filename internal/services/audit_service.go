package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "investorportal/internal/errors"
	"investorportal/internal/logger"
	"investorportal/internal/models"
	"investorportal/internal/pagination"
)

// auditService writes and reads the append-only audit trail.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Record appends an audit entry. Failures are logged and returned so the
// surrounding transaction rolls back.
func (s *auditService) Record(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error {
	if !entry.Action.Valid() {
		return apperrors.WithMessage(apperrors.ErrValidation, "unknown audit action "+string(entry.Action))
	}
	if tx == nil {
		tx = s.db
	}

	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"action", entry.Action,
			"position_id", deref(entry.PositionID),
			"user_id", deref(entry.UserID),
		)
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return nil
}

// List returns audit entries newest first, optionally for one position.
func (s *auditService) List(ctx context.Context, positionID *string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if positionID != nil && *positionID != "" {
		base = base.Where("position_id = ?", *positionID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	var entries []models.AuditLog
	if err := base.Order(newestFirst).Scopes(pagination.Paginate(page)).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// newestFirst orders by the quoted timestamp column, which is also a type name.
var newestFirst = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "timestamp"}, Desc: true},
	{Column: clause.Column{Name: "id"}, Desc: true},
}}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
