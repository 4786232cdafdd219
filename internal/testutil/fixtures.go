package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"investorportal/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture profile.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestProfile creates an investor profile with a unique email.
func CreateTestProfile(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()
	return CreateTestProfileWithRole(t, db, models.RoleInvestor)
}

// CreateTestAdmin creates an admin profile with a unique email.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()
	return CreateTestProfileWithRole(t, db, models.RoleAdmin)
}

// CreateTestProfileWithRole creates a profile with a hashed password and the given role.
func CreateTestProfileWithRole(t *testing.T, db *gorm.DB, role models.Role) *models.Profile {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	profile := &models.Profile{
		Email:        fmt.Sprintf("%s%d@test.com", role, nextID()),
		PasswordHash: string(hash),
		FullName:     "Test " + string(role),
		Role:         role,
		Timezone:     "UTC",
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return profile
}

// PositionOption customizes a fixture position before it is inserted.
type PositionOption func(*models.Position)

// WithStatus sets the fixture status.
func WithStatus(s models.PositionStatus) PositionOption {
	return func(p *models.Position) { p.Status = s }
}

// WithVisibility sets the fixture visibility.
func WithVisibility(v models.Visibility) PositionOption {
	return func(p *models.Position) { p.Visibility = v }
}

// WithTicker sets the fixture ticker.
func WithTicker(ticker string) PositionOption {
	return func(p *models.Position) { p.Ticker = &ticker }
}

// WithEntryDate sets the fixture entry date.
func WithEntryDate(d string) PositionOption {
	return func(p *models.Position) { p.EntryDate = models.MustParseDate(d) }
}

// CreateTestPosition inserts a Draft, admin-only position of 10 units at 100
// directly, bypassing the ledger and its audit trail.
func CreateTestPosition(t *testing.T, db *gorm.DB, opts ...PositionOption) *models.Position {
	t.Helper()

	p := &models.Position{
		Title:      fmt.Sprintf("Position %d", nextID()),
		Status:     models.StatusDraft,
		Visibility: models.VisibilityAdminOnly,
		EntryDate:  models.MustParseDate("2024-01-01"),
		EntryPrice: decimal.NewFromInt(100),
		Quantity:   decimal.NewFromInt(10),
		Tags:       []string{},
		Version:    1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.CostBasis = models.ComputeCostBasis(p.EntryPrice, p.Quantity)
	if p.Status == models.StatusLive && p.OpenedDate == nil {
		opened := p.EntryDate
		p.OpenedDate = &opened
	}

	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create test position: %v", err)
	}
	return p
}
