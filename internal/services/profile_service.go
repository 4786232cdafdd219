package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "investorportal/internal/errors"
	"investorportal/internal/models"
)

const minPasswordLen = 8

// profileService resolves roles and manages portal logins.
type profileService struct {
	db *gorm.DB
}

// NewProfileService creates a new ProfileServicer.
func NewProfileService(db *gorm.DB) ProfileServicer {
	return &profileService{db: db}
}

// Register creates an investor profile. Admins are promoted with SetRole.
func (s *profileService) Register(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "a valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "password must be at least 8 characters")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	profile := &models.Profile{
		Email:        email,
		PasswordHash: string(hashed),
		FullName:     strings.TrimSpace(fullName),
		Role:         models.RoleInvestor,
		Timezone:     "UTC",
	}
	if err := db.Create(profile).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	return profile, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *profileService) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &profile, nil
}

// GetByID retrieves a profile by ID.
func (s *profileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProfileNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return &profile, nil
}

// GetRole resolves the role of a user. Users without a profile, or with an
// unrecognised role, are investors.
func (s *profileService) GetRole(ctx context.Context, id string) (models.Role, error) {
	profile, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrProfileNotFound) {
			return models.RoleInvestor, nil
		}
		return "", err
	}
	if !profile.Role.Valid() {
		return models.RoleInvestor, nil
	}
	return profile.Role, nil
}

// SetRole changes the role of an existing profile.
func (s *profileService) SetRole(ctx context.Context, id string, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "role must be admin or investor")
	}

	profile, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(profile).Update("role", role).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	profile.Role = role
	return profile, nil
}
