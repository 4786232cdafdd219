package models

// Profile is a portal user. Role drives what positions the user can see.
type Profile struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string `gorm:"not null;default:''" json:"full_name"`
	Role         Role   `gorm:"type:varchar(16);not null;default:'investor'" json:"role"`
	Timezone     string `gorm:"not null;default:'UTC'" json:"timezone"`
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool { return p.Role == RoleAdmin }
