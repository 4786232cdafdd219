package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	apperrors "investorportal/internal/errors"
	"investorportal/internal/models"
)

const roleKey = "role"

// RoleResolver maps a user id to its portal role.
type RoleResolver interface {
	GetRole(ctx context.Context, userID string) (models.Role, error)
}

// ResolveRole looks up the caller's role once per request. It must run after
// AuthMiddleware.
func ResolveRole(resolver RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		role, err := resolver.GetRole(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(roleKey, role)
		c.Next()
	}
}

// RequireAdmin rejects callers whose resolved role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != models.RoleAdmin {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrForbidden, "Admin access required"))
			return
		}
		c.Next()
	}
}

// Role returns the role resolved for the request. Requests that never went
// through ResolveRole are treated as investors.
func Role(c *gin.Context) models.Role {
	if v, ok := c.Get(roleKey); ok {
		if role, ok := v.(models.Role); ok && role.Valid() {
			return role
		}
	}
	return models.RoleInvestor
}

// SetRole stores a resolved role. Tests use it to stand in for ResolveRole.
func SetRole(c *gin.Context, role models.Role) {
	c.Set(roleKey, role)
}
