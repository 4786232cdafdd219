// Package validator registers the portal's enum validators with Gin's binding
// engine so request structs can use tags such as binding:"position_status".
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"investorportal/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn adds the custom validations to v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("position_status", validatePositionStatus)
	_ = v.RegisterValidation("visibility", validateVisibility)
	_ = v.RegisterValidation("role", validateRole)
	_ = v.RegisterValidation("ticker", validateTicker)
}

func validatePositionStatus(fl validator.FieldLevel) bool {
	return models.PositionStatus(fl.Field().String()).Valid()
}

func validateVisibility(fl validator.FieldLevel) bool {
	return models.Visibility(fl.Field().String()).Valid()
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

// validateTicker accepts exchange symbols such as AAPL, BRK.B, 7203.T or
// BTC-USD.
func validateTicker(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 16 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return false
		}
	}
	return true
}
