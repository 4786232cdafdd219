// Package errors provides the application error type shared by the ledger,
// the HTTP layer and the background workers. Service code returns *AppError
// values so handlers can render a stable code and message without leaking
// store internals to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so a wrapped
// or re-messaged error still matches its sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey      = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidation     = &AppError{Code: "VALIDATION_ERROR", Message: "Validation failed", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrPersistence    = &AppError{Code: "PERSISTENCE_ERROR", Message: "The data store could not complete the request", StatusCode: http.StatusInternalServerError}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Profile errors.
var (
	ErrProfileNotFound = &AppError{Code: "PROFILE_NOT_FOUND", Message: "Profile not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail  = &AppError{Code: "DUPLICATE_EMAIL", Message: "A profile with this email already exists", StatusCode: http.StatusConflict}
)

// Position errors.
var (
	ErrPositionNotFound      = &AppError{Code: "POSITION_NOT_FOUND", Message: "Position not found", StatusCode: http.StatusNotFound}
	ErrVersionConflict       = &AppError{Code: "VERSION_CONFLICT", Message: "Position was modified by another request", StatusCode: http.StatusConflict}
	ErrInvalidTransition     = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Status transition is not allowed", StatusCode: http.StatusConflict}
	ErrPositionNotActive     = &AppError{Code: "POSITION_NOT_ACTIVE", Message: "Position is closed or archived", StatusCode: http.StatusConflict}
	ErrPositionLocked        = &AppError{Code: "POSITION_LOCKED", Message: "Entry economics cannot change once a position is closed", StatusCode: http.StatusConflict}
	ErrInvalidStatus         = &AppError{Code: "INVALID_STATUS", Message: "Unknown position status", StatusCode: http.StatusBadRequest}
	ErrInvalidVisibility     = &AppError{Code: "INVALID_VISIBILITY", Message: "Unknown visibility", StatusCode: http.StatusBadRequest}
	ErrNonPositivePrice      = &AppError{Code: "VALIDATION_ERROR", Message: "Price must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrNonPositiveQuantity   = &AppError{Code: "VALIDATION_ERROR", Message: "Quantity must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrMissingTitle          = &AppError{Code: "VALIDATION_ERROR", Message: "Title is required", StatusCode: http.StatusBadRequest}
	ErrMissingEntryDate      = &AppError{Code: "VALIDATION_ERROR", Message: "Entry date is required", StatusCode: http.StatusBadRequest}
	ErrMissingClosingDate    = &AppError{Code: "VALIDATION_ERROR", Message: "Closing date is required", StatusCode: http.StatusBadRequest}
	ErrClosingBeforeEntry    = &AppError{Code: "VALIDATION_ERROR", Message: "Closing date cannot precede entry date", StatusCode: http.StatusBadRequest}
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)
