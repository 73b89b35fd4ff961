// Package apperror provides structured error handling for the stock platform.
// All business errors must use AppError so callers can react to a closed set
// of machine-readable codes instead of matching on message text.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by concern.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeInsufficientAvailable  = "INSUFFICIENT_AVAILABLE"
	CodeInsufficientReserved   = "INSUFFICIENT_RESERVED"
	CodeInvalidLocation        = "INVALID_LOCATION"
	CodeTransferNotPending     = "TRANSFER_NOT_PENDING"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeAccessDenied = "ACCESS_DENIED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the platform.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404).
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientAvailable signals that the free quantity cannot cover the request.
func NewInsufficientAvailable(stockID string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientAvailable,
		Message:    "Insufficient available quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"stock_id":  stockID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewInsufficientReserved signals that the reserved quantity cannot cover the request.
func NewInsufficientReserved(stockID string, requested, reserved string) *AppError {
	return &AppError{
		Code:       CodeInsufficientReserved,
		Message:    "Insufficient reserved quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"stock_id":  stockID,
			"requested": requested,
			"reserved":  reserved,
		},
	}
}

// NewInvalidLocation signals an inactive or otherwise unusable location.
func NewInvalidLocation(locationID string, reason string) *AppError {
	return &AppError{
		Code:       CodeInvalidLocation,
		Message:    "Invalid location",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"location_id": locationID,
			"reason":      reason,
		},
	}
}

// NewTransferNotPending is returned when a receive or delete hits a settled transfer.
func NewTransferNotPending(transferID string, status string) *AppError {
	return &AppError{
		Code:       CodeTransferNotPending,
		Message:    "Transfer is no longer pending",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"transfer_id": transferID,
			"status":      status,
		},
	}
}

// NewConcurrentModification creates an optimistic locking error.
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client).
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDatabase wraps a persistence failure.
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Persistence failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401).
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewAccessDenied creates a location-gate failure (403).
func NewAccessDenied(message string) *AppError {
	return &AppError{
		Code:       CodeAccessDenied,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409).
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsAccessDenied checks if error is CodeAccessDenied.
func IsAccessDenied(err error) bool {
	return HasCode(err, CodeAccessDenied)
}

// IsConcurrentModification checks if error is CodeConcurrentModification.
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}
