package errors

import (
	"net/http"

	"storefinder/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Store-related errors
	ErrStoreNotFound = NewBaseError(
		http.StatusNotFound,
		"STORE_NOT_FOUND",
		"Store not found",
		"",
	)

	// Detection-related errors
	ErrDetectionFailed = NewBaseError(
		http.StatusInternalServerError,
		"DETECTION_FAILED",
		"Store detection failed",
		"",
	)
	ErrPositionPermissionDenied = NewBaseError(
		http.StatusForbidden,
		"POSITION_PERMISSION_DENIED",
		"Positioning permission denied",
		"",
	)
	ErrPositionPermissionBlocked = NewBaseError(
		http.StatusForbidden,
		"POSITION_PERMISSION_BLOCKED",
		"Positioning permission blocked; enable it in system settings",
		"",
	)
	ErrPositionUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"POSITION_UNAVAILABLE",
		"Current position unavailable",
		"",
	)
	ErrScanUnsupported = NewBaseError(
		http.StatusNotImplemented,
		"SCAN_UNSUPPORTED",
		"Wireless scanning not supported on this platform",
		"",
	)

	// Geofence-related errors
	ErrInvalidGeofence = NewBaseError(
		http.StatusUnprocessableEntity,
		"INVALID_GEOFENCE",
		"Geofence geometry is invalid",
		"",
	)
)

// NewDatabaseExecuteError wraps a database failure into a generic AppError
func NewDatabaseExecuteError(err error, message string) error {
	base := NewBaseError(
		http.StatusInternalServerError,
		"DATABASE_ERROR",
		message,
		err.Error(),
	)

	return errors.Wrap(base, message)
}
