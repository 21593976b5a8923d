package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// APIError is the error shape every handler ultimately responds with.
// Domain packages declare their sentinels as *APIError values so a wrapped
// sentinel still carries its status through FromError.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newAPIError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return newAPIError(ErrUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return newAPIError(ErrForbidden, message)
}

// Conflict creates a CONFLICT error
func Conflict(message string) *APIError {
	return newAPIError(ErrConflict, message)
}

// ValidationError creates a VALIDATION_ERROR bound to a request field
func ValidationError(field, message string) *APIError {
	e := newAPIError(ErrValidation, message)
	e.Field = field
	return e
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return newAPIError(ErrBadRequest, message)
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return newAPIError(ErrInternalError, message)
}

// AlreadyExists creates an ALREADY_EXISTS error
func AlreadyExists(resource string) *APIError {
	return newAPIError(ErrAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newAPIError(ErrRateLimited, message)
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return newAPIError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// TooLarge creates a PAYLOAD_TOO_LARGE error
func TooLarge(message string) *APIError {
	return newAPIError(ErrTooLarge, message)
}

// WithDetails returns a copy of the error carrying extra detail.
// Sentinels are shared, so they are never mutated in place.
func (e *APIError) WithDetails(details string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// FromError maps any error returned by a service into an APIError.
// Unknown errors become a generic 500; the caller logs the original.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("resource")
	}

	return &APIError{
		Code:    ErrInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
	}
}

// IsNotFound reports whether err resolves to a NOT_FOUND APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code == ErrNotFound
	}
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}
