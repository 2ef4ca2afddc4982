package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a HeartSync error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrUnauthenticated    ErrorCode = "UNAUTHENTICATED"     // 401
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrConflict           ErrorCode = "CONFLICT"            // 409
	ErrValidationFailure  ErrorCode = "VALIDATION_FAILURE"  // 422
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrSummaryUnavailable ErrorCode = "SUMMARY_UNAVAILABLE" // 502
	ErrNetworkFailure     ErrorCode = "NETWORK_FAILURE"     // 503
)

// HeartError represents a structured error with code, status, and details.
type HeartError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *HeartError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for malformed request parameters.
func NewInvalidRequest(msg string) *HeartError {
	return &HeartError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthenticated creates a 401 error when no user identity was resolved.
func NewUnauthenticated() *HeartError {
	return &HeartError{
		Code:    ErrUnauthenticated,
		Status:  401,
		Message: "user identity is required",
	}
}

// NewNotFound creates a 404 error for a missing record.
// kind names the collection ("mood log", "contact").
func NewNotFound(kind, key string) *HeartError {
	return &HeartError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, key),
		Details: map[string]any{"kind": kind, "key": key},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *HeartError {
	return &HeartError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewValidationFailure creates a 422 error for an out-of-range or malformed field.
func NewValidationFailure(field, msg string) *HeartError {
	return &HeartError{
		Code:    ErrValidationFailure,
		Status:  422,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewSummaryUnavailable creates a 502 error when the completion service
// failed, answered with a non-success status, or returned nothing usable.
func NewSummaryUnavailable(msg string) *HeartError {
	return &HeartError{
		Code:    ErrSummaryUnavailable,
		Status:  502,
		Message: msg,
	}
}

// NewNetworkFailure creates a 503 error when a collaborator (the store or the
// completion service) cannot be reached.
func NewNetworkFailure(err error) *HeartError {
	msg := "service unreachable"
	if err != nil {
		msg = err.Error()
	}
	return &HeartError{
		Code:    ErrNetworkFailure,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *HeartError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &HeartError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if err (or anything it wraps) is a HeartError with the given code.
func Is(err error, code ErrorCode) bool {
	var hErr *HeartError
	if stderrors.As(err, &hErr) {
		return hErr.Code == code
	}
	return false
}

// As returns err as a *HeartError, wrapping anything else as INTERNAL.
func As(err error) *HeartError {
	var hErr *HeartError
	if stderrors.As(err, &hErr) {
		return hErr
	}
	return NewInternal(err)
}
