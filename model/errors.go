package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrNotFound           = "NOT_FOUND"
	ErrConflict           = "CONFLICT"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrRateLimited        = "RATE_LIMITED"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// Table-specific error codes.
const (
	ErrFeatureDisabled  = "FEATURE_DISABLED"
	ErrSelectionEmpty   = "SELECTION_EMPTY"
	ErrSelectionLocked  = "SELECTION_LOCKED"
	ErrActionInFlight   = "ACTION_IN_FLIGHT"
	ErrBulkActionFailed = "BULK_ACTION_FAILED"
)

// ErrorEnvelope is the standard error response envelope.
// It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ErrorEnvelope) Unwrap() error {
	return e.cause
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CodeOf returns the envelope code carried by err, or "" when err does not
// wrap an *ErrorEnvelope.
func CodeOf(err error) string {
	var ee *ErrorEnvelope
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewRateLimitedError returns a RATE_LIMITED error.
func NewRateLimitedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrRateLimited, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error wrapping the
// infrastructure failure that caused it.
func NewBackendUnavailableError(cause error) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The row store is temporarily unavailable",
		cause:   cause,
	}
}

// NewFeatureDisabledError reports use of a capability the table has turned off.
func NewFeatureDisabledError(feature string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrFeatureDisabled,
		Message: fmt.Sprintf("%s is disabled for this table", feature),
	}
}

// NewSelectionEmptyError reports a bulk dispatch with nothing selected.
func NewSelectionEmptyError() *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrSelectionEmpty, Message: "no rows selected"}
}

// NewSelectionLockedError reports a selection change while a bulk action runs.
func NewSelectionLockedError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrSelectionLocked,
		Message: "selection cannot change while a bulk action is running",
	}
}

// NewActionInFlightError reports a duplicate dispatch of a running action.
func NewActionInFlightError(action string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrActionInFlight,
		Message: fmt.Sprintf("bulk action %q is already running", action),
	}
}

// NewBulkActionFailedError reports a bulk action whose handler failed. The
// message is meant for the user; the cause is kept for logging.
func NewBulkActionFailedError(action string, cause error) *ErrorEnvelope {
	msg := fmt.Sprintf("bulk action %q failed", action)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &ErrorEnvelope{Code: ErrBulkActionFailed, Message: msg, cause: cause}
}
