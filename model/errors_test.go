package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorEnvelope_Error(t *testing.T) {
	e := &ErrorEnvelope{Code: ErrNotFound, Message: "table not found"}
	want := "NOT_FOUND: table not found"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorEnvelope_implements_error(t *testing.T) {
	var _ error = (*ErrorEnvelope)(nil)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *ErrorEnvelope
		code string
	}{
		{"bad request", NewBadRequestError("bad json"), ErrBadRequest},
		{"unauthorized", NewUnauthorizedError("missing token"), ErrUnauthorized},
		{"forbidden", NewForbiddenError("denied"), ErrForbidden},
		{"not found", NewNotFoundError("missing"), ErrNotFound},
		{"conflict", NewConflictError("dup"), ErrConflict},
		{"rate limited", NewRateLimitedError("slow down"), ErrRateLimited},
		{"internal", NewInternalError(), ErrInternalError},
		{"backend", NewBackendUnavailableError(nil), ErrBackendUnavailable},
		{"feature disabled", NewFeatureDisabledError("export"), ErrFeatureDisabled},
		{"selection empty", NewSelectionEmptyError(), ErrSelectionEmpty},
		{"selection locked", NewSelectionLockedError(), ErrSelectionLocked},
		{"in flight", NewActionInFlightError("delete"), ErrActionInFlight},
		{"bulk failed", NewBulkActionFailedError("delete", nil), ErrBulkActionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	details := []FieldError{
		{Field: "columns[0].key", Code: "REQUIRED", Message: "key is required"},
	}
	e := NewValidationError(details)
	if e.Code != ErrValidationError {
		t.Errorf("Code = %q, want %q", e.Code, ErrValidationError)
	}
	if len(e.Details) != 1 || e.Details[0].Field != "columns[0].key" {
		t.Errorf("Details = %+v", e.Details)
	}
}

func TestCodeOf(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("dispatch: %w", NewBulkActionFailedError("delete", cause))

	if got := CodeOf(wrapped); got != ErrBulkActionFailed {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ErrBulkActionFailed)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the cause through the envelope")
	}
	if got := CodeOf(cause); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}
