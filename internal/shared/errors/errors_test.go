package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestValidationCarriesSentinelAndDetails(t *testing.T) {
	err := Validation("invalid evaluation request", map[string]string{
		"weight_kg": "must be positive",
	})

	if !errors.Is(err, ErrValidation) {
		t.Error("Validation() should match ErrValidation")
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", err.HTTPStatus)
	}
	if err.Details["weight_kg"] != "must be positive" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestConstructorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   string
	}{
		{"not found", NotFound("reference table", "xyz/male"), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", Unauthorized("missing authorization header"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden("insufficient permissions"), http.StatusForbidden, "FORBIDDEN"},
		{"bad request", BadRequest("invalid request body"), http.StatusBadRequest, "BAD_REQUEST"},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("driver timeout")
	err := Internal(cause)

	if err.Message != "internal server error" {
		t.Errorf("message = %q, want the generic text", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Internal() should still unwrap to its cause")
	}
}
