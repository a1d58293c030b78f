package api

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{400, ErrBadRequest},
		{401, ErrUnauthorized},
		{403, ErrForbidden},
		{404, ErrNotFound},
		{409, ErrConflict},
		{422, ErrValidation},
		{429, ErrRateLimited},
		{500, ErrServerError},
		{503, ErrServerError},
		{418, ErrUnknown},
		{302, ErrUnknown},
	}
	for _, tt := range tests {
		if got := ErrorCodeFromStatus(tt.status); got != tt.want {
			t.Errorf("ErrorCodeFromStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestErrorCode_IsRetryable(t *testing.T) {
	for _, code := range []ErrorCode{ErrRateLimited, ErrServerError, ErrNetwork} {
		if !code.IsRetryable() {
			t.Errorf("%s should be retryable", code)
		}
	}
	for _, code := range []ErrorCode{ErrBadRequest, ErrUnauthorized, ErrValidation, ErrCanceled, ErrUnknown} {
		if code.IsRetryable() {
			t.Errorf("%s should not be retryable", code)
		}
	}
}

func TestErrorCode_Suggestion(t *testing.T) {
	if ErrUnauthorized.Suggestion() == "" {
		t.Error("unauthorized should carry a suggestion")
	}
	if ErrUnknown.Suggestion() != "" {
		t.Error("unknown should not carry a suggestion")
	}
}

func TestStructuredErrorFromError(t *testing.T) {
	validation := &APIError{
		StatusCode: 422,
		RequestID:  "req-9",
		Detail:     DecodeErrorDetail([]byte(`{"detail": [{"loc": ["body", "title"], "msg": "Field required", "type": "missing"}]}`)),
	}

	tests := []struct {
		name    string
		err     error
		code    ErrorCode
		message string
	}{
		{"api error", &APIError{StatusCode: 401, Detail: DecodeErrorDetail([]byte(`{"detail": "Not authenticated"}`))}, ErrUnauthorized, "Not authenticated"},
		{"api error without detail", &APIError{StatusCode: 500}, ErrServerError, "API error (status 500)"},
		{"wrapped api error", fmt.Errorf("delete: %w", &APIError{StatusCode: 404}), ErrNotFound, "API error (status 404)"},
		{"validation", validation, ErrValidation, "title: Field required"},
		{"canceled", fmt.Errorf("request failed: %w", context.Canceled), ErrCanceled, "request failed: context canceled"},
		{"deadline", context.DeadlineExceeded, ErrNetwork, "context deadline exceeded"},
		{"plain", errors.New("boom"), ErrUnknown, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := StructuredErrorFromError(tt.err)
			if se == nil {
				t.Fatal("expected structured error")
			}
			if se.Code != tt.code {
				t.Errorf("Code = %s, want %s", se.Code, tt.code)
			}
			if se.Message != tt.message {
				t.Errorf("Message = %q, want %q", se.Message, tt.message)
			}
			if se.Retryable != tt.code.IsRetryable() {
				t.Errorf("Retryable = %v", se.Retryable)
			}
		})
	}

	se := StructuredErrorFromError(validation)
	if se.Status != 422 || se.RequestID != "req-9" || len(se.Issues) != 1 {
		t.Errorf("validation fields not carried over: %+v", se)
	}
}

func TestStructuredErrorFromError_Passthrough(t *testing.T) {
	if StructuredErrorFromError(nil) != nil {
		t.Error("nil error should map to nil")
	}
	orig := NewStructuredError(ErrConflict, "already exists")
	if got := StructuredErrorFromError(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("existing StructuredError should pass through, got %+v", got)
	}
	if orig.Error() != "[conflict] already exists" {
		t.Errorf("Error() = %q", orig.Error())
	}
}
