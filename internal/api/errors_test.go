package api

import (
	"errors"
	"fmt"
	"testing"
)

func TestDecodeErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind DetailKind
		want string
	}{
		{"text", `{"detail": "Incorrect email or password"}`, DetailText, "Incorrect email or password"},
		{"object error", `{"detail": {"error": "locked", "message": "ignored"}}`, DetailObject, "locked"},
		{"object message", `{"detail": {"message": "try later"}}`, DetailObject, "try later"},
		{"object raw", `{"detail": {"code": 7}}`, DetailObject, `{"code": 7}`},
		{"validation", `{"detail": [{"loc": ["body", "title"], "msg": "Field required", "type": "missing"}]}`, DetailValidation, "title: Field required"},
		{"validation nested loc", `{"detail": [{"loc": ["body", "items", 0, "id"], "msg": "bad", "type": "x"}, {"loc": [], "msg": "whole body", "type": "y"}]}`, DetailValidation, "items.0.id: bad; whole body"},
		{"no detail", `{"error": "x"}`, DetailNone, ""},
		{"null detail", `{"detail": null}`, DetailNone, ""},
		{"number detail", `{"detail": 5}`, DetailNone, ""},
		{"malformed array", `{"detail": ["just", "strings"]}`, DetailNone, ""},
		{"not json", `<html>502</html>`, DetailNone, ""},
		{"empty", ``, DetailNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DecodeErrorDetail([]byte(tt.body))
			if d.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", d.Kind, tt.kind)
			}
			if got := d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeErrorDetail_TopLevelMessage(t *testing.T) {
	d := DecodeErrorDetail([]byte(`{"message": "rate limited"}`))
	if d.TopMessage != "rate limited" {
		t.Errorf("TopMessage = %q", d.TopMessage)
	}
	err := &APIError{StatusCode: 429, Detail: d}
	if err.Error() != "API error (status 429): rate limited" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidationIssue_Field(t *testing.T) {
	tests := []struct {
		loc  []any
		want string
	}{
		{[]any{"body", "email"}, "email"},
		{[]any{"query", "limit"}, "limit"},
		{[]any{"path", "id"}, "id"},
		{[]any{"body"}, "body"},
		{[]any{"header", "x"}, "header.x"},
		{[]any{"body", "items", float64(1)}, "items.1"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := (ValidationIssue{Loc: tt.loc}).Field(); got != tt.want {
			t.Errorf("Field(%v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 404, Detail: DecodeErrorDetail([]byte(`{"detail": "Not found"}`))}
	if err.Error() != "API error (status 404): Not found" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	bare := &APIError{StatusCode: 500}
	if bare.Error() != "API error (status 500)" {
		t.Errorf("unexpected error message: %s", bare.Error())
	}
}

func TestAPIError_DecodeBody(t *testing.T) {
	err := &APIError{StatusCode: 400, Body: []byte(`{"detail": "x", "extra": 1}`)}
	var body struct {
		Extra int `json:"extra"`
	}
	if decodeErr := err.DecodeBody(&body); decodeErr != nil || body.Extra != 1 {
		t.Fatalf("DecodeBody = %v, extra = %d", decodeErr, body.Extra)
	}

	empty := &APIError{StatusCode: 400}
	if empty.DecodeBody(&body) == nil {
		t.Error("expected error for empty body")
	}
}

func TestExtractError(t *testing.T) {
	apiErr := &APIError{StatusCode: 400, Detail: DecodeErrorDetail([]byte(`{"detail": "Inactive user"}`))}
	noDetail := &APIError{StatusCode: 502, Body: []byte(`bad gateway`)}

	tests := []struct {
		name     string
		v        any
		fallback string
		want     string
	}{
		{"nil", nil, "fallback", "fallback"},
		{"api error detail", apiErr, "fallback", "Inactive user"},
		{"wrapped api error", fmt.Errorf("login: %w", apiErr), "fallback", "Inactive user"},
		{"api error without detail", noDetail, "fallback", "fallback"},
		{"validation", &APIError{StatusCode: 422, Detail: DecodeErrorDetail([]byte(`{"detail": [{"loc": ["body", "email"], "msg": "invalid", "type": "v"}]}`))}, "f", "email: invalid"},
		{"plain error", errors.New("boom"), "fallback", "boom"},
		{"error with empty message", errors.New(""), "fallback", "fallback"},
		{"detail value", DecodeErrorDetail([]byte(`{"detail": "direct"}`)), "fallback", "direct"},
		{"empty detail value", ErrorDetail{}, "fallback", "fallback"},
		{"string", "not an error", "fallback", "fallback"},
		{"number", 42, "fallback", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractError(tt.v, tt.fallback); got != tt.want {
				t.Errorf("ExtractError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsUnauthorizedError(&APIError{StatusCode: 401}) || !IsUnauthorizedError(&APIError{StatusCode: 403}) {
		t.Error("401 and 403 should be unauthorized")
	}
	if IsUnauthorizedError(errors.New("x")) || IsNotFoundError(&APIError{StatusCode: 400}) {
		t.Error("unexpected predicate match")
	}
	if !(&APIError{StatusCode: 422, Detail: ErrorDetail{Kind: DetailValidation}}).IsValidation() {
		t.Error("IsValidation should be true")
	}
}
