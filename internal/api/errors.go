package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DetailKind identifies which shape the backend used for "detail".
type DetailKind int

const (
	// DetailNone means the body had no usable "detail" field.
	DetailNone DetailKind = iota
	// DetailText is {"detail": "..."}.
	DetailText
	// DetailObject is {"detail": {"error": "...", "message": "..."}}.
	DetailObject
	// DetailValidation is the 422 shape {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}.
	DetailValidation
)

// ValidationIssue is one entry of a backend validation error.
type ValidationIssue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Field renders Loc as a dotted path, skipping the leading "body"/"query" segment.
func (v ValidationIssue) Field() string {
	parts := make([]string, 0, len(v.Loc))
	for i, p := range v.Loc {
		s := fmt.Sprint(p)
		if i == 0 && len(v.Loc) > 1 && (s == "body" || s == "query" || s == "path") {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

// ErrorDetail is the decoded "detail" field of an error body.
type ErrorDetail struct {
	Kind    DetailKind
	Text    string
	Error   string
	Message string
	Issues  []ValidationIssue
	// Raw is the undecoded detail value for object details.
	Raw json.RawMessage
	// TopMessage is a top-level "message" field, when present.
	TopMessage string
}

// String coerces the detail to display text. It returns "" for DetailNone.
func (d ErrorDetail) String() string {
	switch d.Kind {
	case DetailText:
		return d.Text
	case DetailObject:
		if d.Error != "" {
			return d.Error
		}
		if d.Message != "" {
			return d.Message
		}
		return string(d.Raw)
	case DetailValidation:
		lines := make([]string, 0, len(d.Issues))
		for _, issue := range d.Issues {
			if field := issue.Field(); field != "" {
				lines = append(lines, field+": "+issue.Msg)
			} else {
				lines = append(lines, issue.Msg)
			}
		}
		return strings.Join(lines, "; ")
	default:
		return ""
	}
}

// DecodeErrorDetail classifies the "detail" field of a JSON error body.
// Bodies that are not JSON decode to DetailNone.
func DecodeErrorDetail(body []byte) ErrorDetail {
	if !gjson.ValidBytes(body) {
		return ErrorDetail{}
	}
	var d ErrorDetail
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String {
		d.TopMessage = msg.String()
	}

	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		d.Kind = DetailText
		d.Text = detail.String()
	case detail.IsArray():
		var issues []ValidationIssue
		if err := json.Unmarshal([]byte(detail.Raw), &issues); err != nil {
			return d
		}
		d.Kind = DetailValidation
		d.Issues = issues
	case detail.IsObject():
		d.Kind = DetailObject
		d.Raw = json.RawMessage(detail.Raw)
		if v := detail.Get("error"); v.Type == gjson.String {
			d.Error = v.String()
		}
		if v := detail.Get("message"); v.Type == gjson.String {
			d.Message = v.String()
		}
	}
	return d
}

// APIError is returned for every non-2xx response. Body holds the response
// body exactly as received so callers can inspect the backend's payload.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
	Detail     ErrorDetail
	RequestID  string
}

func (e *APIError) Error() string {
	if msg := e.Detail.String(); msg != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg)
	}
	if e.Detail.TopMessage != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Detail.TopMessage)
	}
	return fmt.Sprintf("API error (status %d)", e.StatusCode)
}

// IsValidation reports whether the error carries a structured validation detail.
func (e *APIError) IsValidation() bool {
	return e.Detail.Kind == DetailValidation
}

// DecodeBody unmarshals the raw error body into v.
func (e *APIError) DecodeBody(v any) error {
	if len(e.Body) == 0 {
		return errors.New("empty error body")
	}
	return json.Unmarshal(e.Body, v)
}

// ExtractError turns any value into a single user-facing string. A backend
// error yields its detail (or fallback when the detail is empty), any other
// error yields its message, and everything else yields fallback.
func ExtractError(v any, fallback string) string {
	switch e := v.(type) {
	case nil:
		return fallback
	case ErrorDetail:
		if s := e.String(); s != "" {
			return s
		}
		return fallback
	case error:
		var apiErr *APIError
		if errors.As(e, &apiErr) {
			if s := apiErr.Detail.String(); s != "" {
				return s
			}
			return fallback
		}
		if msg := e.Error(); msg != "" {
			return msg
		}
		return fallback
	default:
		return fallback
	}
}

// IsNotFoundError reports whether err is a 404 from the backend.
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsUnauthorizedError reports whether err is a 401 or 403 from the backend.
func IsUnauthorizedError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403)
}
