// Package dryrun previews mutating requests without sending them.
package dryrun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/itemsapp/itemctl/internal/api"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

const masked = "***"

// sensitiveFields are replaced with *** in previews.
var sensitiveFields = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
	"access_token":     true,
}

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Request is one request a command would have sent.
type Request struct {
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Body   json.RawMessage `json:"body,omitempty"`
	Form   url.Values      `json:"form,omitempty"`
}

// Preview describes what a mutating command would do.
type Preview struct {
	Operation string    `json:"operation"`
	Resource  string    `json:"resource"`
	Requests  []Request `json:"requests"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// NewPreview builds a preview holding one request per endpoint call.
func NewPreview(operation, resource string) *Preview {
	return &Preview{Operation: operation, Resource: resource}
}

// AddEndpoint resolves a catalog endpoint against baseURL and appends the
// normalized request. Password and token fields are masked.
func (p *Preview) AddEndpoint(baseURL, name string, pathParams map[string]string, body any) error {
	endpoint, err := api.Catalog.Lookup(name)
	if err != nil {
		return err
	}
	opts, err := endpoint.Options(pathParams, nil, body)
	if err != nil {
		return err
	}
	return p.AddRequest(baseURL, opts)
}

// AddRequest normalizes opts against baseURL and appends the result.
func (p *Preview) AddRequest(baseURL string, opts api.RequestOptions) error {
	norm, err := api.Normalize(baseURL, opts)
	if err != nil {
		return err
	}
	req := Request{Method: norm.Method, URL: norm.URL}
	switch {
	case !norm.HasBody:
	case norm.Form:
		form, err := url.ParseQuery(string(norm.Payload))
		if err != nil {
			return fmt.Errorf("parse form payload: %w", err)
		}
		for key := range form {
			if sensitiveFields[key] {
				form.Set(key, masked)
			}
		}
		req.Form = form
	default:
		req.Body = maskJSON(norm.Payload)
	}
	p.Requests = append(p.Requests, req)
	return nil
}

func maskJSON(payload []byte) json.RawMessage {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return json.RawMessage(payload)
	}
	changed := false
	for key := range obj {
		if sensitiveFields[key] {
			obj[key] = masked
			changed = true
		}
	}
	if !changed {
		return json.RawMessage(payload)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return json.RawMessage(payload)
	}
	return out
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n[DRY-RUN] Would %s %s\n", p.Operation, p.Resource)
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	for _, req := range p.Requests {
		_, _ = fmt.Fprintf(w, "  %s %s\n", req.Method, req.URL)
		switch {
		case len(req.Form) > 0:
			_, _ = fmt.Fprintf(w, "    form: %s\n", req.Form.Encode())
		case len(req.Body) > 0:
			_, _ = fmt.Fprintf(w, "    body: %s\n", strings.TrimSpace(string(req.Body)))
		}
	}
	if len(p.Requests) > 0 {
		_, _ = fmt.Fprintln(w)
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "Warnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintln(w, "No changes made (dry-run mode)")
}
