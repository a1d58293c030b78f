package api

import (
	"context"
	"net/http"
)

// Requester is the request surface used by the typed call sites and by the
// login flow. *Client is the only production implementation; tests can
// substitute a fake without standing up an HTTP server.
type Requester interface {
	// Request runs one call through the pipeline and decodes the JSON
	// response into result when result is non-nil.
	Request(ctx context.Context, opts RequestOptions, result any) error

	// Do runs one call and returns the raw response body and headers.
	Do(ctx context.Context, opts RequestOptions) ([]byte, http.Header, error)
}
