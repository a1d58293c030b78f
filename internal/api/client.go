package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/itemsapp/itemctl/internal/debug"
)

const DefaultBaseURL = "http://localhost:8000"

// CredentialProvider supplies the bearer token for outbound requests.
// An empty token with a nil error means the caller is unauthenticated.
type CredentialProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a CredentialProvider that always returns the same token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	return string(t), nil
}

// Client issues authenticated requests against the Items API.
//
// Each call reads the token once, before the request is built, so a login
// that lands mid-flight does not affect requests already dispatched.
type Client struct {
	BaseURL     string
	Credentials CredentialProvider
	HTTP        *http.Client
	UserAgent   string
	// Retry is nil by default: every call is exactly one attempt.
	Retry *RetryPolicy
}

// Compile-time interface implementation check
var _ Requester = (*Client)(nil)

// New creates a new Items API client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, creds CredentialProvider) *Client {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12

	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if creds == nil {
		creds = StaticToken("")
	}
	return &Client{
		BaseURL:     baseURL,
		Credentials: creds,
		// No client timeout: callers bound requests through ctx.
		HTTP: &http.Client{
			Transport: transport,
		},
	}
}

// Request runs one call through the pipeline and decodes a successful JSON
// body into result (which may be nil). Non-2xx responses return *APIError.
func (c *Client) Request(ctx context.Context, opts RequestOptions, result any) error {
	respBody, _, err := c.Do(ctx, opts)
	if err != nil {
		return err
	}
	return decodeResult(respBody, result)
}

// Do runs one call through the pipeline and returns the raw body and headers.
func (c *Client) Do(ctx context.Context, opts RequestOptions) ([]byte, http.Header, error) {
	token, err := c.Credentials.AccessToken(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read access token: %w", err)
	}

	norm, err := Normalize(c.BaseURL, opts)
	if err != nil {
		return nil, nil, err
	}
	headers := buildHeaders(token, norm)

	attempt := 0
	for {
		attempt++
		respBody, respHeader, status, err := c.send(ctx, norm, headers, attempt)
		if c.Retry.shouldRetry(norm.Method, status, err, attempt) {
			delay := c.Retry.delay(attempt, respHeader)
			slog.Info("request failed, retrying", "method", norm.Method, "url", norm.URL, "status", status, "delay", delay)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if status < 200 || status >= 300 {
			return nil, respHeader, &APIError{
				StatusCode: status,
				Body:       json.RawMessage(respBody),
				Detail:     DecodeErrorDetail(respBody),
				RequestID:  requestIDFromHeader(respHeader),
			}
		}
		return respBody, respHeader, nil
	}
}

// buildHeaders merges headers in order: Authorization default, caller
// headers, then Content-Type when the caller left it unset.
func buildHeaders(token string, norm *NormalizedRequest) http.Header {
	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	} else {
		headers.Set("Authorization", "")
	}
	for k, v := range norm.Headers {
		headers[k] = append([]string(nil), v...)
	}
	if headers.Get("Content-Type") == "" {
		if norm.Form {
			headers.Set("Content-Type", contentTypeForm)
		} else {
			headers.Set("Content-Type", contentTypeJSON)
		}
	}
	return headers
}

func (c *Client) send(ctx context.Context, norm *NormalizedRequest, headers http.Header, attempt int) ([]byte, http.Header, int, error) {
	start := time.Now()
	var body io.Reader
	if norm.HasBody {
		body = bytes.NewReader(norm.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, norm.Method, norm.URL, body)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers.Clone()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON)
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	if debug.IsEnabled(ctx) {
		slog.Debug("request start", "method", norm.Method, "url", norm.URL, "attempt", attempt, "headers", debug.RedactHeaders(req.Header))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if debug.IsEnabled(ctx) {
			slog.Debug("request failed", "method", norm.Method, "url", norm.URL, "attempt", attempt, "error", err)
		}
		return nil, nil, 0, fmt.Errorf("request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	if debug.IsEnabled(ctx) {
		slog.Debug("request complete", "method", norm.Method, "url", norm.URL, "status", resp.StatusCode, "attempt", attempt, "duration", time.Since(start))
	}
	return respBody, resp.Header, resp.StatusCode, nil
}

func decodeResult(body []byte, result any) error {
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unexpected API response format (JSON decode failed): %w", err)
	}
	return nil
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return header.Get("X-Request-Id")
}

// Get performs a GET request against a path relative to BaseURL.
func (c *Client) Get(ctx context.Context, path string, params map[string]any, result any) error {
	return c.Request(ctx, RequestOptions{Method: http.MethodGet, URL: path, Params: params}, result)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.Request(ctx, RequestOptions{Method: http.MethodPost, URL: path, Data: body}, result)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, result any) error {
	return c.Request(ctx, RequestOptions{Method: http.MethodPut, URL: path, Data: body}, result)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, result any) error {
	return c.Request(ctx, RequestOptions{Method: http.MethodPatch, URL: path, Data: body}, result)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, result any) error {
	return c.Request(ctx, RequestOptions{Method: http.MethodDelete, URL: path}, result)
}
