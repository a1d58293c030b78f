package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingToken struct {
	token string
	calls int64
}

func (c *countingToken) AccessToken(context.Context) (string, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.token, nil
}

type failingToken struct{}

func (failingToken) AccessToken(context.Context) (string, error) {
	return "", errors.New("keyring locked")
}

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

func captureServer(t *testing.T, status int, respBody string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.header = r.Header.Clone()
		got.body = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestNew(t *testing.T) {
	client := New("  https://api.example.com/ ", nil)
	if client.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q", client.BaseURL)
	}
	if client.HTTP == nil || client.HTTP.Timeout != 0 {
		t.Errorf("HTTP client should be initialized without a timeout")
	}
	if client.Retry != nil {
		t.Errorf("Retry should be nil by default")
	}
	if tok, _ := client.Credentials.AccessToken(context.Background()); tok != "" {
		t.Errorf("nil credentials should act as an empty token, got %q", tok)
	}

	if New("", nil).BaseURL != DefaultBaseURL {
		t.Errorf("empty base URL should fall back to %s", DefaultBaseURL)
	}
}

func TestRequest_AttachesBearerToken(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{"id": "u1", "email": "a@b.com"}`)
	creds := &countingToken{token: "tok-123"}
	client := New(server.URL, creds)
	client.UserAgent = "itemctl/test"

	var user UserPublic
	if err := client.Get(context.Background(), "/api/v1/users/me", nil, &user); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.header.Get("Authorization") != "Bearer tok-123" {
		t.Errorf("Authorization = %q", got.header.Get("Authorization"))
	}
	if got.header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", got.header.Get("Content-Type"))
	}
	if got.header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.header.Get("Accept"))
	}
	if got.header.Get("User-Agent") != "itemctl/test" {
		t.Errorf("User-Agent = %q", got.header.Get("User-Agent"))
	}
	if user.Email != "a@b.com" {
		t.Errorf("decoded email = %q", user.Email)
	}
	if creds.calls != 1 {
		t.Errorf("token read %d times, want 1", creds.calls)
	}
}

func TestRequest_EmptyTokenSendsNoCredentials(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `true`)
	client := New(server.URL, StaticToken(""))

	if err := client.Get(context.Background(), "/health", nil, nil); err != nil {
		t.Fatal(err)
	}
	if v := got.header.Get("Authorization"); v != "" {
		t.Errorf("Authorization = %q, want empty", v)
	}
}

func TestRequest_CallerHeadersWin(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{}`)
	client := New(server.URL, StaticToken("stored"))

	err := client.Request(context.Background(), RequestOptions{
		Method: http.MethodPost,
		URL:    "/x",
		Data:   map[string]string{"a": "b"},
		Headers: map[string]string{
			"Authorization": "Bearer caller",
			"Content-Type":  "application/vnd.items+json",
			"User-Agent":    "custom",
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.header.Get("Authorization") != "Bearer caller" {
		t.Errorf("Authorization = %q", got.header.Get("Authorization"))
	}
	if got.header.Get("Content-Type") != "application/vnd.items+json" {
		t.Errorf("Content-Type = %q", got.header.Get("Content-Type"))
	}
	if got.header.Get("User-Agent") != "custom" {
		t.Errorf("User-Agent = %q", got.header.Get("User-Agent"))
	}
}

func TestRequest_DataOverridesBody(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{}`)
	client := New(server.URL, nil)

	err := client.Request(context.Background(), RequestOptions{
		Method: http.MethodPut,
		URL:    "/x",
		Body:   map[string]string{"from": "body"},
		Data:   map[string]string{"from": "data"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.body != `{"from":"data"}` {
		t.Errorf("body = %q", got.body)
	}
	if got.method != http.MethodPut {
		t.Errorf("method = %q", got.method)
	}
}

func TestRequest_NoPayloadSendsNoBody(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{}`)
	client := New(server.URL, nil)

	if err := client.Delete(context.Background(), "/x", nil); err != nil {
		t.Fatal(err)
	}
	if got.body != "" {
		t.Errorf("body = %q, want empty", got.body)
	}
}

func TestRequest_FormPayload(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{"access_token": "t", "token_type": "bearer"}`)
	client := New(server.URL, nil)

	form := url.Values{"username": {"a@b.com"}, "password": {"secret"}}
	if err := client.Post(context.Background(), "/login", form, nil); err != nil {
		t.Fatal(err)
	}
	if got.header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", got.header.Get("Content-Type"))
	}
	if got.body != "password=secret&username=a%40b.com" {
		t.Errorf("body = %q", got.body)
	}
}

func TestRequest_AbsoluteURLBypassesBase(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{}`)
	client := New("http://unused.invalid", nil)

	err := client.Get(context.Background(), server.URL+"/abs", map[string]any{"limit": 2, "skip": nil}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.path != "/abs" || got.query != "limit=2" {
		t.Errorf("path=%q query=%q", got.path, got.query)
	}
}

func TestRequest_NonSuccessReturnsAPIError(t *testing.T) {
	body := `{"detail": "Item not found"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-42")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := ReadItem(context.Background(), client, "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if string(apiErr.Body) != body {
		t.Errorf("Body = %q, want raw body", apiErr.Body)
	}
	if apiErr.RequestID != "req-42" {
		t.Errorf("RequestID = %q", apiErr.RequestID)
	}
	if apiErr.Detail.Kind != DetailText || apiErr.Detail.Text != "Item not found" {
		t.Errorf("Detail = %+v", apiErr.Detail)
	}
	if !IsNotFoundError(err) {
		t.Error("IsNotFoundError should be true")
	}
}

func TestRequest_DecodeFailure(t *testing.T) {
	server, _ := captureServer(t, http.StatusOK, `not json`)
	client := New(server.URL, nil)

	var user UserPublic
	err := client.Get(context.Background(), "/x", nil, &user)
	if err == nil || !strings.Contains(err.Error(), "JSON decode failed") {
		t.Fatalf("expected decode error, got %v", err)
	}

	if err := client.Get(context.Background(), "/x", nil, nil); err != nil {
		t.Errorf("nil result should skip decoding, got %v", err)
	}
}

func TestRequest_CredentialError(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	client := New(server.URL, failingToken{})
	err := client.Get(context.Background(), "/x", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "keyring locked") {
		t.Fatalf("expected credential error, got %v", err)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Errorf("request sent despite credential error")
	}
}

func TestRequest_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := New(server.URL, nil)
	err := client.Get(ctx, "/slow", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if se := StructuredErrorFromError(err); se.Code != ErrNetwork {
		t.Errorf("code = %s, want %s", se.Code, ErrNetwork)
	}
}

func TestRequest_RetriesIdempotentOnServerError(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`true`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	client.Retry = NewRetryPolicy(2, time.Millisecond)

	ok, err := HealthCheck(context.Background(), client)
	if err != nil || !ok {
		t.Fatalf("HealthCheck = %v, %v", ok, err)
	}
	if n := atomic.LoadInt64(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestRequest_DoesNotRetryPost(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	client.Retry = NewRetryPolicy(3, time.Millisecond)

	_, err := CreateItem(context.Background(), client, ItemCreate{Title: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestRequest_NoRetryWithoutPolicy(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	if err := client.Get(context.Background(), "/x", nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestRequest_TokenReadPerCall(t *testing.T) {
	server, got := captureServer(t, http.StatusOK, `{}`)
	creds := &countingToken{token: "first"}
	client := New(server.URL, creds)

	if err := client.Get(context.Background(), "/x", nil, nil); err != nil {
		t.Fatal(err)
	}
	creds.token = "second"
	if err := client.Get(context.Background(), "/x", nil, nil); err != nil {
		t.Fatal(err)
	}
	if got.header.Get("Authorization") != "Bearer second" {
		t.Errorf("Authorization = %q, want the latest token", got.header.Get("Authorization"))
	}
	if creds.calls != 2 {
		t.Errorf("token reads = %d, want 2", creds.calls)
	}
}
