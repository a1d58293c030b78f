package cmd

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPICommand_GET(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/v1/users/me", jsonResponse(200, meBody))
	env := setupTestEnv(t, handler)
	env.seedToken(t, "tok")

	res := env.run(t, "api", "/api/v1/users/me")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `"email": "a@b.com"`)

	req := handler.last(t)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestAPICommand_FieldsBuildJSONBody(t *testing.T) {
	handler := newRouteHandler().On("POST", "/api/v1/items/", jsonResponse(200, `{"id": "i1"}`))
	env := setupTestEnv(t, handler)

	res := env.run(t, "api", "/api/v1/items/", "-X", "post",
		"-f", "title=Groceries",
		"-F", `tags=["a","b"]`,
		"-d", `{"description": "base", "title": "overridden"}`)
	require.NoError(t, res.err, res.stderr)

	req := handler.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.JSONEq(t, `{"title": "Groceries", "tags": ["a", "b"], "description": "base"}`, req.Body)
}

func TestAPICommand_InputFromStdinAndFile(t *testing.T) {
	handler := newRouteHandler().On("PUT", "/api/v1/items/i1", jsonResponse(200, `{}`))
	env := setupTestEnv(t, handler)

	res := env.runWithInput(t, `{"title": "stdin"}`, "api", "/api/v1/items/i1", "-X", "PUT", "-i", "-")
	require.NoError(t, res.err, res.stderr)
	assert.JSONEq(t, `{"title": "stdin"}`, handler.last(t).Body)

	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "file"}`), 0o600))
	res = env.run(t, "api", "/api/v1/items/i1", "-X", "PUT", "-i", path)
	require.NoError(t, res.err, res.stderr)
	assert.JSONEq(t, `{"title": "file"}`, handler.last(t).Body)
}

func TestAPICommand_FormParamsAndHeaders(t *testing.T) {
	handler := newRouteHandler().On("POST", "/api/v1/login/access-token",
		jsonResponse(200, `{"access_token": "t", "token_type": "bearer"}`))
	env := setupTestEnv(t, handler)
	env.seedToken(t, "stored")

	res := env.run(t, "api", "/api/v1/login/access-token", "-X", "POST", "--form",
		"-f", "username=a@b.com", "-f", "password=secret",
		"-p", "debug=true",
		"-H", "Authorization: Bearer override",
		"-H", "X-Trace: 1")
	require.NoError(t, res.err, res.stderr)

	req := handler.last(t)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer override", req.Header.Get("Authorization"), "caller header wins over stored token")
	assert.Equal(t, "1", req.Header.Get("X-Trace"))
	assert.Equal(t, "debug=true", req.Query)
	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", form.Get("username"))
}

func TestAPICommand_AbsoluteURL(t *testing.T) {
	handler := newRouteHandler().On("GET", "/elsewhere", jsonResponse(200, `{"ok": true}`))
	env := setupTestEnv(t, handler)
	t.Setenv("ITEMS_API_BASE_URL", "http://127.0.0.1:1")

	res := env.run(t, "api", env.server.URL+"/elsewhere", "--json")
	require.NoError(t, res.err, res.stderr)
	assert.JSONEq(t, `{"ok": true}`, res.stdout)
}

func TestAPICommand_IncludeHeadersJSON(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/v1/x", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-1")
		jsonResponse(200, `{"a": 1}`)(w, r)
	})
	env := setupTestEnv(t, handler)

	res := env.run(t, "api", "/api/v1/x", "--include", "--json")
	require.NoError(t, res.err, res.stderr)

	var out struct {
		Headers map[string][]string `json:"headers"`
		Body    map[string]any      `json:"body"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, []string{"req-1"}, out.Headers["X-Request-Id"])
	assert.Equal(t, float64(1), out.Body["a"])
}

func TestAPICommand_Errors(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/v1/boom", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-9")
		jsonResponse(500, `{"detail": "Internal Server Error"}`)(w, r)
	})
	env := setupTestEnv(t, handler)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "bad method", args: []string{"api", "/x", "-X", "TRACE"}, wantCode: exitUsage, wantErr: "invalid HTTP method"},
		{name: "body and input", args: []string{"api", "/x", "-d", "{}", "-i", "-"}, wantCode: exitGeneric, wantErr: "cannot use both"},
		{name: "bad field", args: []string{"api", "/x", "-X", "POST", "-f", "novalue"}, wantCode: exitUsage, wantErr: "invalid field format"},
		{name: "bad raw field", args: []string{"api", "/x", "-X", "POST", "-F", "k={"}, wantCode: exitGeneric, wantErr: "invalid JSON"},
		{name: "bad header", args: []string{"api", "/x", "-H", "nocolon"}, wantCode: exitUsage, wantErr: "invalid header"},
		{name: "form with raw", args: []string{"api", "/x", "--form", "-F", "a=1"}, wantCode: exitGeneric, wantErr: "--form only accepts"},
		{name: "server error", args: []string{"api", "/api/v1/boom"}, wantCode: exitServer, wantErr: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run(t, tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCode, ExitCode(res.err))
		})
	}

	res := env.run(t, "api", "/api/v1/boom")
	assert.Contains(t, res.stderr, "Request ID: req-9")
}
