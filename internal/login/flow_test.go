package login

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/tokenstore"
)

type recordingNavigator struct {
	mu   sync.Mutex
	dest []string
}

func (n *recordingNavigator) Navigate(_ context.Context, destination string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dest = append(n.dest, destination)
	return nil
}

func newStub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/login/access-token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "a@b.com", r.PostForm.Get("username"))
		assert.Equal(t, "secret123", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmitSuccess(t *testing.T) {
	srv := newStub(t, http.StatusOK, `{"access_token":"tok1","token_type":"bearer"}`)
	store := tokenstore.New(tokenstore.NewMemoryBackend(), "")
	nav := &recordingNavigator{}
	flow := New(api.New(srv.URL, store), store, nav)

	ctx := context.Background()
	require.NoError(t, flow.Submit(ctx, "a@b.com", "secret123"))

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)

	user, err := store.CurrentUsername(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user)

	assert.Equal(t, []string{DefaultDestination}, nav.dest)
	assert.Equal(t, StateSuccess, flow.State())
	assert.Empty(t, flow.Err())
}

func TestSubmitBackendError(t *testing.T) {
	srv := newStub(t, http.StatusBadRequest, `{"detail":"Incorrect email or password"}`)
	store := tokenstore.New(tokenstore.NewMemoryBackend(), "")
	nav := &recordingNavigator{}
	flow := New(api.New(srv.URL, store), store, nav)

	err := flow.Submit(context.Background(), "a@b.com", "secret123")
	require.Error(t, err)

	var loginErr *Error
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, "Incorrect email or password", loginErr.Message)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	assert.Equal(t, "Incorrect email or password", flow.Err())
	assert.Equal(t, StateError, flow.State())
	assert.Empty(t, nav.dest)

	token, _, lookupErr := store.LookupAccessToken(context.Background())
	require.NoError(t, lookupErr)
	assert.Empty(t, token)
}

func TestSubmitWithoutAccessTokenFails(t *testing.T) {
	srv := newStub(t, http.StatusOK, `{"token_type":"bearer"}`)
	store := tokenstore.New(tokenstore.NewMemoryBackend(), "")
	nav := &recordingNavigator{}
	flow := New(api.New(srv.URL, store), store, nav)

	ctx := context.Background()
	err := flow.Submit(ctx, "a@b.com", "secret123")
	require.ErrorIs(t, err, ErrNoAccessToken)

	assert.Equal(t, StateError, flow.State())
	assert.Equal(t, FallbackMessage, flow.Err())
	assert.Empty(t, nav.dest)

	_, found, lookupErr := store.LookupAccessToken(ctx)
	require.NoError(t, lookupErr)
	assert.False(t, found)

	user, err := store.CurrentUsername(ctx)
	require.NoError(t, err)
	assert.Empty(t, user)
}

func TestSubmitClearsPreviousError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Inactive user"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok2","token_type":"bearer"}`))
	}))
	defer srv.Close()

	store := tokenstore.New(tokenstore.NewMemoryBackend(), "")
	flow := New(api.New(srv.URL, store), store, nil, WithDestination("/items"))

	var seen []string
	unsubscribe := flow.Errors().Subscribe(func(v string) { seen = append(seen, v) })
	defer unsubscribe()

	require.Error(t, flow.Submit(context.Background(), "u", "p"))
	fail.Store(false)
	require.NoError(t, flow.Submit(context.Background(), "u", "p"))

	assert.Equal(t, []string{"Inactive user", ""}, seen)
	assert.Equal(t, "/items", flow.Destination())
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	}))
	defer srv.Close()

	store := tokenstore.New(tokenstore.NewMemoryBackend(), "")
	flow := New(api.New(srv.URL, store), store, nil)

	done := make(chan error, 1)
	go func() { done <- flow.Submit(context.Background(), "u", "p") }()

	<-started
	assert.Equal(t, StatePending, flow.State())
	assert.ErrorIs(t, flow.Submit(context.Background(), "u", "p"), ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSuccess, flow.State())
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"text detail", `{"detail":"Incorrect email or password"}`, "Incorrect email or password"},
		{"object error", `{"detail":{"error":"locked","message":"ignored"}}`, "locked"},
		{"object message", `{"detail":{"message":"try later"}}`, "try later"},
		{"object other", `{"detail":{"code":7}}`, `{"code":7}`},
		{"validation", `{"detail":[{"loc":["body","username"],"msg":"field required","type":"missing"}]}`, "username: field required"},
		{"top-level message", `{"message":"maintenance"}`, "maintenance"},
		{"empty detail", `{"detail":""}`, FallbackMessage},
		{"not json", `<html>oops</html>`, FallbackMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &api.APIError{StatusCode: 400, Body: []byte(tt.body), Detail: api.DecodeErrorDetail([]byte(tt.body))}
			assert.Equal(t, tt.want, Message(err))
		})
	}

	assert.Equal(t, FallbackMessage, Message(errors.New("dial tcp: connection refused")))
	assert.Equal(t, FallbackMessage, Message(nil))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "State(9)", State(9).String())
}
