package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/tokenstore"
	"github.com/itemsapp/itemctl/internal/validation"
)

type clientFactory struct {
	timeout    time.Duration
	userAgent  string
	retries    int
	retryDelay time.Duration
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		timeout:    flags.Timeout,
		userAgent:  fmt.Sprintf("itemctl/%s", version),
		retries:    flags.Retries,
		retryDelay: flags.RetryDelay,
	}
}

// session pairs a client with the token store it reads credentials from.
type session struct {
	client  *api.Client
	store   *tokenstore.Store
	closeFn func() error
}

func (s *session) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// open resolves the token store for the active profile and builds a client
// whose credentials come from it. ITEMS_ACCESS_TOKEN, when set, overrides
// the stored token for outbound requests.
func (f *clientFactory) open(ctx context.Context) (*session, error) {
	if err := validation.ValidateBaseURL("API base URL", settings.BaseURL); err != nil {
		return nil, err
	}
	store, closeFn, err := tokenstore.Open(ctx, tokenstore.Options{
		Backend:  settings.TokenStore,
		RedisURL: settings.RedisURL,
		Profile:  settings.Profile,
	})
	if err != nil {
		return nil, err
	}

	var creds api.CredentialProvider = store
	if settings.AccessToken != "" {
		slog.Debug("using access token from environment", "profile", store.Profile())
		creds = api.StaticToken(settings.AccessToken)
	}
	return &session{client: f.newClient(creds), store: store, closeFn: closeFn}, nil
}

func (f *clientFactory) newClient(creds api.CredentialProvider) *api.Client {
	client := api.New(settings.BaseURL, creds)
	// Zero disables the timeout.
	client.HTTP.Timeout = f.timeout
	if f.userAgent != "" {
		client.UserAgent = f.userAgent
	}
	if f.retries > 0 {
		client.Retry = api.NewRetryPolicy(f.retries, f.retryDelay)
	}
	return client
}

// withSession opens a session, runs fn, and closes the session.
func withSession(ctx context.Context, fn func(s *session) error) error {
	s, err := newClientFactory().open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			slog.Debug("failed to close token store", "error", cerr)
		}
	}()
	return fn(s)
}
