// Package login drives a single credential submission from the moment the
// user submits it to either a stored session or a displayable error.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/debug"
)

const (
	DefaultDestination = "/welcome"
	FallbackMessage    = "Login failed. Please try again."
)

// State is the position of a Flow in its idle -> pending -> success|error cycle.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInFlight is returned when Submit is called while a submission is pending.
var ErrInFlight = errors.New("login already in progress")

// ErrNoAccessToken is returned when the login endpoint answers 2xx without
// an access_token. Nothing is persisted in that case.
var ErrNoAccessToken = errors.New("login response did not include an access token")

// SessionStore persists the session produced by a successful login.
type SessionStore interface {
	SetAccessToken(ctx context.Context, token string) error
	SetCurrentUsername(ctx context.Context, username string) error
}

// Navigator performs the post-login navigation.
type Navigator interface {
	Navigate(ctx context.Context, destination string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, destination string) error

func (f NavigatorFunc) Navigate(ctx context.Context, destination string) error {
	return f(ctx, destination)
}

// Flow is safe for concurrent use; at most one submission runs at a time.
type Flow struct {
	requester   api.Requester
	store       SessionStore
	navigator   Navigator
	destination string

	mu    sync.Mutex
	state State
	slot  ErrorSlot
}

// Option configures a Flow.
type Option func(*Flow)

// WithDestination overrides DefaultDestination.
func WithDestination(dest string) Option {
	return func(f *Flow) {
		if dest != "" {
			f.destination = dest
		}
	}
}

// New builds a Flow. A nil navigator skips navigation.
func New(requester api.Requester, store SessionStore, navigator Navigator, opts ...Option) *Flow {
	f := &Flow{
		requester:   requester,
		store:       store,
		navigator:   navigator,
		destination: DefaultDestination,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the message currently in the error slot ("" when clear).
func (f *Flow) Err() string {
	return f.slot.Get()
}

// Errors exposes the observable error slot.
func (f *Flow) Errors() *ErrorSlot {
	return &f.slot
}

// Destination returns where a successful login navigates to.
func (f *Flow) Destination() string {
	return f.destination
}

// Submit sends one login request. On success the token and username are
// persisted, the error slot is cleared, and the navigator is invoked. On
// failure the display message is published to the error slot and returned
// wrapped in a *Error.
func (f *Flow) Submit(ctx context.Context, username, password string) error {
	f.mu.Lock()
	if f.state == StatePending {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.state = StatePending
	f.mu.Unlock()

	if debug.IsEnabled(ctx) {
		slog.Debug("login submit", "username", username, "destination", f.destination)
	}

	token, err := api.Login(ctx, f.requester, username, password)
	if err != nil {
		return f.fail(err)
	}
	if token == nil || token.AccessToken == "" {
		return f.fail(ErrNoAccessToken)
	}
	if err := f.store.SetAccessToken(ctx, token.AccessToken); err != nil {
		return f.fail(err)
	}
	if err := f.store.SetCurrentUsername(ctx, username); err != nil {
		return f.fail(err)
	}

	f.slot.set("")
	f.setState(StateSuccess)

	if f.navigator != nil {
		if err := f.navigator.Navigate(ctx, f.destination); err != nil {
			return fmt.Errorf("navigate to %s: %w", f.destination, err)
		}
	}
	return nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) fail(err error) error {
	msg := Message(err)
	f.slot.set(msg)
	f.setState(StateError)
	return &Error{Message: msg, Err: err}
}

// Error is returned by Submit on failure. Message is what the error slot holds.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Message picks the display text for a failed login. Backend details are
// preferred in order: text detail, detail.error, detail.message, the object
// itself, validation issues, then a top-level message. Anything else,
// including transport failures, yields FallbackMessage.
func Message(err error) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return FallbackMessage
	}
	if s := apiErr.Detail.String(); s != "" {
		return s
	}
	if apiErr.Detail.TopMessage != "" {
		return apiErr.Detail.TopMessage
	}
	return FallbackMessage
}
