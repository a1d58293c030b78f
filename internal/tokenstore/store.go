// Package tokenstore persists the access token and the last signed-in
// username behind a small key-value Backend.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	KeyAccessToken     = "access_token"
	KeyCurrentUsername = "current_username"

	DefaultProfile = "default"
)

// ErrNotFound is returned by a Backend when a key has no value.
var ErrNotFound = errors.New("tokenstore: key not found")

// Backend is a durable string key-value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store exposes typed accessors over a Backend, namespaced by profile.
// It satisfies api.CredentialProvider.
type Store struct {
	backend Backend
	profile string
}

// New wraps backend. An empty profile uses DefaultProfile.
func New(backend Backend, profile string) *Store {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return &Store{backend: backend, profile: profile}
}

// Profile returns the namespace this store reads and writes.
func (s *Store) Profile() string {
	return s.profile
}

// key keeps the default profile on the bare key names.
func (s *Store) key(name string) string {
	if s.profile == DefaultProfile {
		return name
	}
	return s.profile + "/" + name
}

func (s *Store) lookup(ctx context.Context, name string) (string, bool, error) {
	v, err := s.backend.Get(ctx, s.key(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, true, nil
}

// LookupAccessToken returns the stored token and whether one was present.
func (s *Store) LookupAccessToken(ctx context.Context) (string, bool, error) {
	return s.lookup(ctx, KeyAccessToken)
}

// AccessToken returns the stored token, or "" when none is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	token, _, err := s.LookupAccessToken(ctx)
	return token, err
}

// SetAccessToken overwrites the stored token unconditionally.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	if err := s.backend.Set(ctx, s.key(KeyAccessToken), token); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// CurrentUsername returns the last username that signed in, or "".
func (s *Store) CurrentUsername(ctx context.Context) (string, error) {
	name, _, err := s.lookup(ctx, KeyCurrentUsername)
	return name, err
}

// SetCurrentUsername records the username shown after login.
func (s *Store) SetCurrentUsername(ctx context.Context, username string) error {
	if err := s.backend.Set(ctx, s.key(KeyCurrentUsername), username); err != nil {
		return fmt.Errorf("failed to save current username: %w", err)
	}
	return nil
}

// Clear removes the token and username. Missing keys are not an error.
func (s *Store) Clear(ctx context.Context) error {
	for _, name := range []string{KeyAccessToken, KeyCurrentUsername} {
		if err := s.backend.Delete(ctx, s.key(name)); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
