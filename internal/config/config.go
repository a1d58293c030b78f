// Package config resolves itemctl settings from the process environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/itemsapp/itemctl/internal/api"
)

const (
	EnvBaseURL       = "ITEMS_API_BASE_URL"
	EnvPublicBaseURL = "PUBLIC_API_BASE_URL"
	EnvAppURL        = "ITEMS_APP_URL"
	EnvTokenStore    = "ITEMS_TOKEN_STORE"
	EnvRedisURL      = "ITEMS_REDIS_URL"
	EnvProfile       = "ITEMS_PROFILE"
	EnvAccessToken   = "ITEMS_ACCESS_TOKEN"

	EnvClerkPublishableKey = "PUBLIC_CLERK_PUBLISHABLE_KEY"
	EnvClerkSecretKey      = "CLERK_SECRET_KEY"
	EnvClerkSignInURL      = "PUBLIC_CLERK_SIGN_IN_URL"
	EnvClerkSignUpURL      = "PUBLIC_CLERK_SIGN_UP_URL"
	EnvClerkAfterSignIn    = "PUBLIC_CLERK_AFTER_SIGN_IN_URL"
	EnvClerkAfterSignUp    = "PUBLIC_CLERK_AFTER_SIGN_UP_URL"

	DefaultAppURL  = "http://localhost:5173"
	DefaultEnvFile = ".env"

	redacted = "***"
)

// Identity holds the hosted identity provider settings. They are carried for
// display and browser tests only; the client never interprets them.
type Identity struct {
	PublishableKey string `json:"publishable_key,omitempty"`
	SecretKey      string `json:"-"`
	SignInURL      string `json:"sign_in_url,omitempty"`
	SignUpURL      string `json:"sign_up_url,omitempty"`
	AfterSignInURL string `json:"after_sign_in_url,omitempty"`
	AfterSignUpURL string `json:"after_sign_up_url,omitempty"`
}

// HasSecret reports whether a secret key is configured.
func (i Identity) HasSecret() bool {
	return i.SecretKey != ""
}

// Settings is the resolved configuration.
type Settings struct {
	BaseURL     string   `json:"base_url"`
	AppURL      string   `json:"app_url"`
	TokenStore  string   `json:"token_store"`
	RedisURL    string   `json:"redis_url,omitempty"`
	Profile     string   `json:"profile"`
	AccessToken string   `json:"-"`
	Identity    Identity `json:"identity"`
}

// Redacted returns a copy safe to print: credentials in URLs are masked and
// the static token is replaced by a marker.
func (s Settings) Redacted() map[string]any {
	out := map[string]any{
		"base_url":    s.BaseURL,
		"app_url":     s.AppURL,
		"token_store": s.TokenStore,
		"profile":     s.Profile,
		"identity": map[string]any{
			"publishable_key":   s.Identity.PublishableKey,
			"secret_key_set":    s.Identity.HasSecret(),
			"sign_in_url":       s.Identity.SignInURL,
			"sign_up_url":       s.Identity.SignUpURL,
			"after_sign_in_url": s.Identity.AfterSignInURL,
			"after_sign_up_url": s.Identity.AfterSignUpURL,
		},
	}
	if s.RedisURL != "" {
		out["redis_url"] = redactURL(s.RedisURL)
	}
	if s.AccessToken != "" {
		out["access_token"] = redacted
	}
	return out
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is only an error when the
// caller asked for it explicitly.
func LoadEnvFile(path string, explicit bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		if explicit {
			return errors.New("--env-file requires a file path")
		}
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file %q: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to parse env file %q: %w", path, err)
	}
	return nil
}

// FromEnv resolves Settings from the process environment.
func FromEnv() Settings {
	baseURL := firstNonBlankEnv(EnvBaseURL, EnvPublicBaseURL)
	if baseURL == "" {
		baseURL = api.DefaultBaseURL
	}
	appURL := firstNonBlankEnv(EnvAppURL)
	if appURL == "" {
		appURL = DefaultAppURL
	}
	store := strings.ToLower(firstNonBlankEnv(EnvTokenStore))
	if store == "" {
		store = "keyring"
	}
	profile := firstNonBlankEnv(EnvProfile)
	if profile == "" {
		profile = "default"
	}
	token, _ := firstNonBlankSecretEnv(EnvAccessToken)
	secret, _ := firstNonBlankSecretEnv(EnvClerkSecretKey)

	return Settings{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		AppURL:      strings.TrimSuffix(appURL, "/"),
		TokenStore:  store,
		RedisURL:    firstNonBlankEnv(EnvRedisURL),
		Profile:     profile,
		AccessToken: token,
		Identity: Identity{
			PublishableKey: firstNonBlankEnv(EnvClerkPublishableKey),
			SecretKey:      secret,
			SignInURL:      firstNonBlankEnv(EnvClerkSignInURL),
			SignUpURL:      firstNonBlankEnv(EnvClerkSignUpURL),
			AfterSignInURL: firstNonBlankEnv(EnvClerkAfterSignIn),
			AfterSignUpURL: firstNonBlankEnv(EnvClerkAfterSignUp),
		},
	}
}

// Load reads the env file and then resolves Settings.
func Load(envFile string, explicit bool) (Settings, error) {
	if err := LoadEnvFile(envFile, explicit); err != nil {
		return Settings{}, err
	}
	return FromEnv(), nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}

func firstNonBlankEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// firstNonBlankSecretEnv returns the value untrimmed; secrets may carry
// meaningful whitespace.
func firstNonBlankSecretEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		return value, true
	}
	return "", false
}
