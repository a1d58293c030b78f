// Package e2e drives the hosted sign-in pages of the Items front end with a
// real browser. The browser tests only build with the e2e tag.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/itemsapp/itemctl/internal/config"
)

const (
	EnvBaseURL   = "E2E_BASE_URL"
	EnvEmail     = "E2E_TEST_USER_EMAIL"
	EnvPassword  = "E2E_TEST_USER_PASSWORD"
	EnvHeadful   = "E2E_HEADFUL"
	EnvChromeBin = "E2E_CHROME_BIN"

	DefaultTimeout = 10 * time.Second

	defaultSignInPath = "/sign-in"
	defaultSignUpPath = "/sign-up"
	ProtectedPath     = "/items"
	HomePath          = "/"
)

// ErrNotConfigured is returned by ConfigFromEnv when a required variable is unset.
var ErrNotConfigured = errors.New("e2e environment not configured")

// Config is the browser run configuration.
type Config struct {
	BaseURL    string
	Email      string
	Password   string
	SignInPath string
	SignUpPath string
	ChromeBin  string
	Headless   bool
	Timeout    time.Duration
}

// ConfigFromEnv reads the E2E_* variables plus the hosted identity paths.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:   strings.TrimSuffix(strings.TrimSpace(os.Getenv(EnvBaseURL)), "/"),
		Email:     strings.TrimSpace(os.Getenv(EnvEmail)),
		Password:  os.Getenv(EnvPassword),
		ChromeBin: strings.TrimSpace(os.Getenv(EnvChromeBin)),
		Headless:  os.Getenv(EnvHeadful) == "",
		Timeout:   DefaultTimeout,
	}

	var missing []string
	for name, v := range map[string]string{EnvBaseURL: cfg.BaseURL, EnvEmail: cfg.Email, EnvPassword: cfg.Password} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cfg, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	identity := config.FromEnv().Identity
	cfg.SignInPath = pathOrDefault(identity.SignInURL, defaultSignInPath)
	cfg.SignUpPath = pathOrDefault(identity.SignUpURL, defaultSignUpPath)
	return cfg, nil
}

// pathOrDefault accepts either a path or an absolute URL and returns the path.
func pathOrDefault(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		if u.Path == "" {
			return "/"
		}
		return u.Path
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return raw
}

// Harness owns one browser process for a test run.
type Harness struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// Start launches Chrome and connects to it.
func Start(ctx context.Context, cfg Config) (*Harness, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	l := launcher.New().Headless(cfg.Headless).NoSandbox(true)
	if cfg.ChromeBin != "" {
		l = l.Bin(cfg.ChromeBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	return &Harness{cfg: cfg, launcher: l, browser: browser}, nil
}

// Close shuts the browser down and removes its profile directory.
func (h *Harness) Close() {
	if h == nil {
		return
	}
	if h.browser != nil {
		_ = h.browser.Close()
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
	}
}

// URL joins a front-end path onto the base URL.
func (h *Harness) URL(path string) string {
	return h.cfg.BaseURL + path
}

// NewPage opens a blank page in a fresh incognito context, so every page
// starts signed out.
func (h *Harness) NewPage(ctx context.Context) (*rod.Page, error) {
	incognito, err := h.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return page.Context(ctx), nil
}

// Open navigates to a front-end path and waits for the load event.
func (h *Harness) Open(page *rod.Page, path string) error {
	p := page.Timeout(h.cfg.Timeout)
	if err := p.Navigate(h.URL(path)); err != nil {
		return fmt.Errorf("navigate %s: %w", path, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", path, err)
	}
	return nil
}

// SignIn fills the hosted sign-in form with the configured test user and
// waits to land on the home page. Both the single-step and the two-step
// (identifier first, then password) variants of the form are handled.
func (h *Harness) SignIn(ctx context.Context, page *rod.Page) error {
	if err := h.Open(page, h.cfg.SignInPath); err != nil {
		return err
	}
	p := page.Timeout(h.cfg.Timeout)

	email, err := p.Element(`input[name="identifier"], input[type="email"]`)
	if err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	if err := email.Input(h.cfg.Email); err != nil {
		return fmt.Errorf("type email: %w", err)
	}

	hasPassword, _, err := p.Has(`input[type="password"]`)
	if err != nil {
		return fmt.Errorf("look up password field: %w", err)
	}
	if !hasPassword {
		if err := clickContinue(p); err != nil {
			return err
		}
	}

	password, err := p.Element(`input[type="password"]`)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := password.Input(h.cfg.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	if err := clickContinue(p); err != nil {
		return err
	}

	return h.WaitForPath(ctx, page, func(path string) bool { return path == HomePath })
}

func clickContinue(p *rod.Page) error {
	btn, err := p.ElementR("button", `/continue|sign in/i`)
	if err != nil {
		return fmt.Errorf("continue button: %w", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click continue: %w", err)
	}
	return nil
}

// CurrentPath returns the path of the page's current URL.
func CurrentPath(page *rod.Page) (string, error) {
	info, err := page.Info()
	if err != nil {
		return "", err
	}
	u, err := url.Parse(info.URL)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

// WaitForPath polls the page URL until match accepts its path.
func (h *Harness) WaitForPath(ctx context.Context, page *rod.Page, match func(string) bool) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var last string
	for {
		if path, err := CurrentPath(page); err == nil {
			last = path
			if match(path) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for navigation (last path %q): %w", last, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Text returns the visible text of the first element matching selector.
func (h *Harness) Text(page *rod.Page, selector string) (string, error) {
	el, err := page.Timeout(h.cfg.Timeout).Element(selector)
	if err != nil {
		return "", fmt.Errorf("element %s: %w", selector, err)
	}
	return el.Text()
}
