package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/config"
	"github.com/itemsapp/itemctl/internal/iocontext"
	"github.com/itemsapp/itemctl/internal/login"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage the stored session",
		Long:    "Log in with email and password, inspect the stored session, and log out.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

type loginResult struct {
	Username    string `json:"username"`
	Profile     string `json:"profile"`
	Destination string `json:"destination"`
}

// newAuthLoginCmd creates the auth login command
func newAuthLoginCmd() *cobra.Command {
	var (
		username      string
		passwordStdin bool
		openApp       bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Long: strings.TrimSpace(`
Exchange an email and password for an access token and store it for the
active profile. The token is sent as a bearer token on every later request.

Prompts for anything not given by flags. Use --password-stdin for scripts.
`),
		Example: strings.TrimSpace(`
  # Interactive login
  itemctl auth login

  # Non-interactive login
  echo "$PASSWORD" | itemctl auth login -u admin@example.com --password-stdin

  # Log in and open the web app
  itemctl auth login -u admin@example.com --open
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			ioStreams := iocontext.GetIO(ctx)

			if strings.TrimSpace(username) == "" {
				u, err := ioStreams.Prompt("Email: ")
				if err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
				username = u
			}
			if strings.TrimSpace(username) == "" {
				return fmt.Errorf("email is required")
			}

			password, err := readPassword(ioStreams, passwordStdin, "Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("password is required")
			}

			return withSession(ctx, func(s *session) error {
				var target string
				navigator := login.NavigatorFunc(func(_ context.Context, dest string) error {
					target = strings.TrimSuffix(settings.AppURL, "/") + dest
					if openApp {
						return openBrowser(target)
					}
					return nil
				})

				flow := login.New(s.client, s.store, navigator)
				if err := flow.Submit(ctx, username, password); err != nil {
					return err
				}

				if isJSON(cmd) {
					return printJSON(cmd, loginResult{
						Username:    username,
						Profile:     s.store.Profile(),
						Destination: target,
					})
				}
				printIfNotQuiet(cmd, "Logged in as %s (profile %s)\n", username, s.store.Profile())
				printIfNotQuiet(cmd, "Continue at %s\n", target)
				return nil
			})
		}),
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVar(&openApp, "open", false, "Open the web app after login")
	flagAlias(cmd.Flags(), "username", "email")

	return cmd
}

// readPassword reads one line from stdin for --password-stdin, otherwise
// prompts, hiding input when stdin is a terminal.
func readPassword(ioStreams *iocontext.IO, fromStdin bool, label string) (string, error) {
	if fromStdin {
		pw, err := ioStreams.ReadLine()
		if err != nil {
			return "", fmt.Errorf("failed to read password from stdin: %w", err)
		}
		return pw, nil
	}

	if f, ok := ioStreams.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(ioStreams.ErrOut, label)
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(ioStreams.ErrOut)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	pw, err := ioStreams.Prompt(label)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}

type authStatus struct {
	Profile       string               `json:"profile"`
	Authenticated bool                 `json:"authenticated"`
	Source        string               `json:"source,omitempty"`
	Username      string               `json:"username,omitempty"`
	BaseURL       string               `json:"base_url"`
	Verified      *bool                `json:"verified,omitempty"`
	User          *api.UserPublic      `json:"user,omitempty"`
	Error         *api.StructuredError `json:"error,omitempty"`
	Identity      *identityStatus      `json:"identity,omitempty"`
}

// identityStatus is the printable view of the hosted identity settings.
// The secret key is reduced to whether it is set.
type identityStatus struct {
	PublishableKey string `json:"publishable_key,omitempty"`
	SecretKeySet   bool   `json:"secret_key_set"`
	SignInURL      string `json:"sign_in_url,omitempty"`
	SignUpURL      string `json:"sign_up_url,omitempty"`
	AfterSignInURL string `json:"after_sign_in_url,omitempty"`
	AfterSignUpURL string `json:"after_sign_up_url,omitempty"`
}

func newIdentityStatus(id config.Identity) *identityStatus {
	if id == (config.Identity{}) {
		return nil
	}
	return &identityStatus{
		PublishableKey: id.PublishableKey,
		SecretKeySet:   id.HasSecret(),
		SignInURL:      id.SignInURL,
		SignUpURL:      id.SignUpURL,
		AfterSignInURL: id.AfterSignInURL,
		AfterSignUpURL: id.AfterSignUpURL,
	}
}

func writeIdentityStatus(out io.Writer, id *identityStatus) {
	if id == nil {
		return
	}
	secret := "not set"
	if id.SecretKeySet {
		secret = "set"
	}
	_, _ = fmt.Fprintf(out, "Identity: publishable key %q, secret key %s\n", id.PublishableKey, secret)
	if id.SignInURL != "" {
		_, _ = fmt.Fprintf(out, "Sign-in:  %s\n", id.SignInURL)
	}
	if id.SignUpURL != "" {
		_, _ = fmt.Fprintf(out, "Sign-up:  %s\n", id.SignUpURL)
	}
}

// newAuthStatusCmd creates the auth status command
func newAuthStatusCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Example: strings.TrimSpace(`
  itemctl auth status
  itemctl auth status --verify --json
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				status := authStatus{
					Profile:  s.store.Profile(),
					BaseURL:  s.client.BaseURL,
					Identity: newIdentityStatus(settings.Identity),
				}

				if settings.AccessToken != "" {
					status.Authenticated = true
					status.Source = "environment"
				} else {
					_, ok, err := s.store.LookupAccessToken(ctx)
					if err != nil {
						return err
					}
					status.Authenticated = ok
					if ok {
						status.Source = "store"
					}
				}
				username, err := s.store.CurrentUsername(ctx)
				if err != nil {
					return err
				}
				status.Username = username

				if verify && status.Authenticated {
					user, err := api.TestToken(ctx, s.client)
					ok := err == nil
					status.Verified = &ok
					if err != nil {
						if !api.IsUnauthorizedError(err) {
							return err
						}
						status.Error = api.StructuredErrorFromError(err)
					} else {
						status.User = user
					}
				}

				if isJSON(cmd) {
					return printJSON(cmd, status)
				}

				out := iocontext.GetIO(ctx).Out
				if !status.Authenticated {
					_, _ = fmt.Fprintf(out, "Not logged in (profile %s)\n", status.Profile)
					_, _ = fmt.Fprintln(out, "Run: itemctl auth login")
					writeIdentityStatus(out, status.Identity)
					return nil
				}
				_, _ = fmt.Fprintf(out, "Profile:  %s\n", status.Profile)
				_, _ = fmt.Fprintf(out, "API:      %s\n", status.BaseURL)
				_, _ = fmt.Fprintf(out, "Token:    %s\n", status.Source)
				if status.Username != "" {
					_, _ = fmt.Fprintf(out, "Username: %s\n", status.Username)
				}
				if status.Verified != nil {
					if *status.Verified {
						_, _ = fmt.Fprintf(out, "Verified: yes (%s)\n", status.User.DisplayName())
					} else {
						_, _ = fmt.Fprintln(out, "Verified: no, token rejected")
					}
				}
				writeIdentityStatus(out, status.Identity)
				return nil
			})
		}),
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check the token against the API")

	return cmd
}

// newAuthLogoutCmd creates the auth logout command
func newAuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				if err := s.store.Clear(ctx); err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, map[string]any{"profile": s.store.Profile(), "logged_out": true})
				}
				printIfNotQuiet(cmd, "Logged out (profile %s)\n", s.store.Profile())
				return nil
			})
		}),
	}
	return cmd
}
