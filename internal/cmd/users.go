package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/dryrun"
	"github.com/itemsapp/itemctl/internal/iocontext"
	"github.com/itemsapp/itemctl/internal/validation"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user", "us"},
		Short:   "Manage your user account",
	}

	cmd.AddCommand(newUsersMeCmd())
	cmd.AddCommand(newUsersUpdateMeCmd())
	cmd.AddCommand(newUsersPasswordCmd())
	cmd.AddCommand(newUsersSignupCmd())

	return cmd
}

func newUsersMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "me",
		Aliases: []string{"whoami"},
		Short:   "Show the current user",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				user, err := api.ReadMe(ctx, s.client)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, user)
				}
				printUser(cmd, user)
				return nil
			})
		}),
	}
}

func newUsersUpdateMeCmd() *cobra.Command {
	var (
		fullName string
		email    string
	)

	cmd := &cobra.Command{
		Use:   "update-me",
		Short: "Update the current user's name or email",
		Example: strings.TrimSpace(`
  itemctl users update-me --full-name "Ada Lovelace"
  itemctl users update-me --email ada@example.com
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			in := api.UserUpdateMe{
				FullName: optionalString(cmd, "full-name", fullName),
				Email:    optionalString(cmd, "email", email),
			}
			if in.FullName == nil && in.Email == nil {
				return fmt.Errorf("at least one of --full-name or --email is required")
			}
			if err := validation.ValidateFullName(fullName); err != nil {
				return err
			}
			if in.Email != nil {
				if err := validation.ValidateEmail(*in.Email); err != nil {
					return err
				}
			}
			if ok, err := maybeDryRun(cmd, "update", "current user", func(p *dryrun.Preview) error {
				return p.AddEndpoint(settings.BaseURL, api.EndpointUsersUpdateMe, nil, in)
			}); ok {
				return err
			}
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				user, err := api.UpdateMe(ctx, s.client, in)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, user)
				}
				printIfNotQuiet(cmd, "Updated %s\n", user.DisplayName())
				return nil
			})
		}),
	}

	cmd.Flags().StringVar(&fullName, "full-name", "", "New full name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	flagAlias(cmd.Flags(), "full-name", "name")

	return cmd
}

func newUsersPasswordCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the current user's password",
		Long: strings.TrimSpace(`
Prompts for the current and new password. With --password-stdin, reads the
current password from the first line of stdin and the new password from the
second.
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			ioStreams := iocontext.GetIO(ctx)

			current, err := readPassword(ioStreams, fromStdin, "Current password: ")
			if err != nil {
				return err
			}
			next, err := readPassword(ioStreams, fromStdin, "New password: ")
			if err != nil {
				return err
			}
			if current == "" || next == "" {
				return fmt.Errorf("current and new password are required")
			}
			if err := validation.ValidatePassword(next); err != nil {
				return err
			}
			in := api.UpdatePassword{CurrentPassword: current, NewPassword: next}
			if ok, err := maybeDryRun(cmd, "change", "password", func(p *dryrun.Preview) error {
				return p.AddEndpoint(settings.BaseURL, api.EndpointUsersUpdatePasswordMe, nil, in)
			}); ok {
				return err
			}

			return withSession(ctx, func(s *session) error {
				msg, err := api.UpdatePasswordMe(ctx, s.client, in)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, msg)
				}
				printIfNotQuiet(cmd, "%s\n", msg.Message)
				return nil
			})
		}),
	}

	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "Read current and new password from stdin")

	return cmd
}

func newUsersSignupCmd() *cobra.Command {
	var (
		email     string
		fullName  string
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:     "signup",
		Aliases: []string{"register"},
		Short:   "Create a new account",
		Example: strings.TrimSpace(`
  echo "$PASSWORD" | itemctl users signup --email new@example.com --password-stdin
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			if err := validation.ValidateEmail(email); err != nil {
				return err
			}
			if err := validation.ValidateFullName(fullName); err != nil {
				return err
			}
			ctx := cmdContext(cmd)
			password, err := readPassword(iocontext.GetIO(ctx), fromStdin, "Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("password is required")
			}
			if err := validation.ValidatePassword(password); err != nil {
				return err
			}
			in := api.UserRegister{
				Email:    email,
				Password: password,
				FullName: optionalString(cmd, "full-name", fullName),
			}
			if ok, err := maybeDryRun(cmd, "create", "account "+email, func(p *dryrun.Preview) error {
				return p.AddEndpoint(settings.BaseURL, api.EndpointUsersRegister, nil, in)
			}); ok {
				return err
			}

			return withSession(ctx, func(s *session) error {
				user, err := api.Register(ctx, s.client, in)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, user)
				}
				printIfNotQuiet(cmd, "Created account %s\n", user.Email)
				printIfNotQuiet(cmd, "Log in with: itemctl auth login -u %s\n", user.Email)
				return nil
			})
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Full name")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func printUser(cmd *cobra.Command, user *api.UserPublic) {
	out := iocontext.GetIO(cmd.Context()).Out
	_, _ = fmt.Fprintf(out, "ID:        %s\n", user.ID)
	_, _ = fmt.Fprintf(out, "Email:     %s\n", user.Email)
	if user.FullName != nil {
		_, _ = fmt.Fprintf(out, "Name:      %s\n", *user.FullName)
	}
	_, _ = fmt.Fprintf(out, "Active:    %t\n", user.IsActive)
	_, _ = fmt.Fprintf(out, "Superuser: %t\n", user.IsSuperuser)
}
