package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/config"
	"github.com/itemsapp/itemctl/internal/debug"
	"github.com/itemsapp/itemctl/internal/dryrun"
	"github.com/itemsapp/itemctl/internal/iocontext"
	"github.com/itemsapp/itemctl/internal/outfmt"
	"github.com/itemsapp/itemctl/internal/resolve"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output     string
	JSON       bool
	Compact    bool
	Query      string
	Quiet      bool
	Debug      bool
	Timeout    time.Duration
	BaseURL    string
	Profile    string
	TokenStore string
	EnvFile    string
	Retries    int
	RetryDelay time.Duration
	DryRun     bool
}

// defaultTimeout bounds each HTTP request unless --timeout says otherwise.
const defaultTimeout = 30 * time.Second

// flags holds the global command flags. This is package-level mutable state
// that MUST be reset at the start of every Execute() call; tests run many
// Executes in one process.
var flags rootFlags

// settings is resolved from flags, environment and .env in PersistentPreRunE.
var settings config.Settings

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	flags = rootFlags{
		Output:     "text",
		Timeout:    defaultTimeout,
		RetryDelay: api.DefaultRetryBaseDelay,
	}
	settings = config.Settings{}

	root := &cobra.Command{
		Use:                "itemctl",
		Short:              "Command-line client for the Items API",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true, // enhanceUnknownError provides did-you-mean
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := config.Load(flags.EnvFile, flagOrAliasChanged(cmd, "env-file"))
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, &s)
			settings = s

			if flags.JSON {
				if flagOrAliasChanged(cmd, "output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			if flags.Query != "" && flags.Output != "json" {
				if flagOrAliasChanged(cmd, "output") {
					return fmt.Errorf("--query requires --output json (or --json)")
				}
				flags.Output = "json"
			}
			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)
			if flags.Query != "" {
				ctx = outfmt.WithQuery(ctx, flags.Query)
			}

			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}
			if flags.Retries < 0 {
				return fmt.Errorf("--retries must be >= 0")
			}
			if flags.RetryDelay < 0 {
				return fmt.Errorf("--retry-delay must be >= 0")
			}

			base := iocontext.GetIO(ctx)
			ioStreams := &iocontext.IO{Out: base.Out, ErrOut: base.ErrOut, In: base.In}
			if flags.Quiet {
				ioStreams.ErrOut = io.Discard
				if mode == outfmt.Text {
					ioStreams.Out = io.Discard
				}
			}
			ctx = iocontext.WithIO(ctx, ioStreams)
			cmd.SetOut(ioStreams.Out)
			cmd.SetErr(ioStreams.ErrOut)

			debug.SetupLoggerTo(ioStreams.ErrOut, flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)
			ctx = dryrun.WithDryRun(ctx, flags.DryRun)

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)
	ioStreams := iocontext.GetIO(ctx)
	root.SetOut(ioStreams.Out)
	root.SetErr(ioStreams.ErrOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.StringVarP(&flags.Query, "query", "q", "", "jq expression to filter JSON output")
	pf.BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress non-essential output")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging (Authorization is redacted)")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (e.g., 30s, 2m; 0 disables)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "API base URL (env ITEMS_API_BASE_URL)")
	pf.StringVar(&flags.Profile, "profile", "", "Token namespace (env ITEMS_PROFILE)")
	pf.StringVar(&flags.TokenStore, "token-store", "", "Token store backend: keyring|redis|memory (env ITEMS_TOKEN_STORE)")
	pf.StringVar(&flags.EnvFile, "env-file", "", "Load environment from this file (default ./.env when present)")
	pf.IntVar(&flags.Retries, "retries", 0, "Retry idempotent requests on 429/5xx/network errors this many times")
	pf.DurationVar(&flags.RetryDelay, "retry-delay", flags.RetryDelay, "Base delay between retries")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Preview changes without executing")

	flagAlias(pf, "output", "out")
	flagAlias(pf, "query", "jq")
	flagAlias(pf, "compact-json", "cj")
	flagAlias(pf, "debug", "dbg")
	flagAlias(pf, "timeout", "to")
	flagAlias(pf, "env-file", "env")
	flagAlias(pf, "profile", "pf")
	flagAlias(pf, "dry-run", "dr")

	root.AddCommand(newAuthCmd())
	root.AddCommand(newAPICmd())
	root.AddCommand(newItemsCmd())
	root.AddCommand(newUsersCmd())
	root.AddCommand(newEndpointsCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newConfigCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

// applyFlagOverrides lets explicit flags win over environment settings.
func applyFlagOverrides(cmd *cobra.Command, s *config.Settings) {
	if flagOrAliasChanged(cmd, "base-url") {
		s.BaseURL = strings.TrimSuffix(strings.TrimSpace(flags.BaseURL), "/")
	}
	if flagOrAliasChanged(cmd, "profile") && strings.TrimSpace(flags.Profile) != "" {
		s.Profile = strings.TrimSpace(flags.Profile)
	}
	if flagOrAliasChanged(cmd, "token-store") {
		s.TokenStore = strings.ToLower(strings.TrimSpace(flags.TokenStore))
	}
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command/flag errors.
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		if unknown := extractQuoted(msg); unknown != "" {
			parent := root
			if targetCmd != nil {
				parent = targetCmd
			}
			var names []string
			for _, c := range parent.Commands() {
				if c.IsAvailableCommand() {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestions := resolve.Suggest(unknown, names, 1); len(suggestions) > 0 {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestions[0])
			}
		}
		return msg
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "unknown shorthand flag") {
		unknown := extractFlag(msg)
		if unknown == "" {
			return msg
		}
		seen := make(map[string]bool)
		var flagNames []string
		addFlags := func(fs *pflag.FlagSet) {
			fs.VisitAll(func(f *pflag.Flag) {
				if f.Hidden {
					return
				}
				name := "--" + f.Name
				if !seen[name] {
					seen[name] = true
					flagNames = append(flagNames, name)
				}
			})
		}
		cmd := root
		if targetCmd != nil {
			cmd = targetCmd
		}
		addFlags(cmd.Flags())
		addFlags(cmd.InheritedFlags())

		helpCmd := strings.TrimSpace(cmd.CommandPath()) + " --help"
		if suggestions := resolve.Suggest(unknown, flagNames, 1); len(suggestions) > 0 {
			return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestions[0], helpCmd)
		}
		return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
	}

	return msg
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag name (e.g., "--foo") from an error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		return ""
	}
	rest := s[idx:]
	if end := strings.IndexAny(rest, " \n\t"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
