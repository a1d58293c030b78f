package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/iocontext"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "Inspect resolved configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show settings after flags, environment and .env are applied",
		Long:  "Show the resolved settings. Secrets and URL credentials are masked.",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			redacted := settings.Redacted()
			if isJSON(cmd) {
				return printJSON(cmd, redacted)
			}

			out := iocontext.GetIO(cmd.Context()).Out
			keys := make([]string, 0, len(redacted))
			for k := range redacted {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				_, _ = fmt.Fprintf(out, "%s: %v\n", k, redacted[k])
			}
			return nil
		}),
	}
}
