package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/compat"
	"github.com/itemsapp/itemctl/internal/iocontext"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type versionInfo struct {
	Version    string         `json:"version"`
	Commit     string         `json:"commit"`
	Date       string         `json:"date"`
	GoVersion  string         `json:"go_version"`
	APIVersion string         `json:"api_version"`
	Server     *compat.Result `json:"server,omitempty"`
	ServerErr  string         `json:"server_error,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var checkServer bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			info := versionInfo{
				Version:    version,
				Commit:     commit,
				Date:       date,
				GoVersion:  runtime.Version(),
				APIVersion: api.CatalogAPIVersion,
			}

			if checkServer {
				err := withSession(ctx, func(s *session) error {
					res, err := compat.Check(ctx, s.client)
					if err != nil {
						return err
					}
					info.Server = res
					return nil
				})
				if err != nil {
					info.ServerErr = err.Error()
				}
			}

			if isJSON(cmd) {
				return printJSON(cmd, info)
			}

			out := iocontext.GetIO(ctx).Out
			_, _ = fmt.Fprintf(out, "itemctl %s (%s, %s)\n", info.Version, info.Commit, info.Date)
			_, _ = fmt.Fprintf(out, "API catalog: %s\n", info.APIVersion)
			switch {
			case info.ServerErr != "":
				_, _ = fmt.Fprintf(out, "Server: unavailable (%s)\n", info.ServerErr)
			case info.Server != nil:
				status := "compatible"
				if !info.Server.Compatible {
					status = "incompatible"
				}
				_, _ = fmt.Fprintf(out, "Server: %s (%s)\n", info.Server.ServerVersion, status)
				if info.Server.Note != "" {
					_, _ = fmt.Fprintf(out, "  %s\n", info.Server.Note)
				}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&checkServer, "check-server", false, "Compare the server's API version with the catalog")

	return cmd
}
