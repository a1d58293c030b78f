package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/api"
)

type healthResult struct {
	BaseURL   string `json:"base_url"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				start := time.Now()
				ok, err := api.HealthCheck(ctx, s.client)
				if err != nil {
					return err
				}
				res := healthResult{BaseURL: s.client.BaseURL, Healthy: ok, LatencyMS: time.Since(start).Milliseconds()}
				if isJSON(cmd) {
					if err := printJSON(cmd, res); err != nil {
						return err
					}
				} else if ok {
					printIfNotQuiet(cmd, "%s is healthy (%dms)\n", res.BaseURL, res.LatencyMS)
				}
				if !ok {
					return fmt.Errorf("%s reported unhealthy", res.BaseURL)
				}
				return nil
			})
		}),
	}
}
