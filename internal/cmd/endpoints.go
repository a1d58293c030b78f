package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/dryrun"
	"github.com/itemsapp/itemctl/internal/iocontext"
	"github.com/itemsapp/itemctl/internal/outfmt"
)

func newEndpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "endpoints",
		Aliases: []string{"ep"},
		Short:   "Browse and call the typed endpoint catalog",
	}

	cmd.AddCommand(newEndpointsListCmd())
	cmd.AddCommand(newEndpointsCallCmd())

	return cmd
}

func newEndpointsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog endpoints",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			ioStreams := iocontext.GetIO(ctx)
			f := outfmt.NewFormatter(ctx, ioStreams.Out, ioStreams.ErrOut)

			endpoints := make([]api.Endpoint, 0, len(api.Catalog))
			for _, name := range api.Catalog.Names() {
				e, err := api.Catalog.Lookup(name)
				if err != nil {
					return err
				}
				endpoints = append(endpoints, e)
			}

			if isJSON(cmd) {
				return f.Output(map[string]any{
					"api_version": api.CatalogAPIVersion,
					"endpoints":   endpoints,
				})
			}
			f.StartTable([]string{"NAME", "METHOD", "PATH", "SUMMARY"})
			for _, e := range endpoints {
				f.Row(e.Name, e.Method, e.Path, e.Summary)
			}
			return f.EndTable()
		}),
	}
}

func newEndpointsCallCmd() *cobra.Command {
	var (
		pathParams []string
		params     []string
		fields     []string
		rawFields  []string
		jsonBody   string
	)

	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Call a catalog endpoint by name",
		Example: strings.TrimSpace(`
  itemctl endpoints call users_read_me
  itemctl endpoints call items_read -p limit=5
  itemctl endpoints call items_read_one --path id=ID
  itemctl endpoints call items_create -f title=Groceries
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)

			endpoint, err := api.Catalog.Lookup(args[0])
			if err != nil {
				return err
			}

			pathValues := make(map[string]string, len(pathParams))
			for _, p := range pathParams {
				key, value, err := parseField(p)
				if err != nil {
					return err
				}
				pathValues[key] = value
			}

			var query map[string]any
			for _, p := range params {
				key, value, err := parseQueryParam(p)
				if err != nil {
					return err
				}
				if query == nil {
					query = make(map[string]any)
				}
				query[key] = value
			}

			var body any
			if endpoint.Form {
				if jsonBody != "" || len(rawFields) > 0 {
					return fmt.Errorf("endpoint %s is form-encoded: use --field", endpoint.Name)
				}
				values, err := buildFormBody(fields)
				if err != nil {
					return err
				}
				if values != nil {
					body = values
				}
			} else {
				m, err := buildRequestBody(cmd, fields, rawFields, "", jsonBody)
				if err != nil {
					return err
				}
				if m != nil {
					body = m
				}
			}

			opts, err := endpoint.Options(pathValues, query, body)
			if err != nil {
				return err
			}

			if endpoint.Method != http.MethodGet {
				if ok, err := maybeDryRun(cmd, "call", endpoint.Name, func(p *dryrun.Preview) error {
					return p.AddRequest(settings.BaseURL, opts)
				}); ok {
					return err
				}
			}

			return withSession(ctx, func(s *session) error {
				respBody, _, err := s.client.Do(ctx, opts)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, apiJSONBody(respBody))
				}
				out := iocontext.GetIO(ctx).Out
				pretty := &bytes.Buffer{}
				if err := json.Indent(pretty, respBody, "", "  "); err == nil {
					_, _ = fmt.Fprintln(out, pretty.String())
				} else if len(respBody) > 0 {
					_, _ = fmt.Fprintln(out, string(respBody))
				}
				return nil
			})
		}),
	}

	cmd.Flags().StringArrayVar(&pathParams, "path", nil, "Path parameter as name=value")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Query parameter as key=value")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Body field as key=value (string)")
	cmd.Flags().StringArrayVarP(&rawFields, "raw-field", "F", nil, "Body field as key=value (JSON parsed)")
	cmd.Flags().StringVarP(&jsonBody, "body", "d", "", "Request body as inline JSON string")

	return cmd
}
