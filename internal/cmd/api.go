package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/dryrun"
	"github.com/itemsapp/itemctl/internal/iocontext"
)

func newAPICmd() *cobra.Command {
	var (
		method         string
		fields         []string
		rawFields      []string
		params         []string
		headers        []string
		inputFile      string
		jsonBody       string
		form           bool
		silent         bool
		includeHeaders bool
	)

	cmd := &cobra.Command{
		Use:     "api <path>",
		Aliases: []string{"ap"},
		Short:   "Make raw authenticated requests to any API path",
		Long: `Make raw requests through the same pipeline the typed commands use.

Relative paths are joined to the API base URL; absolute http(s) URLs are
used as-is. The stored access token is sent as a bearer token unless an
Authorization header is given with -H.`,
		Example: `  # GET request (default)
  itemctl api /api/v1/users/me

  # POST with fields
  itemctl api /api/v1/items/ -X POST -f title=Groceries -f description=Weekly

  # PUT with a raw JSON field
  itemctl api /api/v1/items/ID -X PUT -F 'title="Renamed"'

  # Query parameters
  itemctl api /api/v1/items/ -p skip=0 -p limit=5 --jq '.data[].title'

  # Form-encoded body
  itemctl api /api/v1/login/access-token -X POST --form -f username=a@b.com -f password=secret

  # Read body from stdin
  echo '{"title":"From stdin"}' | itemctl api /api/v1/items/ -X POST -i -`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			out := iocontext.GetIO(ctx).Out

			validMethods := map[string]bool{
				"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
			}
			method = strings.ToUpper(method)
			if !validMethods[method] {
				return fmt.Errorf("invalid HTTP method %q: must be one of GET, POST, PUT, PATCH, DELETE", method)
			}
			if jsonBody != "" && inputFile != "" {
				return fmt.Errorf("cannot use both --body and --input flags")
			}
			if form && (jsonBody != "" || inputFile != "" || len(rawFields) > 0) {
				return fmt.Errorf("--form only accepts --field values")
			}

			opts := api.RequestOptions{Method: method, URL: args[0]}

			if form {
				values, err := buildFormBody(fields)
				if err != nil {
					return err
				}
				if values != nil {
					opts.Data = values
				}
			} else {
				body, err := buildRequestBody(cmd, fields, rawFields, inputFile, jsonBody)
				if err != nil {
					return err
				}
				if body != nil {
					opts.Data = body
				}
			}

			for _, p := range params {
				key, value, err := parseQueryParam(p)
				if err != nil {
					return err
				}
				if opts.Params == nil {
					opts.Params = make(map[string]any)
				}
				opts.Params[key] = value
			}
			for _, h := range headers {
				name, value, err := parseHeader(h)
				if err != nil {
					return err
				}
				if opts.Headers == nil {
					opts.Headers = make(map[string]string)
				}
				opts.Headers[name] = value
			}

			if method != "GET" {
				if ok, err := maybeDryRun(cmd, strings.ToLower(method), args[0], func(p *dryrun.Preview) error {
					return p.AddRequest(settings.BaseURL, opts)
				}); ok {
					return err
				}
			}

			return withSession(ctx, func(s *session) error {
				respBody, respHeaders, err := s.client.Do(ctx, opts)
				if err != nil {
					return err
				}
				if silent {
					return nil
				}

				if isJSON(cmd) {
					return printJSON(cmd, apiJSONPayload(respBody, respHeaders, includeHeaders))
				}

				if includeHeaders {
					keys := make([]string, 0, len(respHeaders))
					for k := range respHeaders {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						for _, v := range respHeaders[k] {
							_, _ = fmt.Fprintf(out, "%s: %s\n", k, v)
						}
					}
					_, _ = fmt.Fprintln(out)
				}

				if len(respBody) > 0 {
					pretty := &bytes.Buffer{}
					if err := json.Indent(pretty, respBody, "", "  "); err == nil {
						_, _ = fmt.Fprintln(out, pretty.String())
						return nil
					}
					_, _ = fmt.Fprintln(out, string(respBody))
				}
				return nil
			})
		}),
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method (GET, POST, PUT, PATCH, DELETE)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Request body field as key=value (string)")
	cmd.Flags().StringArrayVarP(&rawFields, "raw-field", "F", nil, "Request body field as key=value (JSON parsed)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Query parameter as key=value")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header as Name:value")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Read request body from file (use - for stdin)")
	cmd.Flags().StringVarP(&jsonBody, "body", "d", "", "Request body as inline JSON string")
	cmd.Flags().BoolVar(&form, "form", false, "Send --field values form-encoded")
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Suppress output")
	cmd.Flags().BoolVar(&includeHeaders, "include", false, "Include response headers in output")
	flagAlias(cmd.Flags(), "include", "inc")

	return cmd
}

func apiJSONPayload(respBody []byte, headers map[string][]string, includeHeaders bool) any {
	body := apiJSONBody(respBody)
	if !includeHeaders {
		return body
	}
	return map[string]any{
		"headers": headers,
		"body":    body,
	}
}

func apiJSONBody(respBody []byte) any {
	if len(respBody) == 0 {
		return nil
	}
	if !json.Valid(respBody) {
		return string(respBody)
	}
	return json.RawMessage(respBody)
}

// buildRequestBody constructs the request body from fields and/or input file/inline JSON
func buildRequestBody(cmd *cobra.Command, fields, rawFields []string, inputFile, jsonBody string) (map[string]any, error) {
	body := make(map[string]any)

	if jsonBody != "" {
		if err := json.Unmarshal([]byte(jsonBody), &body); err != nil {
			return nil, fmt.Errorf("failed to parse --body JSON: %w", err)
		}
	}

	if inputFile != "" {
		inputData, err := readInput(cmd, inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		if err := json.Unmarshal(inputData, &body); err != nil {
			return nil, fmt.Errorf("failed to parse input JSON: %w", err)
		}
	}

	for _, field := range fields {
		key, value, err := parseField(field)
		if err != nil {
			return nil, err
		}
		body[key] = value
	}

	for _, field := range rawFields {
		key, value, err := parseRawField(field)
		if err != nil {
			return nil, err
		}
		body[key] = value
	}

	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// buildFormBody collects string fields into form values.
func buildFormBody(fields []string) (url.Values, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	values := url.Values{}
	for _, field := range fields {
		key, value, err := parseField(field)
		if err != nil {
			return nil, err
		}
		values.Add(key, value)
	}
	return values, nil
}
