package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/dryrun"
	"github.com/itemsapp/itemctl/internal/iocontext"
	"github.com/itemsapp/itemctl/internal/outfmt"
	"github.com/itemsapp/itemctl/internal/validation"
)

// maxListPages caps --all pagination.
const maxListPages = 100

func newItemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item", "it"},
		Short:   "Manage items",
	}

	cmd.AddCommand(newItemsListCmd())
	cmd.AddCommand(newItemsGetCmd())
	cmd.AddCommand(newItemsCreateCmd())
	cmd.AddCommand(newItemsUpdateCmd())
	cmd.AddCommand(newItemsDeleteCmd())

	return cmd
}

func newItemsListCmd() *cobra.Command {
	var (
		skip  int
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List items",
		Example: strings.TrimSpace(`
  itemctl items list
  itemctl items list --skip 20 --limit 10
  itemctl items list --all --json --jq '.data[].title'
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if skip < 0 {
				return fmt.Errorf("--skip must be >= 0")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be > 0")
			}

			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				var page *api.ItemsPublic
				var err error
				if all {
					page, err = listAllItems(ctx, s.client, skip, limit)
				} else {
					page, err = api.ReadItems(ctx, s.client, intFlag(cmd, "skip", skip), intFlag(cmd, "limit", limit))
				}
				if err != nil {
					return err
				}

				ioStreams := iocontext.GetIO(ctx)
				f := outfmt.NewFormatter(ctx, ioStreams.Out, ioStreams.ErrOut)
				if isJSON(cmd) {
					return f.Output(page)
				}
				if len(page.Data) == 0 {
					f.Empty("No items found")
					return nil
				}
				f.StartTable([]string{"ID", "TITLE", "DESCRIPTION"})
				for _, item := range page.Data {
					f.Row(item.ID, item.Title, derefString(item.Description))
				}
				if err := f.EndTable(); err != nil {
					return err
				}
				f.Paging(len(page.Data), page.Count, "items")
				return nil
			})
		}),
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of items to skip")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum items per page")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Fetch every page")
	flagAlias(cmd.Flags(), "limit", "lim")

	return cmd
}

// intFlag returns a pointer to v only when the flag was given, so unset
// pagination flags are left to the server's defaults.
func intFlag(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func listAllItems(ctx context.Context, r api.Requester, skip, limit int) (*api.ItemsPublic, error) {
	all := &api.ItemsPublic{Data: []api.ItemPublic{}}
	for page := 0; page < maxListPages; page++ {
		s, l := skip, limit
		resp, err := api.ReadItems(ctx, r, &s, &l)
		if err != nil {
			return nil, err
		}
		all.Data = append(all.Data, resp.Data...)
		all.Count = resp.Count
		skip += len(resp.Data)
		if len(resp.Data) < limit || skip >= resp.Count {
			break
		}
	}
	return all, nil
}

func newItemsGetCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:     "get <id>...",
		Aliases: []string{"show"},
		Short:   "Get one or more items",
		Args:    cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				if len(args) == 1 {
					item, err := api.ReadItem(ctx, s.client, args[0])
					if err != nil {
						return err
					}
					if isJSON(cmd) {
						return printJSON(cmd, item)
					}
					printItem(cmd, item)
					return nil
				}

				results := runBulkOperation(ctx, args, int64(concurrency), false, nil,
					func(ctx context.Context, id string) (*api.ItemPublic, error) {
						return api.ReadItem(ctx, s.client, id)
					})
				if isJSON(cmd) {
					if err := printJSON(cmd, results); err != nil {
						return err
					}
				} else {
					f := outfmt.NewFormatter(ctx, iocontext.GetIO(ctx).Out, iocontext.GetIO(ctx).ErrOut)
					f.StartTable([]string{"ID", "TITLE", "DESCRIPTION", "STATUS"})
					for _, r := range results {
						if item, ok := r.Data.(*api.ItemPublic); ok && r.Success {
							f.Row(item.ID, item.Title, derefString(item.Description), "ok")
						} else {
							f.Row(r.ID, "", "", r.Message)
						}
					}
					if err := f.EndTable(); err != nil {
						return err
					}
				}
				return firstBulkError(results)
			})
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "Max concurrent requests")
	flagAlias(cmd.Flags(), "concurrency", "cc")

	return cmd
}

func newItemsCreateCmd() *cobra.Command {
	var (
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"new", "mk"},
		Short:   "Create an item",
		Example: strings.TrimSpace(`
  itemctl items create --title Groceries --description "Weekly run"
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			if err := validation.ValidateTitle(title); err != nil {
				return err
			}
			if err := validation.ValidateDescription(description); err != nil {
				return err
			}
			in := api.ItemCreate{
				Title:       title,
				Description: optionalString(cmd, "description", description),
			}
			if ok, err := maybeDryRun(cmd, "create", "item", func(p *dryrun.Preview) error {
				return p.AddEndpoint(settings.BaseURL, api.EndpointItemsCreate, nil, in)
			}); ok {
				return err
			}
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				item, err := api.CreateItem(ctx, s.client, in)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, item)
				}
				printIfNotQuiet(cmd, "Created item %s\n", item.ID)
				return nil
			})
		}),
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Item title (required)")
	cmd.Flags().StringVarP(&description, "description", "D", "", "Item description")
	flagAlias(cmd.Flags(), "description", "desc")

	return cmd
}

func newItemsUpdateCmd() *cobra.Command {
	var (
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:     "update <id>",
		Aliases: []string{"edit"},
		Short:   "Update an item",
		Example: strings.TrimSpace(`
  itemctl items update ID --title Renamed
  itemctl items update ID --description ""
`),
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			in := api.ItemUpdate{
				Title:       optionalString(cmd, "title", title),
				Description: optionalString(cmd, "description", description),
			}
			if in.Title == nil && in.Description == nil {
				return fmt.Errorf("at least one of --title or --description is required")
			}
			if in.Title != nil {
				if err := validation.ValidateTitle(*in.Title); err != nil {
					return err
				}
			}
			if err := validation.ValidateDescription(description); err != nil {
				return err
			}
			if ok, err := maybeDryRun(cmd, "update", "item "+args[0], func(p *dryrun.Preview) error {
				return p.AddEndpoint(settings.BaseURL, api.EndpointItemsUpdate, map[string]string{"id": args[0]}, in)
			}); ok {
				return err
			}
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				item, err := api.UpdateItem(ctx, s.client, args[0], in)
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return printJSON(cmd, item)
				}
				printIfNotQuiet(cmd, "Updated item %s\n", item.ID)
				return nil
			})
		}),
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "D", "", "New description")
	flagAlias(cmd.Flags(), "description", "desc")

	return cmd
}

func newItemsDeleteCmd() *cobra.Command {
	var (
		concurrency int
		progress    bool
	)

	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete one or more items",
		Example: strings.TrimSpace(`
  itemctl items delete ID
  itemctl items delete ID1 ID2 ID3 --concurrency 2
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if ok, err := maybeDryRun(cmd, "delete", pluralItems(len(args)), func(p *dryrun.Preview) error {
				p.Warnings = append(p.Warnings, "Deleted items cannot be restored")
				for _, id := range args {
					if err := p.AddEndpoint(settings.BaseURL, api.EndpointItemsDelete, map[string]string{"id": id}, nil); err != nil {
						return err
					}
				}
				return nil
			}); ok {
				return err
			}
			ctx := cmdContext(cmd)
			return withSession(ctx, func(s *session) error {
				errOut := iocontext.GetIO(ctx).ErrOut
				results := runBulkOperation(ctx, args, int64(concurrency), progress && len(args) > 1, errOut,
					func(ctx context.Context, id string) (*api.Message, error) {
						msg, err := api.DeleteItem(ctx, s.client, id)
						if err != nil {
							_, _ = fmt.Fprintf(errOut, "Failed to delete item %s: %s\n", id, api.ExtractError(err, err.Error()))
						}
						return msg, err
					})

				successCount, failCount := countResults(results)
				if isJSON(cmd) {
					if err := printJSON(cmd, map[string]any{
						"success_count": successCount,
						"fail_count":    failCount,
						"results":       results,
					}); err != nil {
						return err
					}
				} else {
					printIfNotQuiet(cmd, "Deleted %s (%d failed)\n", pluralItems(successCount), failCount)
				}
				return firstBulkError(results)
			})
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "Max concurrent deletes")
	cmd.Flags().BoolVar(&progress, "progress", false, "Show progress while deleting")
	flagAlias(cmd.Flags(), "concurrency", "cc")

	return cmd
}

func printItem(cmd *cobra.Command, item *api.ItemPublic) {
	out := iocontext.GetIO(cmd.Context()).Out
	_, _ = fmt.Fprintf(out, "ID:          %s\n", item.ID)
	_, _ = fmt.Fprintf(out, "Title:       %s\n", item.Title)
	if item.Description != nil {
		_, _ = fmt.Fprintf(out, "Description: %s\n", *item.Description)
	}
	_, _ = fmt.Fprintf(out, "Owner:       %s\n", item.OwnerID)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func pluralItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return strconv.Itoa(n) + " items"
}
