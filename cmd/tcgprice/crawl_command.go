package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcgprice/internal/crawl"
	"tcgprice/internal/jobs"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	var opts jobs.CrawlOptions
	var showStatus bool
	var reset bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl shop catalogs, resuming from the saved page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				switch {
				case showStatus:
					rows, err := rt.runner.CrawlStatus(cmd.Context())
					if err != nil {
						return err
					}
					printCrawlStatus(cmd, rows)
					return nil
				case reset:
					sum, err := rt.runner.CrawlReset(cmd.Context(), opts.Shop)
					if err != nil {
						return err
					}
					printSummary(cmd, sum)
					return nil
				}
				sum, err := rt.runner.Crawl(cmd.Context(), opts)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Shop, "shop", "all", "Source key to crawl, or all")
	cmd.Flags().IntVar(&opts.Pages, "pages", 0, "Maximum pages per source (default from config)")
	cmd.Flags().BoolVar(&opts.NewArrivals, "new-arrivals", false, "Crawl the new arrivals listing instead of the catalog")
	cmd.Flags().BoolVar(&showStatus, "status", false, "Show crawl progress per shop")
	cmd.Flags().BoolVar(&reset, "reset", false, "Rewind the catalog cursor to page 1")
	cmd.MarkFlagsMutuallyExclusive("status", "reset", "new-arrivals")
	return cmd
}

func printCrawlStatus(cmd *cobra.Command, rows []crawl.StatusRow) {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No crawl progress recorded yet")
		return
	}
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		total := "?"
		if row.TotalPages > 0 {
			total = fmt.Sprintf("%d", row.TotalPages)
		}
		tableRows = append(tableRows, []string{
			row.ShopKey,
			row.ShopName,
			fmt.Sprintf("%d / %s", row.CurrentPage, total),
			fmt.Sprintf("%.1f%%", row.Percent),
			string(row.Status),
			formatAgo(row.LastFetchedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Shop", "Name", "Page", "Progress", "Status", "Last fetch"},
		tableRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}
