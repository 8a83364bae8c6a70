package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tcgprice/internal/store"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search stored prices; sparse results queue a background fetch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return ctx.withRuntime(func(rt *runtime) error {
				res, err := rt.runner.Search(cmd.Context(), keyword, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				if len(res.Quotes) == 0 {
					fmt.Fprintf(out, "No prices stored for %q\n", strings.TrimSpace(keyword))
				} else {
					printQuotes(cmd, res.Quotes)
				}
				if res.Enqueued {
					fmt.Fprintln(out, "Queued for a background fetch; search again after `tcgprice queue process`")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default search.result_limit)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func printQuotes(cmd *cobra.Command, quotes []store.PriceQuote) {
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{
			strconv.FormatInt(q.CardID, 10),
			q.CardName,
			q.ExtractedCode,
			q.ShopName,
			formatYen(q.Price),
			formatStock(q.Stock),
			formatTime(q.FetchedAt),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Card", "Code", "Shop", "Price", "Stock", "Fetched"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}
