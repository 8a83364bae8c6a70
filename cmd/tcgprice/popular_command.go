package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tcgprice/internal/jobs"
)

func newPopularCommand(ctx *commandContext) *cobra.Command {
	var opts jobs.PopularOptions
	var showStats bool

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "Refresh prices of frequently searched or clicked cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if showStats {
					return printPopularCards(cmd, rt)
				}
				sum, err := rt.runner.Popular(cmd.Context(), opts)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum cards to refresh (default popular.batch_limit)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Recompute popular flags from recent searches and clicks first")
	cmd.Flags().BoolVar(&showStats, "stats", false, "List popular cards without fetching")
	cmd.MarkFlagsMutuallyExclusive("stats", "refresh")
	return cmd
}

func printPopularCards(cmd *cobra.Command, rt *runtime) error {
	cards, err := rt.store.PopularCards(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(cards) == 0 {
		fmt.Fprintln(out, "No popular cards; run `tcgprice popular --refresh`")
		return nil
	}
	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, []string{
			strconv.FormatInt(card.ID, 10),
			card.Name,
			card.ExtractedCode,
			formatAgo(card.LastPriceFetchAt),
		})
	}
	fmt.Fprintf(out, "%d popular cards\n", len(cards))
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Card", "Code", "Last fetch"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	return nil
}
