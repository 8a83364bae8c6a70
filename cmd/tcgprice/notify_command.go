package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcgprice/internal/detect"
	"tcgprice/internal/store"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var opts detect.Options

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Detect price changes on watched cards and notify users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				sum, res, err := rt.runner.Notify(cmd.Context(), opts)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				printChanges(cmd, res.Changes)
				if res.Duplicates > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d changes already recorded\n", res.Duplicates)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report changes without writing anything")
	cmd.Flags().BoolVar(&opts.NoPostQueue, "no-post-queue", false, "Do not queue any social posts")
	cmd.Flags().BoolVar(&opts.SummaryOnly, "summary-only", false, "Queue only the summary post")
	return cmd
}

func printChanges(cmd *cobra.Command, changes []store.PriceChange) {
	if len(changes) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		kind := priceMoveKind(c.ChangeAmount)
		rows = append(rows, []string{
			c.CardName,
			c.ShopName,
			formatYen(c.OldPrice),
			formatYen(c.NewPrice),
			colorText(formatSignedYen(c.ChangeAmount), kind, colorize),
			colorText(fmt.Sprintf("%+.1f%%", c.ChangePercent), kind, colorize),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Card", "Shop", "Old", "New", "Change", "%"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}
