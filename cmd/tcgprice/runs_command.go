package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent job runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				logs, err := rt.store.ListBatchLogs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(logs) == 0 {
					fmt.Fprintln(out, "No job runs recorded")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(logs))
				for _, entry := range logs {
					rows = append(rows, []string{
						formatTime(entry.StartedAt),
						entry.BatchType,
						entry.ShopName,
						colorText(entry.Status, batchStatusKind(entry.Status), colorize),
						strconv.Itoa(entry.PagesProcessed),
						strconv.Itoa(entry.CardsTotal),
						strconv.Itoa(entry.CardsNew),
						strconv.Itoa(entry.CardsUpdated),
						entry.FinishedAt.Sub(entry.StartedAt).Round(time.Second).String(),
						entry.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Job", "Shop", "Status", "Pages", "Listings", "New", "Updated", "Took", "Message"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
