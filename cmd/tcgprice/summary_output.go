package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcgprice/internal/jobs"
)

func printSummary(cmd *cobra.Command, sum jobs.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s finished (run %s)\n", sum.Job, sum.RunID)
	if sum.Shop != "" {
		fmt.Fprintf(out, "  shop:          %s\n", sum.Shop)
	}
	if sum.Pages > 0 {
		fmt.Fprintf(out, "  pages:         %d\n", sum.Pages)
	}
	fmt.Fprintf(out, "  listings:      %d\n", sum.Total)
	fmt.Fprintf(out, "  new cards:     %d\n", sum.New)
	fmt.Fprintf(out, "  price updates: %d\n", sum.Updated)
	if sum.Message != "" {
		fmt.Fprintf(out, "  %s\n", sum.Message)
	}
}
