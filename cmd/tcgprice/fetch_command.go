package main

import (
	"github.com/spf13/cobra"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var keywords []string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search every shop for the configured keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				sum, err := rt.runner.Fetch(cmd.Context(), keywords)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "Keyword to fetch instead of fetch.keywords (repeatable)")
	return cmd
}
