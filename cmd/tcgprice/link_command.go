package main

import (
	"github.com/spf13/cobra"
)

func newLinkCommand(ctx *commandContext) *cobra.Command {
	var reextract bool

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Copy product codes onto uncoded variant cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				sum, err := rt.runner.Link(cmd.Context(), reextract)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reextract, "reextract", false, "Re-run identity extraction on every card first")
	return cmd
}
