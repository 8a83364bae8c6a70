package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newGroupCommand(ctx *commandContext) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage manual card groups",
	}
	groupCmd.AddCommand(newGroupCreateCommand(ctx))
	return groupCmd
}

func newGroupCreateCommand(ctx *commandContext) *cobra.Command {
	var cardIDs []int64
	var primary int64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Group cards so their prices are shown together",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				return errors.New("group name is required")
			}
			if len(cardIDs) == 0 {
				return errors.New("at least one --card is required")
			}
			return ctx.withRuntime(func(rt *runtime) error {
				group, err := rt.store.CreateCardGroup(cmd.Context(), name, cardIDs, primary)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created group %q (#%d) with %d cards\n", group.Name, group.ID, len(group.Members))
				return nil
			})
		},
	}

	cmd.Flags().Int64SliceVar(&cardIDs, "card", nil, "Member card ID (repeatable)")
	cmd.Flags().Int64Var(&primary, "primary", 0, "Primary card ID; must be a member")
	return cmd
}
