package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tcgprice/internal/store"
)

// queueSourceManual tags keywords enqueued from the command line.
const queueSourceManual = "manual"

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and process the background fetch queue",
	}

	queueCmd.AddCommand(newQueueProcessCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueEnqueueCommand(ctx))
	queueCmd.AddCommand(newQueueCleanupCommand(ctx))

	return queueCmd
}

func newQueueProcessCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Fetch prices for pending keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				sum, err := rt.runner.ProcessQueue(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum items to process (default queue.batch_limit)")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and pending keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				stats, err := rt.store.QueueStats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				total := 0
				for _, count := range stats {
					total += count
				}
				if total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, 3)
				for _, status := range []store.QueueStatus{store.QueuePending, store.QueueProcessing, store.QueueDone} {
					rows = append(rows, []string{
						colorText(string(status), queueStatusKind(status), colorize),
						strconv.Itoa(stats[status]),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

				items, err := rt.store.ListQueue(cmd.Context(), store.QueuePending, limit)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					return nil
				}
				itemRows := make([][]string, 0, len(items))
				for _, item := range items {
					itemRows = append(itemRows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Keyword,
						item.Source,
						strconv.Itoa(item.Priority),
						formatAgo(&item.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Keyword", "Source", "Priority", "Queued"},
					itemRows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum pending items to list")
	return cmd
}

func newQueueEnqueueCommand(ctx *commandContext) *cobra.Command {
	var priority int
	var sourceName string
	cmd := &cobra.Command{
		Use:   "enqueue <keyword>",
		Short: "Queue a keyword for a background fetch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(strings.Join(args, " "))
			if keyword == "" {
				return errors.New("keyword is required")
			}
			return ctx.withRuntime(func(rt *runtime) error {
				id, ok, err := rt.store.Enqueue(cmd.Context(), keyword, sourceName, priority)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintf(out, "%q is already pending\n", keyword)
					return nil
				}
				fmt.Fprintf(out, "Queued %q (item %d)\n", keyword, id)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Higher priorities are fetched first")
	cmd.Flags().StringVar(&sourceName, "source", queueSourceManual, "Label recorded as the request source")
	return cmd
}

func newQueueCleanupCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete finished queue items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if !cmd.Flags().Changed("days") {
					days = rt.cfg.Queue.CleanupDays
				}
				if days < 0 {
					return fmt.Errorf("--days must not be negative (got %d)", days)
				}
				removed, err := rt.store.CleanupQueue(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d done items older than %d days\n", removed, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Age in days of done items to delete (default queue.cleanup_days)")
	return cmd
}
