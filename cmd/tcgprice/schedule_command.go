package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tcgprice/internal/config"
	"tcgprice/internal/detect"
	"tcgprice/internal/jobs"
	"tcgprice/internal/schedule"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run job classes in-process on their configured cron specs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				loc, err := rt.cfg.Location()
				if err != nil {
					return err
				}
				sched := schedule.New(loc, rt.logger, func(err error) bool {
					return errors.Is(err, jobs.ErrJobRunning)
				})
				if err := registerJobs(sched, rt.cfg.Schedule, rt.runner); err != nil {
					return err
				}
				if list {
					printSchedule(cmd, sched.Entries())
					return nil
				}
				return sched.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "Print scheduled jobs and their next run, then exit")
	return cmd
}

func registerJobs(sched *schedule.Scheduler, specs config.Schedule, runner *jobs.Runner) error {
	entries := []struct {
		name string
		spec string
		run  schedule.JobFunc
	}{
		{"crawl", specs.Crawl, func(ctx context.Context) error {
			_, err := runner.Crawl(ctx, jobs.CrawlOptions{})
			return err
		}},
		{"new_arrivals", specs.NewArrivals, func(ctx context.Context) error {
			_, err := runner.Crawl(ctx, jobs.CrawlOptions{NewArrivals: true})
			return err
		}},
		{"fetch", specs.Fetch, func(ctx context.Context) error {
			_, err := runner.Fetch(ctx, nil)
			return err
		}},
		{"queue", specs.Queue, func(ctx context.Context) error {
			_, err := runner.ProcessQueue(ctx, 0)
			return err
		}},
		{"popular", specs.Popular, func(ctx context.Context) error {
			_, err := runner.Popular(ctx, jobs.PopularOptions{Refresh: true})
			return err
		}},
		{"notify", specs.Notify, func(ctx context.Context) error {
			_, _, err := runner.Notify(ctx, detect.Options{})
			return err
		}},
		{"link", specs.Link, func(ctx context.Context) error {
			_, err := runner.Link(ctx, false)
			return err
		}},
	}
	for _, e := range entries {
		if err := sched.Add(e.name, e.spec, e.run); err != nil {
			return err
		}
	}
	return nil
}

func printSchedule(cmd *cobra.Command, entries []schedule.Entry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No jobs scheduled")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, e.Spec, e.Next.Format(time.RFC3339)})
	}
	fmt.Fprintln(out, renderTable([]string{"Job", "Spec", "Next run"}, rows, nil))
}
