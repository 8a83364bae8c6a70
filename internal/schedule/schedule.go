// Package schedule runs job classes in-process on cron specs.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tcgprice/internal/logging"
)

// JobFunc runs one job class.
type JobFunc func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	Name string
	Spec string
	Next time.Time
}

// Scheduler wraps a cron runner whose jobs share one context.
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	logger *slog.Logger
	ctx    context.Context
	names  map[cron.EntryID]Entry
	// skip reports errors that are expected outcomes rather than failures.
	skip func(error) bool
}

// New constructs a scheduler evaluating specs in loc. Errors for which
// expected returns true are logged at info level.
func New(loc *time.Location, logger *slog.Logger, expected func(error) bool) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger = logging.NewComponentLogger(logger, "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		loc:    loc,
		logger: logger,
		ctx:    context.Background(),
		names:  make(map[cron.EntryID]Entry),
		skip:   expected,
	}
}

// Add schedules run under name. An empty spec leaves the job unscheduled.
func (s *Scheduler) Add(name, spec string, run JobFunc) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		s.logger.Debug("job not scheduled", logging.String(logging.FieldJob, name))
		return nil
	}
	if run == nil {
		return errors.New("schedule: job func is required")
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.invoke(name, run)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.names[id] = Entry{Name: name, Spec: spec}
	return nil
}

func (s *Scheduler) invoke(name string, run JobFunc) {
	if s.ctx.Err() != nil {
		return
	}
	logger := s.logger.With(logging.String(logging.FieldJob, name))
	logger.Info("scheduled job starting")
	err := run(s.ctx)
	switch {
	case err == nil:
		logger.Info("scheduled job finished")
	case s.skip != nil && s.skip(err):
		logger.Info("scheduled job skipped", logging.String("reason", err.Error()))
	default:
		logger.Error("scheduled job failed", logging.Error(err))
	}
}

// Entries lists scheduled jobs ordered by next run. Before Run starts the
// next run is computed from the current time.
func (s *Scheduler) Entries() []Entry {
	var out []Entry
	now := time.Now().In(s.loc)
	for _, e := range s.cron.Entries() {
		entry, ok := s.names[e.ID]
		if !ok {
			continue
		}
		entry.Next = e.Next
		if entry.Next.IsZero() {
			entry.Next = e.Schedule.Next(now)
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Next.Equal(out[j].Next) {
			return out[i].Name < out[j].Name
		}
		return out[i].Next.Before(out[j].Next)
	})
	return out
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.names) == 0 {
		return errors.New("no jobs scheduled; set specs in the [schedule] section")
	}
	s.ctx = ctx
	s.cron.Start()
	for _, e := range s.Entries() {
		s.logger.Info("job scheduled",
			logging.String(logging.FieldJob, e.Name),
			logging.String("spec", e.Spec),
			logging.String("next", e.Next.Format(time.RFC3339)))
	}
	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}
