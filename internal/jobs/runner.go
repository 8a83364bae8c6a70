package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tcgprice/internal/config"
	"tcgprice/internal/ingest"
	"tcgprice/internal/joblock"
	"tcgprice/internal/logging"
	"tcgprice/internal/notifications"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
)

// ErrJobRunning reports that another run of the same job class holds the lock.
var ErrJobRunning = errors.New("job already running")

// Batch log statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Summary carries the counts a run reports to batch_logs.
type Summary struct {
	Job     string
	RunID   string
	Shop    string
	Pages   int
	Total   int
	New     int
	Updated int
	Message string

	// shopRows counts per-source batch log rows written by the run body.
	shopRows int
}

func (s *Summary) addStats(stats ingest.Stats) {
	s.Total += stats.Total
	s.New += stats.New
	s.Updated += stats.Updated
}

// LockFunc returns the lock for a job class.
type LockFunc func(class string) (joblock.JobLock, error)

// Option configures a Runner.
type Option func(*Runner)

// WithLocker overrides how job locks are created.
func WithLocker(fn LockFunc) Option {
	return func(r *Runner) {
		if fn != nil {
			r.locker = fn
		}
	}
}

// WithNotifier overrides the operator notifier.
func WithNotifier(svc notifications.Service) Option {
	return func(r *Runner) {
		if svc != nil {
			r.notifier = svc
		}
	}
}

// Runner executes job classes against a store and a catalog registry.
type Runner struct {
	cfg      *config.Config
	store    *store.Store
	registry *source.Registry
	notifier notifications.Service
	locker   LockFunc
	logger   *slog.Logger
}

// NewRunner constructs a runner.
func NewRunner(cfg *config.Config, st *store.Store, registry *source.Registry, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		store:    st,
		registry: registry,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "jobs"),
	}
	r.locker = func(class string) (joblock.JobLock, error) {
		return joblock.New(cfg.Paths.LockDir, class)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeedShops inserts a shop row for every configured source.
func (r *Runner) SeedShops(ctx context.Context) error {
	seeds := make([]store.ShopSeed, 0, len(r.cfg.Sources))
	for _, src := range r.cfg.Sources {
		seeds = append(seeds, store.ShopSeed{Key: src.Key, Name: src.Name, URL: src.URL})
	}
	return r.store.SeedShops(ctx, seeds)
}

// run wraps fn with the job lock, run tagging and the batch log row.
func (r *Runner) run(ctx context.Context, class string, fn func(ctx context.Context, logger *slog.Logger, sum *Summary) error) (Summary, error) {
	lock, err := r.locker(class)
	if err != nil {
		return Summary{}, err
	}
	held, err := lock.TryAcquire()
	if err != nil {
		return Summary{}, err
	}
	if !held {
		r.logger.Info("job already running; exiting", logging.String(logging.FieldJob, class))
		return Summary{}, ErrJobRunning
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("release job lock", logging.String(logging.FieldJob, class), logging.Error(err))
		}
	}()

	sum := Summary{Job: class, RunID: uuid.NewString()}
	ctx = logging.WithRun(ctx, class, sum.RunID)
	logger := logging.WithContext(ctx, r.logger)
	started := r.store.Now()
	logger.Info("job started")

	runErr := r.SeedShops(ctx)
	if runErr == nil {
		runErr = fn(ctx, logger, &sum)
	}

	finished := r.store.Now()
	// The run summary is written even when the run was cancelled.
	bookkeeping := context.WithoutCancel(ctx)
	if sum.shopRows == 0 {
		entry := store.BatchLog{
			RunID:          sum.RunID,
			BatchType:      class,
			ShopName:       sum.Shop,
			Status:         StatusSuccess,
			PagesProcessed: sum.Pages,
			CardsTotal:     sum.Total,
			CardsNew:       sum.New,
			CardsUpdated:   sum.Updated,
			Message:        sum.Message,
			StartedAt:      started,
			FinishedAt:     finished,
		}
		if runErr != nil {
			entry.Status = StatusError
			entry.Message = runErr.Error()
		}
		r.writeBatchLog(bookkeeping, logger, entry)
	}

	elapsed := finished.Sub(started)
	if runErr != nil {
		logger.Error("job failed", logging.Error(runErr), logging.Duration("elapsed", elapsed))
		r.publish(bookkeeping, logger, notifications.EventRunFailed, notifications.Payload{"job": class, "error": runErr})
		return sum, runErr
	}
	logger.Info("job finished",
		logging.Int("pages", sum.Pages),
		logging.Int("cards_total", sum.Total),
		logging.Int("cards_new", sum.New),
		logging.Int("cards_updated", sum.Updated),
		logging.Duration("elapsed", elapsed))
	r.publish(bookkeeping, logger, notifications.EventRunCompleted, notifications.Payload{
		"job":      class,
		"duration": elapsed,
		"summary":  fmt.Sprintf("%d listings, %d new cards, %d price updates", sum.Total, sum.New, sum.Updated),
	})
	return sum, nil
}

// logShop writes the batch log row for one source of a multi-source run.
func (r *Runner) logShop(ctx context.Context, logger *slog.Logger, sum *Summary, entry store.BatchLog, err error) {
	entry.RunID = sum.RunID
	entry.BatchType = sum.Job
	entry.Status = StatusSuccess
	entry.FinishedAt = r.store.Now()
	if err != nil {
		entry.Status = StatusError
		entry.Message = err.Error()
	}
	r.writeBatchLog(context.WithoutCancel(ctx), logger, entry)
	sum.shopRows++
}

func (r *Runner) writeBatchLog(ctx context.Context, logger *slog.Logger, entry store.BatchLog) {
	if _, err := r.store.InsertBatchLog(ctx, entry); err != nil {
		logger.Warn("write batch log", logging.String(logging.FieldShop, entry.ShopName), logging.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "operator notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"))
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
