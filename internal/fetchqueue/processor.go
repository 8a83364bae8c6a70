package fetchqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tcgprice/internal/ingest"
	"tcgprice/internal/logging"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
)

// ErrAllSourcesFailed reports a keyword whose search failed on every shop.
var ErrAllSourcesFailed = errors.New("every source failed")

// Queue is the fetch queue persistence the processor drives.
type Queue interface {
	CleanupQueue(ctx context.Context, olderThanDays int) (int64, error)
	ResetStuckQueue(ctx context.Context) (int64, error)
	Dequeue(ctx context.Context, limit int) ([]*store.QueueItem, error)
	MarkQueueStatus(ctx context.Context, id int64, status store.QueueStatus) error
}

// Handler ingests one queued keyword.
type Handler func(ctx context.Context, item *store.QueueItem) (ingest.Stats, error)

// SearchHandler searches every catalog for the item keyword and ingests only
// listings whose name contains it. The item fails only when no catalog could
// be searched.
func SearchHandler(pipeline *ingest.Pipeline, catalogs []source.Catalog) Handler {
	return func(ctx context.Context, item *store.QueueItem) (ingest.Stats, error) {
		stats := pipeline.Search(ctx, catalogs, item.Keyword, ingest.NameContains(item.Keyword))
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if len(catalogs) > 0 && stats.SourceErrors >= len(catalogs) {
			return stats, fmt.Errorf("search %q: %w", item.Keyword, ErrAllSourcesFailed)
		}
		return stats, nil
	}
}

// Options controls one processor run.
type Options struct {
	Limit       int
	CleanupDays int
	Interval    time.Duration
}

// Result summarizes a processor run.
type Result struct {
	Cleaned   int64
	Reset     int64
	Processed int
	Failed    int
	Stats     ingest.Stats
}

// Processor drains pending queue items.
type Processor struct {
	queue  Queue
	handle Handler
	opts   Options
	logger *slog.Logger
}

// NewProcessor constructs a processor.
func NewProcessor(queue Queue, handle Handler, opts Options, logger *slog.Logger) *Processor {
	return &Processor{
		queue:  queue,
		handle: handle,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "fetch-queue"),
	}
}

// Run processes up to Options.Limit pending items.
func (p *Processor) Run(ctx context.Context) (Result, error) {
	var res Result
	if p.opts.CleanupDays > 0 {
		cleaned, err := p.queue.CleanupQueue(ctx, p.opts.CleanupDays)
		if err != nil {
			return res, err
		}
		res.Cleaned = cleaned
	}
	reset, err := p.queue.ResetStuckQueue(ctx)
	if err != nil {
		return res, err
	}
	res.Reset = reset
	if reset > 0 {
		p.logger.Info("returned stuck items to pending", logging.Int64("count", reset))
	}

	items, err := p.queue.Dequeue(ctx, p.opts.Limit)
	if err != nil {
		return res, err
	}
	if len(items) == 0 {
		p.logger.Info("fetch queue empty", logging.Int64("cleaned", res.Cleaned))
		return res, nil
	}
	p.logger.Info("processing fetch queue", logging.Int("items", len(items)))

	for i, item := range items {
		if i > 0 {
			if err := source.SleepWithContext(ctx, p.opts.Interval); err != nil {
				return res, err
			}
		}
		if err := p.process(ctx, item, &res); err != nil {
			return res, err
		}
	}
	p.logger.Info("fetch queue processed",
		logging.Int("processed", res.Processed),
		logging.Int("failed", res.Failed),
		logging.Int("new", res.Stats.New),
		logging.Int("updated", res.Stats.Updated))
	return res, nil
}

// process handles one item. Only queue bookkeeping errors are returned; a
// handler failure requeues the item.
func (p *Processor) process(ctx context.Context, item *store.QueueItem, res *Result) error {
	logger := p.logger.With(
		logging.Int64("queue_id", item.ID),
		logging.String(logging.FieldKeyword, item.Keyword))
	if err := p.queue.MarkQueueStatus(ctx, item.ID, store.QueueProcessing); err != nil {
		return err
	}

	stats, handleErr := p.handle(ctx, item)
	res.Stats.Add(stats)
	if handleErr != nil {
		res.Failed++
		logging.WarnWithContext(logger, "queue item failed; requeued", "queue_item_failed",
			logging.Error(handleErr),
			logging.String(logging.FieldErrorHint, "the item is retried on the next run"))
		// A cancelled run still has to release the item.
		if err := p.queue.MarkQueueStatus(context.WithoutCancel(ctx), item.ID, store.QueuePending); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}

	if err := p.queue.MarkQueueStatus(ctx, item.ID, store.QueueDone); err != nil {
		return err
	}
	res.Processed++
	logger.Info("queue item done",
		logging.Int("listings", stats.Total),
		logging.Int("new", stats.New),
		logging.Int("updated", stats.Updated))
	return nil
}
