package detect

import (
	"context"
	"log/slog"
	"math"
	"time"

	"tcgprice/internal/logging"
	"tcgprice/internal/store"
)

// Repository is the persistence a sweep reads and writes.
type Repository interface {
	Now() time.Time
	WatchedPriceMoves(ctx context.Context, recentStart time.Time) ([]store.PriceMove, error)
	ChangeRecorded(ctx context.Context, cardID, shopID int64, oldPrice, newPrice int, since time.Time) (bool, error)
	Watchers(ctx context.Context, cardID int64) ([]store.Watcher, error)
	RecordChange(ctx context.Context, rec store.ChangeRecord) (int64, error)
	EnqueuePost(ctx context.Context, p store.Post) error
}

// Thresholds configure the detection window and post rules.
type Thresholds struct {
	RecentWindow      time.Duration
	PostAmount        int
	PostPercent       float64
	SummaryMinChanges int
	SummaryTopMovers  int
}

// Options select what a sweep persists.
type Options struct {
	// DryRun computes and logs everything but writes nothing.
	DryRun bool
	// NoPostQueue suppresses every outbound post.
	NoPostQueue bool
	// SummaryOnly suppresses single-change posts but keeps the summary.
	SummaryOnly bool
}

// Result summarizes a sweep.
type Result struct {
	Changes       []store.PriceChange
	Duplicates    int
	Notifications int
	Posts         int
	Summary       bool
}

// Detector runs change sweeps.
type Detector struct {
	repo       Repository
	thresholds Thresholds
	logger     *slog.Logger
}

// New constructs a detector.
func New(repo Repository, thresholds Thresholds, logger *slog.Logger) *Detector {
	return &Detector{
		repo:       repo,
		thresholds: thresholds,
		logger:     logging.NewComponentLogger(logger, "detector"),
	}
}

// LargeSwing reports whether c qualifies for its own post.
func (d *Detector) LargeSwing(c store.PriceChange) bool {
	return absInt(c.ChangeAmount) >= d.thresholds.PostAmount ||
		math.Abs(c.ChangePercent) >= d.thresholds.PostPercent
}

// Sweep detects changes for watched cards and fans them out.
func (d *Detector) Sweep(ctx context.Context, opts Options) (Result, error) {
	var res Result
	recentStart := d.repo.Now().Add(-d.thresholds.RecentWindow)
	moves, err := d.repo.WatchedPriceMoves(ctx, recentStart)
	if err != nil {
		return res, err
	}

	for _, move := range moves {
		if move.OldPrice == move.NewPrice {
			continue
		}
		change := ChangeFromMove(move)
		logger := d.logger.With(
			logging.Int64(logging.FieldCardID, change.CardID),
			logging.String(logging.FieldShop, change.ShopName))

		seen, err := d.repo.ChangeRecorded(ctx, change.CardID, change.ShopID, change.OldPrice, change.NewPrice, recentStart)
		if err != nil {
			return res, err
		}
		if seen {
			res.Duplicates++
			logger.Debug("change already recorded", logging.Int("old", change.OldPrice), logging.Int("new", change.NewPrice))
			continue
		}

		watchers, err := d.repo.Watchers(ctx, change.CardID)
		if err != nil {
			return res, err
		}
		rec := store.ChangeRecord{Change: change}
		for _, w := range watchers {
			if Notify(w, change) {
				rec.Notifications = append(rec.Notifications, NotificationFor(w.UserID, change))
			}
		}
		if !opts.NoPostQueue && !opts.SummaryOnly && d.LargeSwing(change) {
			post := SinglePost(change)
			rec.Post = &post
		}

		logger.Info("price change detected",
			logging.String("card", change.CardName),
			logging.Int("old", change.OldPrice),
			logging.Int("new", change.NewPrice),
			logging.Int("amount", change.ChangeAmount),
			logging.Float64("percent", change.ChangePercent),
			logging.Int("notifications", len(rec.Notifications)),
			logging.Bool("post", rec.Post != nil),
			logging.Bool("dry_run", opts.DryRun))

		if !opts.DryRun {
			id, err := d.repo.RecordChange(ctx, rec)
			if err != nil {
				return res, err
			}
			change.ID = id
		}
		res.Changes = append(res.Changes, change)
		res.Notifications += len(rec.Notifications)
		if rec.Post != nil {
			res.Posts++
		}
	}

	if !opts.NoPostQueue && d.thresholds.SummaryMinChanges > 0 && len(res.Changes) >= d.thresholds.SummaryMinChanges {
		post := SummaryPost(res.Changes, d.thresholds.SummaryTopMovers)
		if !opts.DryRun {
			if err := d.repo.EnqueuePost(ctx, post); err != nil {
				return res, err
			}
		}
		res.Summary = true
		res.Posts++
	}

	d.logger.Info("change sweep complete",
		logging.Int("watched_moves", len(moves)),
		logging.Int("changes", len(res.Changes)),
		logging.Int("duplicates", res.Duplicates),
		logging.Int("notifications", res.Notifications),
		logging.Int("posts", res.Posts),
		logging.Bool("dry_run", opts.DryRun))
	return res, nil
}
