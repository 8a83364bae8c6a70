// Package popular keeps prices of frequently searched or clicked cards fresh.
package popular

import (
	"context"
	"log/slog"
	"time"

	"tcgprice/internal/ingest"
	"tcgprice/internal/logging"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
)

// Repository is the persistence the refresher needs.
type Repository interface {
	RefreshPopular(ctx context.Context, rule store.PopularityRule) (int, error)
	PopularCardsNeedingRefresh(ctx context.Context, staleBefore time.Time, limit int) ([]*store.Card, error)
	TouchCardFetched(ctx context.Context, cardID int64) error
	Now() time.Time
}

// Searcher ingests search results for a keyword across catalogs.
type Searcher interface {
	Search(ctx context.Context, catalogs []source.Catalog, keyword string, keep ingest.Filter) ingest.Stats
}

// Options configures scoring and pacing.
type Options struct {
	SearchThreshold int
	ClickThreshold  int
	WindowDays      int
	MaxPopular      int
	StaleAfter      time.Duration
	Interval        time.Duration
}

// Result summarizes a refresh run.
type Result struct {
	Cards int
	Stats ingest.Stats
}

// Refresher re-fetches prices for popular cards.
type Refresher struct {
	repo     Repository
	searcher Searcher
	catalogs []source.Catalog
	opts     Options
	logger   *slog.Logger
}

// New constructs a refresher.
func New(repo Repository, searcher Searcher, catalogs []source.Catalog, opts Options, logger *slog.Logger) *Refresher {
	return &Refresher{
		repo:     repo,
		searcher: searcher,
		catalogs: catalogs,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "popular"),
	}
}

// Refresh recomputes which cards are popular and returns how many are.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	count, err := r.repo.RefreshPopular(ctx, store.PopularityRule{
		Since:           r.repo.Now().AddDate(0, 0, -r.opts.WindowDays),
		SearchThreshold: r.opts.SearchThreshold,
		ClickThreshold:  r.opts.ClickThreshold,
		MaxPopular:      r.opts.MaxPopular,
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("popular cards refreshed", logging.Int("popular", count))
	return count, nil
}

// Run searches every catalog for up to limit stale popular cards, keeping
// only listings whose name contains the card name.
func (r *Refresher) Run(ctx context.Context, limit int) (Result, error) {
	var res Result
	staleBefore := r.repo.Now().Add(-r.opts.StaleAfter)
	cards, err := r.repo.PopularCardsNeedingRefresh(ctx, staleBefore, limit)
	if err != nil {
		return res, err
	}
	if len(cards) == 0 {
		r.logger.Info("no popular cards need a refresh")
		return res, nil
	}
	for i, card := range cards {
		if i > 0 {
			if err := source.SleepWithContext(ctx, r.opts.Interval); err != nil {
				return res, err
			}
		}
		stats := r.searcher.Search(ctx, r.catalogs, card.Name, ingest.NameContains(card.Name))
		res.Stats.Add(stats)
		if err := r.repo.TouchCardFetched(ctx, card.ID); err != nil {
			return res, err
		}
		res.Cards++
		r.logger.Debug("popular card refreshed",
			logging.Int64(logging.FieldCardID, card.ID),
			logging.Int("listings", stats.Total),
			logging.Int("updated", stats.Updated))
	}
	r.logger.Info("popular refresh complete",
		logging.Int("cards", res.Cards),
		logging.Int("updated", res.Stats.Updated))
	return res, nil
}
