package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tcgprice/internal/crawl"
	"tcgprice/internal/detect"
	"tcgprice/internal/fetchqueue"
	"tcgprice/internal/identity"
	"tcgprice/internal/ingest"
	"tcgprice/internal/joblock"
	"tcgprice/internal/logging"
	"tcgprice/internal/notifications"
	"tcgprice/internal/popular"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
)

// CrawlOptions selects what a crawl run covers.
type CrawlOptions struct {
	// Shop is a source key, or "" / "all" for every enabled source.
	Shop string
	// Pages overrides the per-run page budget when positive.
	Pages int
	// NewArrivals crawls the new-arrivals pages instead of the catalog cursor.
	NewArrivals bool
}

func (r *Runner) pipeline(logger *slog.Logger) *ingest.Pipeline {
	return ingest.New(r.store, logger)
}

func (r *Runner) shopFor(ctx context.Context, catalog source.Catalog) (*store.Shop, error) {
	shop, err := r.store.ShopByKey(ctx, catalog.Key())
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, fmt.Errorf("shop %q is not seeded", catalog.Key())
	}
	return shop, nil
}

// Crawl runs the resumable catalog crawl for the selected sources in order.
// A fetch failure ends that source's run with its cursor untouched; the other
// sources still run and the job reports the failures together. Each source
// gets its own batch log row.
func (r *Runner) Crawl(ctx context.Context, opts CrawlOptions) (Summary, error) {
	return r.run(ctx, joblock.ClassCrawl, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		catalogs, err := r.registry.Select(opts.Shop)
		if err != nil {
			return err
		}
		if len(catalogs) == 1 {
			sum.Shop = catalogs[0].Key()
		}
		crawler := crawl.New(r.store, r.pipeline(logger), logger,
			crawl.WithClock(r.store.Now),
			crawl.WithPageInterval(seconds(r.cfg.Crawl.PageIntervalSeconds)))

		var failures []error
		for i, catalog := range catalogs {
			if i > 0 {
				if err := source.SleepWithContext(ctx, seconds(r.cfg.Crawl.PageIntervalSeconds)); err != nil {
					return err
				}
			}
			shop, err := r.shopFor(ctx, catalog)
			if err != nil {
				return err
			}
			started := r.store.Now()
			var res crawl.Result
			if opts.NewArrivals {
				pager, ok := catalog.NewArrivals()
				if !ok {
					logger.Info("source has no new arrivals listing", logging.String(logging.FieldShop, catalog.Key()))
					continue
				}
				pages := r.cfg.Crawl.NewArrivalsPages
				if opts.Pages > 0 {
					pages = opts.Pages
				}
				res, err = crawler.NewArrivals(ctx, pager, shop, pages)
			} else {
				pages := r.cfg.Crawl.MaxPagesPerRun
				if opts.Pages > 0 {
					pages = opts.Pages
				}
				res, err = crawler.Run(ctx, catalog, shop, pages)
			}
			sum.Pages += res.Pages
			sum.addStats(res.Stats)
			r.logShop(ctx, logger, sum, store.BatchLog{
				ShopName:       catalog.Key(),
				PagesProcessed: res.Pages,
				CardsTotal:     res.Stats.Total,
				CardsNew:       res.Stats.New,
				CardsUpdated:   res.Stats.Updated,
				StartedAt:      started,
			}, err)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				failures = append(failures, err)
			}
		}
		if len(failures) > 0 {
			return errors.Join(failures...)
		}
		return nil
	})
}

// CrawlReset rewinds the catalog cursor of the selected sources.
func (r *Runner) CrawlReset(ctx context.Context, shopKey string) (Summary, error) {
	return r.run(ctx, joblock.ClassCrawl, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		catalogs, err := r.registry.Select(shopKey)
		if err != nil {
			return err
		}
		crawler := crawl.New(r.store, r.pipeline(logger), logger, crawl.WithClock(r.store.Now))
		var reset []string
		for _, catalog := range catalogs {
			shop, err := r.shopFor(ctx, catalog)
			if err != nil {
				return err
			}
			if _, err := crawler.Reset(ctx, shop); err != nil {
				return err
			}
			reset = append(reset, shop.Key)
		}
		sum.Message = "reset " + strings.Join(reset, ", ")
		return nil
	})
}

// CrawlStatus reports stored cursors. It takes no lock.
func (r *Runner) CrawlStatus(ctx context.Context) ([]crawl.StatusRow, error) {
	return crawl.Status(ctx, r.store)
}

// Fetch searches every enabled source for each keyword. An empty list falls
// back to the configured keywords.
func (r *Runner) Fetch(ctx context.Context, keywords []string) (Summary, error) {
	if len(keywords) == 0 {
		keywords = r.cfg.Fetch.Keywords
	}
	return r.run(ctx, joblock.ClassFetch, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		if len(keywords) == 0 {
			sum.Message = "no keywords configured"
			logger.Info("no keywords to fetch")
			return nil
		}
		pipeline := r.pipeline(logger)
		catalogs := r.registry.All()
		for i, keyword := range keywords {
			if i > 0 {
				if err := source.SleepWithContext(ctx, seconds(r.cfg.Fetch.KeywordIntervalSeconds)); err != nil {
					return err
				}
			}
			stats := pipeline.Search(ctx, catalogs, keyword, nil)
			sum.addStats(stats)
			logger.Info("keyword fetched",
				logging.String(logging.FieldKeyword, keyword),
				logging.Int("listings", stats.Total),
				logging.Int("new", stats.New),
				logging.Int("updated", stats.Updated))
		}
		sum.Message = fmt.Sprintf("%d keywords", len(keywords))
		return nil
	})
}

// ProcessQueue drains up to limit fetch queue items. A non-positive limit
// uses the configured batch limit.
func (r *Runner) ProcessQueue(ctx context.Context, limit int) (Summary, error) {
	if limit <= 0 {
		limit = r.cfg.Queue.BatchLimit
	}
	return r.run(ctx, joblock.ClassQueue, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		handler := fetchqueue.SearchHandler(r.pipeline(logger), r.registry.All())
		processor := fetchqueue.NewProcessor(r.store, handler, fetchqueue.Options{
			Limit:       limit,
			CleanupDays: r.cfg.Queue.CleanupDays,
			Interval:    seconds(r.cfg.Queue.ItemIntervalSeconds),
		}, logger)
		res, err := processor.Run(ctx)
		sum.addStats(res.Stats)
		sum.Message = fmt.Sprintf("%d processed, %d failed, %d cleaned", res.Processed, res.Failed, res.Cleaned)
		return err
	})
}

// PopularOptions selects what a popular run does.
type PopularOptions struct {
	Limit int
	// Refresh recomputes the popular flags before fetching.
	Refresh bool
}

// Popular refreshes prices of popular cards.
func (r *Runner) Popular(ctx context.Context, opts PopularOptions) (Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = r.cfg.Popular.BatchLimit
	}
	return r.run(ctx, joblock.ClassPopular, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		refresher := r.popularRefresher(logger)
		if opts.Refresh {
			count, err := refresher.Refresh(ctx)
			if err != nil {
				return err
			}
			sum.Message = fmt.Sprintf("%d popular cards; ", count)
		}
		res, err := refresher.Run(ctx, limit)
		sum.addStats(res.Stats)
		sum.Message += fmt.Sprintf("%d cards refreshed", res.Cards)
		return err
	})
}

func (r *Runner) popularRefresher(logger *slog.Logger) *popular.Refresher {
	cfg := r.cfg.Popular
	return popular.New(r.store, r.pipeline(logger), r.registry.All(), popular.Options{
		SearchThreshold: cfg.SearchThreshold,
		ClickThreshold:  cfg.ClickThreshold,
		WindowDays:      cfg.WindowDays,
		MaxPopular:      cfg.MaxPopular,
		StaleAfter:      seconds(cfg.StaleHours * 3600),
		Interval:        seconds(cfg.CardIntervalSeconds),
	}, logger)
}

// Notify runs the price change sweep and reports movers to the operator.
func (r *Runner) Notify(ctx context.Context, opts detect.Options) (Summary, detect.Result, error) {
	var result detect.Result
	sum, err := r.run(ctx, joblock.ClassNotify, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		cfg := r.cfg.Detect
		detector := detect.New(r.store, detect.Thresholds{
			RecentWindow:      seconds(cfg.RecentWindowHours * 3600),
			PostAmount:        cfg.PostAmountThreshold,
			PostPercent:       cfg.PostPercentThreshold,
			SummaryMinChanges: cfg.SummaryMinChanges,
			SummaryTopMovers:  cfg.SummaryTopMovers,
		}, logger)
		var err error
		result, err = detector.Sweep(ctx, opts)
		sum.Total = len(result.Changes)
		sum.Message = fmt.Sprintf("%d changes, %d notifications, %d posts", len(result.Changes), result.Notifications, result.Posts)
		if opts.DryRun {
			sum.Message = "dry run: " + sum.Message
		}
		if err == nil && !opts.DryRun && len(result.Changes) > 0 {
			top := detect.SummaryPost(result.Changes, cfg.SummaryTopMovers)
			r.publish(ctx, logger, notifications.EventPriceMovers, notifications.Payload{
				"count":   len(result.Changes),
				"summary": top.Content,
			})
		}
		return err
	})
	return sum, result, err
}

// Link backfills codes onto variant cards, optionally re-extracting every
// card's identity first.
func (r *Runner) Link(ctx context.Context, reextract bool) (Summary, error) {
	return r.run(ctx, joblock.ClassLink, func(ctx context.Context, logger *slog.Logger, sum *Summary) error {
		linker := identity.NewLinker(r.store, logger)
		if reextract {
			res, err := linker.Reextract(ctx)
			if err != nil {
				return err
			}
			sum.Message = fmt.Sprintf("%d cards re-extracted, %d codes filled; ", res.Cards, res.CodesFilled)
		}
		res, err := linker.LinkVariants(ctx)
		sum.Total = res.Candidates
		sum.Updated = res.Linked
		sum.Message += fmt.Sprintf("%d linked, %d ambiguous, %d unmatched", res.Linked, res.Ambiguous, res.Unmatched)
		return err
	})
}
