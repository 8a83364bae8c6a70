package crawl

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

// CursorRepository persists crawl cursors.
type CursorRepository interface {
	LoadCrawlProgress(ctx context.Context, shopID int64, cursorType, cursorKey string) (*store.CrawlProgress, error)
	SaveCrawlProgress(ctx context.Context, p store.CrawlProgress) error
}

// Ingester stores a page of listings for a shop.
type Ingester interface {
	Listings(ctx context.Context, shop *store.Shop, listings []source.Listing, keep ingest.Filter) ingest.Stats
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithClock overrides the time source used for last_fetched_at.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPageInterval sets the fixed delay between page fetches.
func WithPageInterval(d time.Duration) Option {
	return func(c *Crawler) { c.interval = d }
}

// Crawler drives resumable page-by-page crawls.
type Crawler struct {
	repo     CursorRepository
	ingester Ingester
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// New constructs a crawler.
func New(repo CursorRepository, ingester Ingester, logger *slog.Logger, opts ...Option) *Crawler {
	c := &Crawler{
		repo:     repo,
		ingester: ingester,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result summarizes one crawl run for a shop.
type Result struct {
	Shop    string
	Pages   int
	Stats   ingest.Stats
	Cursor  Cursor
	Wrapped bool
}

// Run crawls up to maxPages pages of src starting at the stored cursor. The
// cursor is saved after each page. A page-fetch error ends the run without
// touching the cursor, so the next run retries the same page.
func (c *Crawler) Run(ctx context.Context, src source.PageSource, shop *store.Shop, maxPages int) (Result, error) {
	if shop == nil {
		return Result{}, errors.New("crawl: shop is required")
	}
	if maxPages < 1 {
		maxPages = 1
	}
	logger := c.logger.With(logging.String(logging.FieldShop, shop.Key))
	res := Result{Shop: shop.Key}

	stored, err := c.repo.LoadCrawlProgress(ctx, shop.ID, CursorCatalog, DefaultKey)
	if err != nil {
		return res, err
	}
	cursor := FromProgress(stored, shop.ID, CursorCatalog, DefaultKey)
	res.Cursor = cursor
	logger.Info("crawl starting",
		logging.Int(logging.FieldPage, cursor.Page()),
		logging.Int("total_pages", cursor.TotalPages),
		logging.Int("max_pages", maxPages))

	for res.Pages < maxPages {
		if res.Pages > 0 {
			if err := source.SleepWithContext(ctx, c.interval); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := cursor.Page()
		listings, total, err := src.FetchPage(ctx, page)
		if err != nil {
			return res, fmt.Errorf("fetch %s page %d: %w", shop.Key, page, err)
		}
		stats := c.ingester.Listings(ctx, shop, listings, nil)
		res.Stats.Add(stats)

		cursor = cursor.Advance(page, total, c.now())
		if err := c.repo.SaveCrawlProgress(ctx, cursor.Progress()); err != nil {
			return res, err
		}
		res.Cursor = cursor
		res.Pages++
		logger.Info("page crawled",
			logging.Int(logging.FieldPage, page),
			logging.Int("total_pages", cursor.TotalPages),
			logging.Int("listings", stats.Total),
			logging.Int("new", stats.New),
			logging.Int("updated", stats.Updated))

		if cursor.Wrapped() {
			res.Wrapped = true
			logger.Info("crawl cycle complete", logging.Int("total_pages", cursor.TotalPages))
			break
		}
	}
	return res, nil
}

// NewArrivals ingests pages 1..pages of src without touching any cursor,
// stopping early at the last page.
func (c *Crawler) NewArrivals(ctx context.Context, src source.PageSource, shop *store.Shop, pages int) (Result, error) {
	if shop == nil {
		return Result{}, errors.New("crawl: shop is required")
	}
	logger := c.logger.With(logging.String(logging.FieldShop, shop.Key), logging.String("mode", "new_arrivals"))
	res := Result{Shop: shop.Key}
	for page := 1; page <= pages; page++ {
		if page > 1 {
			if err := source.SleepWithContext(ctx, c.interval); err != nil {
				return res, err
			}
		}
		listings, total, err := src.FetchPage(ctx, page)
		if err != nil {
			return res, fmt.Errorf("fetch %s new arrivals page %d: %w", shop.Key, page, err)
		}
		stats := c.ingester.Listings(ctx, shop, listings, nil)
		res.Stats.Add(stats)
		res.Pages++
		logger.Info("page crawled",
			logging.Int(logging.FieldPage, page),
			logging.Int("listings", stats.Total),
			logging.Int("new", stats.New))
		if total > 0 && page >= total {
			break
		}
	}
	return res, nil
}

// Reset rewinds the stored cursor for shop to page 1.
func (c *Crawler) Reset(ctx context.Context, shop *store.Shop) (Cursor, error) {
	stored, err := c.repo.LoadCrawlProgress(ctx, shop.ID, CursorCatalog, DefaultKey)
	if err != nil {
		return Cursor{}, err
	}
	cursor := FromProgress(stored, shop.ID, CursorCatalog, DefaultKey).Reset()
	if err := c.repo.SaveCrawlProgress(ctx, cursor.Progress()); err != nil {
		return Cursor{}, err
	}
	c.logger.Info("cursor reset", logging.String(logging.FieldShop, shop.Key))
	return cursor, nil
}
