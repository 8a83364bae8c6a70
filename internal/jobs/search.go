package jobs

import (
	"context"
	"errors"
	"strings"

	"tcgprice/internal/identity"
	"tcgprice/internal/logging"
	"tcgprice/internal/store"
)

// QueueSourceSearch tags queue items created by sparse local searches.
const QueueSourceSearch = "search"

// SearchResult is the answer to a local price search.
type SearchResult struct {
	Quotes   []store.PriceQuote
	Enqueued bool
}

// Search looks up the latest prices for keyword and logs the search. When
// fewer than search.min_results quotes are found the keyword is queued for a
// background fetch.
func (r *Runner) Search(ctx context.Context, keyword string, limit int) (SearchResult, error) {
	var res SearchResult
	keyword = strings.TrimSpace(keyword)
	normalized := identity.Normalize(keyword)
	if normalized == "" {
		return res, errors.New("search keyword is empty")
	}
	if limit <= 0 {
		limit = r.cfg.Search.ResultLimit
	}
	quotes, err := r.store.SearchLatestPrices(ctx, normalized, limit)
	if err != nil {
		return res, err
	}
	res.Quotes = quotes
	if err := r.store.RecordSearch(ctx, keyword, normalized, len(quotes)); err != nil {
		return res, err
	}
	if len(quotes) < r.cfg.Search.MinResults {
		_, ok, err := r.store.Enqueue(ctx, keyword, QueueSourceSearch, r.cfg.Search.EnqueuePriority)
		if err != nil {
			return res, err
		}
		res.Enqueued = ok
		r.logger.Info("sparse search queued for fetch",
			logging.String(logging.FieldKeyword, keyword),
			logging.Int("results", len(quotes)),
			logging.Bool("queued", ok))
	}
	return res, nil
}
