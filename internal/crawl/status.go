package crawl

import (
	"context"
	"time"

	"tcgprice/internal/store"
)

// ProgressLister reads every stored cursor of a type.
type ProgressLister interface {
	ListCrawlProgress(ctx context.Context, cursorType string) ([]store.CrawlProgressRow, error)
}

// StatusRow is one line of the crawl status report.
type StatusRow struct {
	ShopKey       string
	ShopName      string
	CurrentPage   int
	TotalPages    int
	Percent       float64
	Status        store.ProgressStatus
	LastFetchedAt *time.Time
}

// Status reports the catalog cursor of every shop that has one.
func Status(ctx context.Context, lister ProgressLister) ([]StatusRow, error) {
	rows, err := lister.ListCrawlProgress(ctx, CursorCatalog)
	if err != nil {
		return nil, err
	}
	out := make([]StatusRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, StatusRow{
			ShopKey:       row.ShopKey,
			ShopName:      row.ShopName,
			CurrentPage:   row.CurrentPage,
			TotalPages:    row.TotalPages,
			Percent:       percentDone(row.CrawlProgress),
			Status:        row.Status,
			LastFetchedAt: row.LastFetchedAt,
		})
	}
	return out, nil
}

// percentDone counts pages already fetched in the current cycle.
func percentDone(p store.CrawlProgress) float64 {
	if p.TotalPages <= 0 || p.Status != store.ProgressInProgress {
		return 0
	}
	done := p.CurrentPage - 1
	if done < 0 {
		done = 0
	}
	return float64(done) / float64(p.TotalPages) * 100
}
