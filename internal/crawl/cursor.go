package crawl

import (
	"time"

	"tcgprice/internal/store"
)

// Cursor types persisted in batch_progress.
const (
	CursorCatalog = "catalog"
	DefaultKey    = "all"
)

// Cursor is the resumable position of a shop crawl. CurrentPage is the next
// page to fetch. Cursors are values: Advance and Reset return a new cursor.
type Cursor struct {
	ShopID        int64
	Type          string
	Key           string
	CurrentPage   int
	TotalPages    int
	Status        store.ProgressStatus
	LastFetchedAt *time.Time
}

// NewCursor returns an uninitialized cursor positioned at page 1.
func NewCursor(shopID int64, cursorType, key string) Cursor {
	return Cursor{
		ShopID:      shopID,
		Type:        cursorType,
		Key:         key,
		CurrentPage: 1,
		Status:      store.ProgressPending,
	}
}

// FromProgress rebuilds a cursor from its stored row. A nil row yields a
// fresh cursor.
func FromProgress(p *store.CrawlProgress, shopID int64, cursorType, key string) Cursor {
	if p == nil {
		return NewCursor(shopID, cursorType, key)
	}
	return Cursor{
		ShopID:        p.ShopID,
		Type:          p.CursorType,
		Key:           p.CursorKey,
		CurrentPage:   p.CurrentPage,
		TotalPages:    p.TotalPages,
		Status:        p.Status,
		LastFetchedAt: p.LastFetchedAt,
	}
}

// Page returns the page to fetch next, defaulting to 1.
func (c Cursor) Page() int {
	if c.CurrentPage < 1 {
		return 1
	}
	return c.CurrentPage
}

// Advance records that fetchedPage was processed. Reaching the last page
// wraps the cursor back to page 1 and pending. An unknown total (<= 0) is
// treated as the end of the catalog.
func (c Cursor) Advance(fetchedPage, totalPages int, now time.Time) Cursor {
	next := c
	if totalPages <= 0 {
		totalPages = fetchedPage
	}
	next.TotalPages = totalPages
	fetchedAt := now
	next.LastFetchedAt = &fetchedAt
	if fetchedPage >= totalPages {
		next.CurrentPage = 1
		next.Status = store.ProgressPending
		return next
	}
	next.CurrentPage = fetchedPage + 1
	next.Status = store.ProgressInProgress
	return next
}

// Reset forces the cursor back to the start for an operator re-crawl.
func (c Cursor) Reset() Cursor {
	next := c
	next.CurrentPage = 1
	next.Status = store.ProgressPending
	next.LastFetchedAt = nil
	return next
}

// Wrapped reports whether the cursor sits at the start of a new cycle.
func (c Cursor) Wrapped() bool {
	return c.Status == store.ProgressPending && c.Page() == 1
}

// Progress converts the cursor to its stored form.
func (c Cursor) Progress() store.CrawlProgress {
	return store.CrawlProgress{
		ShopID:        c.ShopID,
		CursorType:    c.Type,
		CursorKey:     c.Key,
		CurrentPage:   c.Page(),
		TotalPages:    c.TotalPages,
		Status:        c.Status,
		LastFetchedAt: c.LastFetchedAt,
	}
}
