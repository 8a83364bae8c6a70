package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tcgprice/internal/crawl"
	"tcgprice/internal/ingest"
	"tcgprice/internal/logging"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
	"tcgprice/internal/testsupport"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestCursorAdvanceThroughCycle(t *testing.T) {
	cursor := crawl.NewCursor(1, crawl.CursorCatalog, crawl.DefaultKey)
	if cursor.Page() != 1 {
		t.Fatalf("new cursor should start at page 1, got %d", cursor.Page())
	}
	for page := 1; page <= 3; page++ {
		cursor = cursor.Advance(page, 5, baseTime)
	}
	if cursor.CurrentPage != 4 || cursor.Status != store.ProgressInProgress {
		t.Fatalf("after page 3 of 5 expected page 4 in_progress, got %d %s", cursor.CurrentPage, cursor.Status)
	}
	for page := 4; page <= 5; page++ {
		cursor = cursor.Advance(page, 5, baseTime)
	}
	if cursor.CurrentPage != 1 || cursor.Status != store.ProgressPending || !cursor.Wrapped() {
		t.Fatalf("after page 5 of 5 expected wrap to 1 pending, got %d %s", cursor.CurrentPage, cursor.Status)
	}
	if cursor.LastFetchedAt == nil || !cursor.LastFetchedAt.Equal(baseTime) {
		t.Fatalf("expected last fetched stamp, got %v", cursor.LastFetchedAt)
	}
}

func TestCursorEdgeCases(t *testing.T) {
	var zero crawl.Cursor
	if zero.Page() != 1 {
		t.Fatalf("uninitialized cursor should default to page 1, got %d", zero.Page())
	}
	unknown := crawl.NewCursor(1, crawl.CursorCatalog, crawl.DefaultKey).Advance(1, 0, baseTime)
	if !unknown.Wrapped() || unknown.TotalPages != 1 {
		t.Fatalf("unknown total should be treated as the last page: %+v", unknown)
	}
	mid := crawl.NewCursor(1, crawl.CursorCatalog, crawl.DefaultKey).Advance(2, 9, baseTime)
	reset := mid.Reset()
	if reset.CurrentPage != 1 || reset.Status != store.ProgressPending || reset.LastFetchedAt != nil {
		t.Fatalf("reset should rewind fully: %+v", reset)
	}
	if mid.CurrentPage != 3 {
		t.Fatalf("reset must not mutate the original cursor: %+v", mid)
	}
}

type crawlEnv struct {
	st      *store.Store
	shop    *store.Shop
	catalog *testsupport.FakeCatalog
	crawler *crawl.Crawler
}

func newCrawlEnv(t *testing.T, totalPages int) *crawlEnv {
	t.Helper()
	clock := testsupport.NewClock(baseTime)
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg, store.WithClock(clock.Now), store.WithLocation(time.UTC))
	catalog := testsupport.NewFakeCatalog("alpha", "Alpha Cards")
	catalog.TotalPages = totalPages
	for page := 1; page <= totalPages; page++ {
		catalog.Pages[page] = []source.Listing{testsupport.Listing(fmt.Sprintf("Card %02d", page), 100*page)}
	}
	return &crawlEnv{
		st:      st,
		shop:    testsupport.MustShop(t, st, "alpha", "Alpha Cards"),
		catalog: catalog,
		crawler: crawl.New(st, ingest.New(st, logging.NewNop()), logging.NewNop(), crawl.WithClock(clock.Now)),
	}
}

func (e *crawlEnv) stored(t *testing.T) *store.CrawlProgress {
	t.Helper()
	p, err := e.st.LoadCrawlProgress(context.Background(), e.shop.ID, crawl.CursorCatalog, crawl.DefaultKey)
	if err != nil {
		t.Fatalf("LoadCrawlProgress: %v", err)
	}
	return p
}

func TestRunStopsAtPageBudgetAndResumes(t *testing.T) {
	env := newCrawlEnv(t, 5)
	ctx := context.Background()

	res, err := env.crawler.Run(ctx, env.catalog, env.shop, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Pages != 3 || res.Wrapped || res.Stats.New != 3 {
		t.Fatalf("unexpected first run: %+v", res)
	}
	if p := env.stored(t); p == nil || p.CurrentPage != 4 || p.Status != store.ProgressInProgress || p.TotalPages != 5 {
		t.Fatalf("unexpected stored cursor: %#v", p)
	}

	res, err = env.crawler.Run(ctx, env.catalog, env.shop, 3)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.Pages != 2 || !res.Wrapped {
		t.Fatalf("second run should finish the cycle after 2 pages: %+v", res)
	}
	if p := env.stored(t); p.CurrentPage != 1 || p.Status != store.ProgressPending {
		t.Fatalf("expected wrapped cursor, got %#v", p)
	}
	want := []int{1, 2, 3, 4, 5}
	got := env.catalog.Fetched()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("fetched pages %v, want %v", got, want)
	}
	if n, _ := env.st.CountCards(ctx); n != 5 {
		t.Fatalf("expected 5 cards, got %d", n)
	}
}

func TestRunFetchErrorKeepsCursor(t *testing.T) {
	env := newCrawlEnv(t, 5)
	ctx := context.Background()
	env.catalog.PageErrors[3] = errors.New("connection reset")

	res, err := env.crawler.Run(ctx, env.catalog, env.shop, 5)
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages before the failure, got %d", res.Pages)
	}
	if p := env.stored(t); p.CurrentPage != 3 || p.Status != store.ProgressInProgress {
		t.Fatalf("failed page must be retried next run, got %#v", p)
	}

	delete(env.catalog.PageErrors, 3)
	if _, err := env.crawler.Run(ctx, env.catalog, env.shop, 1); err != nil {
		t.Fatalf("retry Run failed: %v", err)
	}
	fetched := env.catalog.Fetched()
	if fetched[len(fetched)-1] != 3 {
		t.Fatalf("expected retry of page 3, got %v", fetched)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	env := newCrawlEnv(t, 5)
	crawler := crawl.New(env.st, ingest.New(env.st, logging.NewNop()), logging.NewNop(), crawl.WithPageInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := crawler.Run(ctx, env.catalog, env.shop, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Pages != 0 || len(env.catalog.Fetched()) != 0 {
		t.Fatalf("cancelled run must not fetch, got %d pages", res.Pages)
	}
}

func TestNewArrivalsLeavesCursorAlone(t *testing.T) {
	env := newCrawlEnv(t, 2)
	ctx := context.Background()

	res, err := env.crawler.NewArrivals(ctx, env.catalog, env.shop, 5)
	if err != nil {
		t.Fatalf("NewArrivals failed: %v", err)
	}
	if res.Pages != 2 {
		t.Fatalf("expected early stop at the last page, got %d", res.Pages)
	}
	if p := env.stored(t); p != nil {
		t.Fatalf("new arrivals must not create a cursor: %#v", p)
	}
}

func TestResetAndStatus(t *testing.T) {
	env := newCrawlEnv(t, 4)
	ctx := context.Background()
	if _, err := env.crawler.Run(ctx, env.catalog, env.shop, 2); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rows, err := crawl.Status(ctx, env.st)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ShopKey != "alpha" || rows[0].CurrentPage != 3 || rows[0].Percent != 50 {
		t.Fatalf("unexpected status rows: %+v", rows)
	}

	cursor, err := env.crawler.Reset(ctx, env.shop)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if cursor.CurrentPage != 1 || cursor.TotalPages != 4 {
		t.Fatalf("unexpected reset cursor: %+v", cursor)
	}
	if p := env.stored(t); p.CurrentPage != 1 || p.Status != store.ProgressPending || p.LastFetchedAt != nil {
		t.Fatalf("reset not persisted: %#v", p)
	}
}
