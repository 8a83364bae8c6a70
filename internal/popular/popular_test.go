package popular_test

import (
	"context"
	"testing"
	"time"

	"tcgprice/internal/ingest"
	"tcgprice/internal/logging"
	"tcgprice/internal/popular"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
	"tcgprice/internal/testsupport"
)

func TestRefreshAndRun(t *testing.T) {
	clock := testsupport.NewClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t), store.WithClock(clock.Now), store.WithLocation(time.UTC))
	ctx := context.Background()
	shop := testsupport.MustShop(t, st, "alpha", "Alpha Cards")

	hot := testsupport.MustCard(t, st, "pikachu")
	warm := testsupport.MustCard(t, st, "eevee")
	testsupport.MustCard(t, st, "ditto")
	for i := 0; i < 2; i++ {
		if err := st.RecordSearch(ctx, "Pikachu", "pikachu", 1); err != nil {
			t.Fatalf("RecordSearch: %v", err)
		}
	}
	if err := st.RecordClick(ctx, warm.ID, shop.ID); err != nil {
		t.Fatalf("RecordClick: %v", err)
	}

	catalog := testsupport.NewFakeCatalog("alpha", "Alpha Cards")
	catalog.Results["pikachu"] = []source.Listing{
		testsupport.Listing("pikachu", 1500),
		testsupport.Listing("raichu", 900),
	}
	refresher := popular.New(st, ingest.New(st, logging.NewNop()), []source.Catalog{catalog}, popular.Options{
		SearchThreshold: 2,
		ClickThreshold:  1,
		WindowDays:      7,
		MaxPopular:      10,
		StaleAfter:      24 * time.Hour,
	}, logging.NewNop())

	count, err := refresher.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 popular cards, got %d", count)
	}

	res, err := refresher.Run(ctx, 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Cards != 2 || res.Stats.Updated != 1 || res.Stats.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if latest, err := st.LatestPrice(ctx, hot.ID, shop.ID); err != nil || latest == nil || latest.Price != 1500 {
		t.Fatalf("expected refreshed price, got %#v %v", latest, err)
	}
	if card, _ := st.CardByName(ctx, "raichu"); card != nil {
		t.Fatal("listings not matching the card name must be skipped")
	}

	clock.Advance(time.Hour)
	res, err = refresher.Run(ctx, 10)
	if err != nil || res.Cards != 0 {
		t.Fatalf("fresh cards should not be refetched: %+v %v", res, err)
	}
	clock.Advance(24 * time.Hour)
	if res, err = refresher.Run(ctx, 1); err != nil || res.Cards != 1 {
		t.Fatalf("stale cards should be refetched within the limit: %+v %v", res, err)
	}
}
