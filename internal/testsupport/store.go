package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"tcgprice/internal/config"
	"tcgprice/internal/store"
)

// Clock is a settable time source for store tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock fixed at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current clock reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustShop seeds a shop and returns it.
func MustShop(t testing.TB, st *store.Store, key, name string) *store.Shop {
	t.Helper()

	ctx := context.Background()
	if err := st.SeedShops(ctx, []store.ShopSeed{{Key: key, Name: name}}); err != nil {
		t.Fatalf("SeedShops: %v", err)
	}
	shop, err := st.ShopByKey(ctx, key)
	if err != nil || shop == nil {
		t.Fatalf("ShopByKey(%s): %v %#v", key, err, shop)
	}
	return shop
}

// MustCard creates a card with only its name and normalized name set.
func MustCard(t testing.TB, st *store.Store, name string) *store.Card {
	t.Helper()

	card, _, err := st.GetOrCreateCard(context.Background(), store.CardSeed{Name: name, NormalizedName: name})
	if err != nil {
		t.Fatalf("GetOrCreateCard(%s): %v", name, err)
	}
	return card
}

// MustPrice records a price observation, failing the test on error.
func MustPrice(t testing.TB, st *store.Store, cardID, shopID int64, price int) bool {
	t.Helper()

	changed, err := st.UpsertIfChanged(context.Background(), store.PriceObservation{CardID: cardID, ShopID: shopID, Price: price})
	if err != nil {
		t.Fatalf("UpsertIfChanged: %v", err)
	}
	return changed
}
