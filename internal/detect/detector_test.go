package detect_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"tcgprice/internal/detect"
	"tcgprice/internal/logging"
	"tcgprice/internal/store"
	"tcgprice/internal/testsupport"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func defaultThresholds() detect.Thresholds {
	return detect.Thresholds{
		RecentWindow:      48 * time.Hour,
		PostAmount:        500,
		PostPercent:       20,
		SummaryMinChanges: 3,
		SummaryTopMovers:  5,
	}
}

type fixture struct {
	st    *store.Store
	clock *testsupport.Clock
	shop  *store.Shop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testsupport.NewClock(now)
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t), store.WithClock(clock.Now), store.WithLocation(time.UTC))
	return &fixture{st: st, clock: clock, shop: testsupport.MustShop(t, st, "alpha", "Alpha Cards")}
}

type point struct {
	age   time.Duration
	price int
}

// history records prices at the given ages, oldest first, then returns the
// clock to now.
func (f *fixture) history(t *testing.T, card *store.Card, points ...point) {
	t.Helper()
	for _, p := range points {
		f.clock.Set(now.Add(-p.age))
		testsupport.MustPrice(t, f.st, card.ID, f.shop.ID, p.price)
	}
	f.clock.Set(now)
}

func (f *fixture) watch(t *testing.T, userID int64, card *store.Card) {
	t.Helper()
	if err := f.st.AddFavorite(context.Background(), userID, card.ID); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
}

const day = 24 * time.Hour

func TestSweepDetectsRiseOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card := testsupport.MustCard(t, f.st, "Hero")
	f.history(t, card, point{6 * day, 1000}, point{4 * day, 1000}, point{0, 1200})
	f.watch(t, 1, card)

	detector := detect.New(f.st, defaultThresholds(), logging.NewNop())
	res, err := detector.Sweep(ctx, detect.Options{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(res.Changes) != 1 {
		t.Fatalf("expected one change, got %+v", res.Changes)
	}
	change := res.Changes[0]
	if change.ChangeAmount != 200 || change.ChangePercent != 20.0 || change.ID == 0 {
		t.Fatalf("unexpected change: %+v", change)
	}
	if res.Notifications != 1 || res.Posts != 1 || res.Summary {
		t.Fatalf("unexpected fan-out: %+v", res)
	}

	notes, err := f.st.ListNotifications(ctx, 1)
	if err != nil || len(notes) != 1 {
		t.Fatalf("expected one notification: %v %+v", err, notes)
	}
	if notes[0].Type != detect.TypePriceRise || notes[0].PriceChangeID != change.ID || !strings.Contains(notes[0].Message, "1,000円 → 1,200円") {
		t.Fatalf("unexpected notification: %+v", notes[0])
	}
	posts, err := f.st.ListPosts(ctx, "pending", 10)
	if err != nil || len(posts) != 1 || posts[0].PriceChangeID != change.ID {
		t.Fatalf("expected single post linked to the change: %v %+v", err, posts)
	}

	f.clock.Advance(time.Hour)
	again, err := detector.Sweep(ctx, detect.Options{})
	if err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if len(again.Changes) != 0 || again.Duplicates != 1 {
		t.Fatalf("same transition must not be recorded twice: %+v", again)
	}
}

func TestSweepFlatAndUnwatched(t *testing.T) {
	f := newFixture(t)
	flat := testsupport.MustCard(t, f.st, "Flat")
	f.history(t, flat, point{6 * day, 1000}, point{0, 1000})
	f.watch(t, 1, flat)
	unwatched := testsupport.MustCard(t, f.st, "Nobody")
	f.history(t, unwatched, point{6 * day, 1000}, point{0, 3000})
	fresh := testsupport.MustCard(t, f.st, "Fresh")
	f.history(t, fresh, point{0, 500})
	f.watch(t, 1, fresh)

	res, err := detect.New(f.st, defaultThresholds(), logging.NewNop()).Sweep(context.Background(), detect.Options{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("expected no changes, got %+v", res.Changes)
	}
}

func seedMovers(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	a := testsupport.MustCard(t, f.st, "Alpha")
	b := testsupport.MustCard(t, f.st, "Beta")
	c := testsupport.MustCard(t, f.st, "Gamma")
	f.history(t, a, point{5 * day, 1000}, point{time.Hour, 700})
	f.history(t, b, point{5 * day, 2000}, point{time.Hour, 2100})
	f.history(t, c, point{5 * day, 500}, point{time.Hour, 400})
	for _, card := range []*store.Card{a, b, c} {
		f.watch(t, 1, card)
	}
	f.watch(t, 2, a)
	f.watch(t, 3, b)
	if err := f.st.SetNotificationSettings(ctx, store.NotificationSettings{UserID: 2, SiteEnabled: true, PriceDropThreshold: 500}); err != nil {
		t.Fatalf("SetNotificationSettings: %v", err)
	}
	if err := f.st.SetNotificationSettings(ctx, store.NotificationSettings{UserID: 3, SiteEnabled: false}); err != nil {
		t.Fatalf("SetNotificationSettings: %v", err)
	}
}

func TestSweepFanOutAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedMovers(t, f)

	res, err := detect.New(f.st, defaultThresholds(), logging.NewNop()).Sweep(ctx, detect.Options{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(res.Changes) != 3 || res.Notifications != 3 || res.Posts != 3 || !res.Summary {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, user := range []int64{2, 3} {
		if notes, _ := f.st.ListNotifications(ctx, user); len(notes) != 0 {
			t.Fatalf("user %d should be filtered out, got %+v", user, notes)
		}
	}

	posts, err := f.st.ListPosts(ctx, "", 10)
	if err != nil || len(posts) != 3 {
		t.Fatalf("expected 2 single posts and a summary: %v %+v", err, posts)
	}
	summary := posts[len(posts)-1]
	if summary.PostType != detect.TypeSummary || summary.PriceChangeID != 0 {
		t.Fatalf("unexpected summary post: %+v", summary)
	}
	drops := strings.Index(summary.Content, "値下げ")
	rises := strings.Index(summary.Content, "値上げ")
	alpha := strings.Index(summary.Content, "Alpha")
	gamma := strings.Index(summary.Content, "Gamma")
	if drops < 0 || rises < drops || alpha > gamma || gamma > rises {
		t.Fatalf("summary should list drops by magnitude before rises:\n%s", summary.Content)
	}
}

func TestSweepOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run", func(t *testing.T) {
		f := newFixture(t)
		seedMovers(t, f)
		res, err := detect.New(f.st, defaultThresholds(), logging.NewNop()).Sweep(ctx, detect.Options{DryRun: true})
		if err != nil || len(res.Changes) != 3 || !res.Summary {
			t.Fatalf("dry run should still compute: %+v %v", res, err)
		}
		changes, _ := f.st.ListPriceChanges(ctx, now.Add(-day))
		posts, _ := f.st.ListPosts(ctx, "", 10)
		notes, _ := f.st.ListNotifications(ctx, 1)
		if len(changes)+len(posts)+len(notes) != 0 {
			t.Fatalf("dry run persisted rows: %d changes %d posts %d notes", len(changes), len(posts), len(notes))
		}
	})

	t.Run("no post queue", func(t *testing.T) {
		f := newFixture(t)
		seedMovers(t, f)
		res, err := detect.New(f.st, defaultThresholds(), logging.NewNop()).Sweep(ctx, detect.Options{NoPostQueue: true})
		if err != nil || res.Posts != 0 || res.Summary || res.Notifications != 3 {
			t.Fatalf("unexpected result: %+v %v", res, err)
		}
	})

	t.Run("summary only", func(t *testing.T) {
		f := newFixture(t)
		seedMovers(t, f)
		res, err := detect.New(f.st, defaultThresholds(), logging.NewNop()).Sweep(ctx, detect.Options{SummaryOnly: true})
		if err != nil || res.Posts != 1 || !res.Summary {
			t.Fatalf("unexpected result: %+v %v", res, err)
		}
		posts, _ := f.st.ListPosts(ctx, "", 10)
		if len(posts) != 1 || posts[0].PostType != detect.TypeSummary {
			t.Fatalf("expected only the summary post, got %+v", posts)
		}
	})
}

func TestPercentAndNotify(t *testing.T) {
	if got := detect.Percent(0, 500); got != 0 {
		t.Fatalf("zero old price should give 0%%, got %v", got)
	}
	if got := detect.Percent(800, 600); got != -25 {
		t.Fatalf("unexpected percent %v", got)
	}
	drop := store.PriceChange{ChangeAmount: -300}
	if detect.Notify(store.Watcher{SiteEnabled: true, PriceDropThreshold: 500}, drop) {
		t.Fatal("drop below threshold should be skipped")
	}
	if !detect.Notify(store.Watcher{SiteEnabled: true, PriceDropThreshold: 300}, drop) {
		t.Fatal("drop at threshold should notify")
	}
	if detect.Notify(store.Watcher{SiteEnabled: true, PriceRiseThreshold: 100}, store.PriceChange{ChangeAmount: 50}) {
		t.Fatal("rise below threshold should be skipped")
	}
}
