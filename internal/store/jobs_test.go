package store_test

import (
	"context"
	"testing"
	"time"

	"tcgprice/internal/store"
	"tcgprice/internal/testsupport"
)

func TestEnqueueDeduplicatesInFlightKeywords(t *testing.T) {
	st, _ := openClocked(t)
	ctx := context.Background()

	id, ok, err := st.Enqueue(ctx, "Pikachu", "search", 0)
	if err != nil || !ok || id == 0 {
		t.Fatalf("first enqueue: id=%d ok=%v err=%v", id, ok, err)
	}
	if _, ok, err := st.Enqueue(ctx, "Pikachu", "manual", 5); err != nil || ok {
		t.Fatalf("pending duplicate should be rejected: ok=%v err=%v", ok, err)
	}
	if err := st.MarkQueueStatus(ctx, id, store.QueueProcessing); err != nil {
		t.Fatalf("MarkQueueStatus failed: %v", err)
	}
	if _, ok, err := st.Enqueue(ctx, "Pikachu", "manual", 0); err != nil || ok {
		t.Fatalf("processing duplicate should be rejected: ok=%v err=%v", ok, err)
	}
	if err := st.MarkQueueStatus(ctx, id, store.QueueDone); err != nil {
		t.Fatalf("MarkQueueStatus failed: %v", err)
	}
	if _, ok, err := st.Enqueue(ctx, "Pikachu", "manual", 0); err != nil || !ok {
		t.Fatalf("keyword should be accepted once done: ok=%v err=%v", ok, err)
	}

	if _, _, err := st.Enqueue(ctx, "   ", "manual", 0); err == nil {
		t.Fatal("expected error for blank keyword")
	}
	if err := st.MarkQueueStatus(ctx, 9999, store.QueueDone); err == nil {
		t.Fatal("expected error for unknown item")
	}
}

func TestDequeueOrdersByPriorityThenAge(t *testing.T) {
	st, clock := openClocked(t)
	ctx := context.Background()

	for _, entry := range []struct {
		keyword  string
		priority int
	}{
		{"first", 0},
		{"urgent", 5},
		{"second", 0},
	} {
		if _, _, err := st.Enqueue(ctx, entry.keyword, "", entry.priority); err != nil {
			t.Fatalf("Enqueue %s failed: %v", entry.keyword, err)
		}
		clock.Advance(time.Second)
	}

	items, err := st.Dequeue(ctx, 10)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	got := []string{items[0].Keyword, items[1].Keyword, items[2].Keyword}
	want := []string{"urgent", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
	if items[1].Source != "manual" {
		t.Fatalf("expected default source manual, got %q", items[1].Source)
	}

	limited, err := st.Dequeue(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].Keyword != "urgent" {
		t.Fatalf("unexpected limited dequeue: %#v %v", limited, err)
	}
	// Dequeue only lists; statuses stay pending.
	stats, err := st.QueueStats(ctx)
	if err != nil || stats[store.QueuePending] != 3 {
		t.Fatalf("unexpected stats: %#v %v", stats, err)
	}
}

func TestResetStuckQueueAndCleanup(t *testing.T) {
	st, clock := openClocked(t)
	ctx := context.Background()

	stuckID, _, _ := st.Enqueue(ctx, "stuck", "manual", 0)
	doneID, _, _ := st.Enqueue(ctx, "finished", "manual", 0)
	if err := st.MarkQueueStatus(ctx, stuckID, store.QueueProcessing); err != nil {
		t.Fatalf("MarkQueueStatus failed: %v", err)
	}
	if err := st.MarkQueueStatus(ctx, doneID, store.QueueDone); err != nil {
		t.Fatalf("MarkQueueStatus failed: %v", err)
	}

	reset, err := st.ResetStuckQueue(ctx)
	if err != nil || reset != 1 {
		t.Fatalf("expected one reset item, got %d (%v)", reset, err)
	}
	item, err := st.GetQueueItem(ctx, stuckID)
	if err != nil || item == nil || item.Status != store.QueuePending {
		t.Fatalf("expected stuck item pending, got %#v %v", item, err)
	}

	done, err := st.GetQueueItem(ctx, doneID)
	if err != nil || done.ProcessedAt == nil {
		t.Fatalf("expected processed_at on done item, got %#v %v", done, err)
	}

	removed, err := st.CleanupQueue(ctx, 7)
	if err != nil || removed != 0 {
		t.Fatalf("fresh done item must survive cleanup, removed=%d err=%v", removed, err)
	}
	clock.Advance(8 * 24 * time.Hour)
	removed, err = st.CleanupQueue(ctx, 7)
	if err != nil || removed != 1 {
		t.Fatalf("expected one removed item, got %d (%v)", removed, err)
	}
	gone, err := st.GetQueueItem(ctx, doneID)
	if err != nil || gone != nil {
		t.Fatalf("expected done item deleted, got %#v %v", gone, err)
	}
}

func TestRequeueKeepsProcessedAt(t *testing.T) {
	st, clock := openClocked(t)
	ctx := context.Background()

	id, _, err := st.Enqueue(ctx, "again", "manual", 0)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := st.MarkQueueStatus(ctx, id, store.QueueDone); err != nil {
		t.Fatalf("MarkQueueStatus done: %v", err)
	}
	done, err := st.GetQueueItem(ctx, id)
	if err != nil || done == nil || done.ProcessedAt == nil {
		t.Fatalf("expected processed_at on done item, got %#v %v", done, err)
	}

	clock.Advance(time.Hour)
	if err := st.MarkQueueStatus(ctx, id, store.QueuePending); err != nil {
		t.Fatalf("MarkQueueStatus pending: %v", err)
	}
	requeued, err := st.GetQueueItem(ctx, id)
	if err != nil || requeued == nil || requeued.Status != store.QueuePending {
		t.Fatalf("expected pending item, got %#v %v", requeued, err)
	}
	if requeued.ProcessedAt == nil || !requeued.ProcessedAt.Equal(*done.ProcessedAt) {
		t.Fatalf("requeue must leave processed_at alone: before %v after %v", done.ProcessedAt, requeued.ProcessedAt)
	}
	if err := st.MarkQueueStatus(ctx, id, store.QueueStatus("lost")); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestWatchedPriceMovesComparesAgainstPriorPrice(t *testing.T) {
	st, clock := openClocked(t)
	ctx := context.Background()
	shop := testsupport.MustShop(t, st, "alpha", "Alpha Cards")
	watched := testsupport.MustCard(t, st, "Pikachu ex")
	unwatched := testsupport.MustCard(t, st, "Eevee")
	fresh := testsupport.MustCard(t, st, "Mew ex")

	for _, card := range []*store.Card{watched, fresh} {
		if err := st.AddFavorite(ctx, 1, card.ID); err != nil {
			t.Fatalf("AddFavorite failed: %v", err)
		}
	}

	testsupport.MustPrice(t, st, watched.ID, shop.ID, 1000)
	testsupport.MustPrice(t, st, unwatched.ID, shop.ID, 500)
	clock.Advance(72 * time.Hour)
	testsupport.MustPrice(t, st, watched.ID, shop.ID, 900)
	clock.Advance(time.Hour)
	testsupport.MustPrice(t, st, watched.ID, shop.ID, 800)
	testsupport.MustPrice(t, st, unwatched.ID, shop.ID, 400)
	testsupport.MustPrice(t, st, fresh.ID, shop.ID, 700)

	moves, err := st.WatchedPriceMoves(ctx, clock.Now().Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("WatchedPriceMoves failed: %v", err)
	}
	if len(moves) != 1 {
		t.Fatalf("expected one move, got %#v", moves)
	}
	move := moves[0]
	if move.CardID != watched.ID || move.OldPrice != 1000 || move.NewPrice != 800 || move.ShopName != "Alpha Cards" {
		t.Fatalf("unexpected move: %#v", move)
	}
}

func TestRecordChangePersistsFanOut(t *testing.T) {
	st, clock := openClocked(t)
	ctx := context.Background()
	shop := testsupport.MustShop(t, st, "alpha", "Alpha Cards")
	card := testsupport.MustCard(t, st, "Pikachu ex")

	if err := st.AddFavorite(ctx, 1, card.ID); err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	if err := st.AddFavorite(ctx, 2, card.ID); err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	if err := st.SetNotificationSettings(ctx, store.NotificationSettings{UserID: 2, SiteEnabled: false, PriceDropThreshold: 100}); err != nil {
		t.Fatalf("SetNotificationSettings failed: %v", err)
	}

	watchers, err := st.Watchers(ctx, card.ID)
	if err != nil {
		t.Fatalf("Watchers failed: %v", err)
	}
	if len(watchers) != 2 {
		t.Fatalf("expected two watchers, got %#v", watchers)
	}
	if !watchers[0].SiteEnabled || watchers[0].PriceDropThreshold != 0 {
		t.Fatalf("user without settings should default to enabled: %#v", watchers[0])
	}
	if watchers[1].SiteEnabled || watchers[1].PriceDropThreshold != 100 {
		t.Fatalf("unexpected settings for user 2: %#v", watchers[1])
	}

	change := store.PriceChange{CardID: card.ID, ShopID: shop.ID, OldPrice: 1000, NewPrice: 800, ChangeAmount: -200, ChangePercent: -20}
	changeID, err := st.RecordChange(ctx, store.ChangeRecord{
		Change:        change,
		Notifications: []store.Notification{{UserID: 1, Type: "price_drop", Title: "drop", Message: "down", CardID: card.ID}},
		Post:          &store.Post{PostType: "price_drop", Content: "Pikachu ex down", CardID: card.ID},
	})
	if err != nil || changeID == 0 {
		t.Fatalf("RecordChange failed: id=%d err=%v", changeID, err)
	}

	recorded, err := st.ChangeRecorded(ctx, card.ID, shop.ID, 1000, 800, clock.Now().Add(-time.Hour))
	if err != nil || !recorded {
		t.Fatalf("expected change to be recorded: %v %v", recorded, err)
	}
	recorded, err = st.ChangeRecorded(ctx, card.ID, shop.ID, 800, 700, clock.Now().Add(-time.Hour))
	if err != nil || recorded {
		t.Fatalf("different transition should not match: %v %v", recorded, err)
	}

	notes, err := st.ListNotifications(ctx, 1)
	if err != nil || len(notes) != 1 {
		t.Fatalf("unexpected notifications: %#v %v", notes, err)
	}
	if notes[0].PriceChangeID != changeID || notes[0].IsRead {
		t.Fatalf("unexpected notification: %#v", notes[0])
	}
	posts, err := st.ListPosts(ctx, "pending", 10)
	if err != nil || len(posts) != 1 || posts[0].PriceChangeID != changeID {
		t.Fatalf("unexpected posts: %#v %v", posts, err)
	}

	if err := st.EnqueuePost(ctx, store.Post{PostType: "summary", Content: "3 movers"}); err != nil {
		t.Fatalf("EnqueuePost failed: %v", err)
	}
	all, err := st.ListPosts(ctx, "", 10)
	if err != nil || len(all) != 2 || all[1].PostType != "summary" {
		t.Fatalf("unexpected post list: %#v %v", all, err)
	}

	changes, err := st.ListPriceChanges(ctx, clock.Now().Add(-time.Hour))
	if err != nil || len(changes) != 1 || changes[0].CardName != "Pikachu ex" {
		t.Fatalf("unexpected changes: %#v %v", changes, err)
	}
}

func TestRefreshPopularScoresSearchesAndClicks(t *testing.T) {
	st, clock := openClocked(t)
	ctx := context.Background()
	shop := testsupport.MustShop(t, st, "alpha", "Alpha Cards")
	pika := testsupport.MustCard(t, st, "pikachu ex")
	zard := testsupport.MustCard(t, st, "charizard")
	mew := testsupport.MustCard(t, st, "mew")

	for i := 0; i < 2; i++ {
		if err := st.RecordSearch(ctx, "Pikachu", "pikachu", 1); err != nil {
			t.Fatalf("RecordSearch failed: %v", err)
		}
	}
	if err := st.RecordClick(ctx, zard.ID, shop.ID); err != nil {
		t.Fatalf("RecordClick failed: %v", err)
	}

	rule := store.PopularityRule{Since: clock.Now().Add(-7 * 24 * time.Hour), SearchThreshold: 2, ClickThreshold: 1, MaxPopular: 10}
	count, err := st.RefreshPopular(ctx, rule)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 popular cards, got %d (%v)", count, err)
	}
	popular, err := st.PopularCards(ctx)
	if err != nil {
		t.Fatalf("PopularCards failed: %v", err)
	}
	for _, card := range popular {
		if card.ID == mew.ID {
			t.Fatal("mew should not be popular")
		}
	}

	stale, err := st.PopularCardsNeedingRefresh(ctx, clock.Now().Add(-24*time.Hour), 10)
	if err != nil || len(stale) != 2 {
		t.Fatalf("expected both popular cards stale, got %#v %v", stale, err)
	}
	if err := st.TouchCardFetched(ctx, pika.ID); err != nil {
		t.Fatalf("TouchCardFetched failed: %v", err)
	}
	stale, err = st.PopularCardsNeedingRefresh(ctx, clock.Now().Add(-24*time.Hour), 10)
	if err != nil || len(stale) != 1 || stale[0].ID != zard.ID {
		t.Fatalf("expected only charizard stale, got %#v %v", stale, err)
	}

	rule.MaxPopular = 1
	count, err = st.RefreshPopular(ctx, rule)
	if err != nil || count != 1 {
		t.Fatalf("expected cap of 1, got %d (%v)", count, err)
	}
}

func TestBatchLogsNewestFirst(t *testing.T) {
	st, _ := openClocked(t)
	ctx := context.Background()

	for i, status := range []string{"success", "error"} {
		start := baseTime.Add(time.Duration(i) * time.Hour)
		if _, err := st.InsertBatchLog(ctx, store.BatchLog{
			RunID:      "run",
			BatchType:  "crawl",
			Status:     status,
			CardsTotal: 10 * (i + 1),
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
		}); err != nil {
			t.Fatalf("InsertBatchLog failed: %v", err)
		}
	}
	logs, err := st.ListBatchLogs(ctx, 5)
	if err != nil || len(logs) != 2 {
		t.Fatalf("unexpected logs: %#v %v", logs, err)
	}
	if logs[0].Status != "error" || logs[0].CardsTotal != 20 || !logs[0].FinishedAt.Equal(baseTime.Add(time.Hour+time.Minute)) {
		t.Fatalf("unexpected newest log: %#v", logs[0])
	}
}
