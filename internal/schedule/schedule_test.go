package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tcgprice/internal/logging"
	"tcgprice/internal/schedule"
)

var errBusy = errors.New("busy")

func TestAddValidatesSpecs(t *testing.T) {
	s := schedule.New(time.UTC, logging.NewNop(), nil)
	noop := func(context.Context) error { return nil }

	if err := s.Add("crawl", "", noop); err != nil {
		t.Fatalf("empty spec should be skipped, got %v", err)
	}
	if err := s.Add("crawl", "not a spec", noop); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if err := s.Add("notify", "0 * * * *", noop); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add("queue", "*/5 * * * *", nil); err == nil {
		t.Fatal("expected error for nil job")
	}
	entries := s.Entries()
	if len(entries) != 1 || entries[0].Name != "notify" || entries[0].Spec != "0 * * * *" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestRunWithoutJobsFails(t *testing.T) {
	s := schedule.New(time.UTC, logging.NewNop(), nil)
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error when nothing is scheduled")
	}
}

func TestRunInvokesJobsUntilCancelled(t *testing.T) {
	s := schedule.New(time.UTC, logging.NewNop(), func(err error) bool { return errors.Is(err, errBusy) })
	var calls atomic.Int32
	if err := s.Add("queue", "@every 1s", func(ctx context.Context) error {
		calls.Add(1)
		return errBusy
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls.Load() == 0 {
		t.Fatal("expected the job to run at least once")
	}
}

func TestEntriesReportNextRunBeforeStart(t *testing.T) {
	s := schedule.New(time.UTC, logging.NewNop(), nil)
	noop := func(context.Context) error { return nil }
	if err := s.Add("link", "0 4 29 2 *", noop); err != nil {
		t.Fatalf("Add link: %v", err)
	}
	if err := s.Add("queue", "*/5 * * * *", noop); err != nil {
		t.Fatalf("Add queue: %v", err)
	}
	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	for _, e := range entries {
		if e.Next.IsZero() || !e.Next.After(time.Now().Add(-time.Second)) {
			t.Fatalf("expected a future next run for %s, got %v", e.Name, e.Next)
		}
	}
	if entries[0].Name != "queue" {
		t.Fatalf("the five-minute job should come first, got %+v", entries)
	}
}
