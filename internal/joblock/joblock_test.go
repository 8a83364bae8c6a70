package joblock_test

import (
	"path/filepath"
	"testing"

	"tcgprice/internal/joblock"
)

func TestLockExcludesSecondHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	first, err := joblock.New(dir, joblock.ClassCrawl)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	second, err := joblock.New(dir, joblock.ClassCrawl)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if first.Path() != filepath.Join(dir, "crawl.lock") {
		t.Fatalf("unexpected lock path %s", first.Path())
	}

	ok, err := first.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed: %v %v", ok, err)
	}
	ok, err = second.TryAcquire()
	if err != nil || ok {
		t.Fatalf("second acquire should report contention without error: %v %v", ok, err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("release after failed acquire should be safe: %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	ok, err = second.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("acquire after release should succeed: %v %v", ok, err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("double release should be safe: %v", err)
	}
}

func TestClassesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	crawl, _ := joblock.New(dir, joblock.ClassCrawl)
	queue, _ := joblock.New(dir, joblock.ClassQueue)
	defer crawl.Release()
	defer queue.Release()

	if ok, err := crawl.TryAcquire(); !ok || err != nil {
		t.Fatalf("crawl acquire: %v %v", ok, err)
	}
	if ok, err := queue.TryAcquire(); !ok || err != nil {
		t.Fatalf("queue lock should not be blocked by crawl: %v %v", ok, err)
	}
}

func TestInvalidClass(t *testing.T) {
	if _, err := joblock.New(t.TempDir(), "../escape"); err == nil {
		t.Fatal("expected error for class with path separator")
	}
	if _, err := joblock.New("", joblock.ClassNotify); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
