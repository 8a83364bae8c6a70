// Package joblock provides the single-instance guard for batch job classes.
//
// Each job class owns one advisory lock file. Acquisition never blocks: a
// held lock means another run of the same class is in progress.
package joblock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Job classes guarded by a lock.
const (
	ClassCrawl   = "crawl"
	ClassFetch   = "fetch"
	ClassQueue   = "queue"
	ClassPopular = "popular"
	ClassNotify  = "notify"
	ClassLink    = "link"
)

// JobLock is an exclusive, non-blocking lock for one job class.
type JobLock interface {
	// TryAcquire reports whether the lock is now held by the caller.
	TryAcquire() (bool, error)
	// Release drops the lock. It is safe to call when not held.
	Release() error
}

// FileLock is a JobLock backed by an flock(2) lock file.
type FileLock struct {
	path string
	lock *flock.Flock
}

var _ JobLock = (*FileLock)(nil)

// New returns the lock for class under dir.
func New(dir, class string) (*FileLock, error) {
	class = strings.TrimSpace(class)
	if class == "" || strings.ContainsAny(class, `/\`) {
		return nil, fmt.Errorf("invalid job class %q", class)
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("lock directory is required")
	}
	path := filepath.Join(dir, class+".lock")
	return &FileLock{path: path, lock: flock.New(path)}, nil
}

// Path returns the lock file location.
func (l *FileLock) Path() string { return l.path }

// TryAcquire takes the lock without blocking.
func (l *FileLock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	return ok, nil
}

// Release unlocks the file if this process holds it.
func (l *FileLock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
