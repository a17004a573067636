package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Lock is a cross-process advisory lock guarding a load-modify-save cycle
// on the data file. The lock lives in a sibling "<file>.lock".
type Lock struct {
	path  string
	flock *flock.Flock
}

// NewLock returns an unlocked lock for the data file at path.
func NewLock(path string) *Lock {
	lockPath := path + ".lock"
	return &Lock{path: lockPath, flock: flock.New(lockPath)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("storage: create lock dir: %w", err)
	}
	ok, err := l.flock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("storage: acquire %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("storage: acquire %s: lock not obtained", l.path)
	}
	return nil
}

// TryAcquire takes the lock without blocking and reports whether it did.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("storage: create lock dir: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("storage: try lock %s: %w", l.path, err)
	}
	return ok, nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("storage: release %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
