package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/shelf/internal/activity"
	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/storage"
)

// ErrLibraryLocked is returned when another process holds the library.
var ErrLibraryLocked = errors.New("library is in use by another process")

// Library bundles an opened library service with the resources behind it.
type Library struct {
	Service *bookservice.Service
	Store   *storage.FS
	Path    string // absolute path of the library file

	lock      *storage.Lock
	exclusive bool
	recorder  activity.Recorder
}

// OpenLibrary opens the configured library file and activity log.
//
// With exclusive set the file lock is taken before loading and held until
// Close, covering a whole load-modify-save session; otherwise the service
// takes it around each save. Extra service options are applied last.
func OpenLibrary(cfg *Config, logger *slog.Logger, exclusive bool, extra ...bookservice.Option) (*Library, error) {
	store, err := storage.NewFS(cfg.Library.Dir())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	lib := &Library{
		Store:     store,
		Path:      filepath.Join(store.Root(), cfg.Library.File()),
		exclusive: exclusive,
		recorder:  activity.Discard{},
	}
	lib.lock = storage.NewLock(lib.Path)

	opts := []bookservice.Option{
		bookservice.WithLogger(logger),
		bookservice.WithCacheSize(cfg.Search.CacheSize),
	}
	if exclusive {
		ok, err := lib.lock.TryAcquire()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", lib.Path, ErrLibraryLocked)
		}
	} else {
		opts = append(opts, bookservice.WithLock(lib.lock))
	}

	if cfg.SQLite.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			_ = lib.Close()
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := activity.Open(cfg.SQLite.Path)
		if err != nil {
			_ = lib.Close()
			return nil, fmt.Errorf("init activity log: %w", err)
		}
		lib.recorder = db
	}
	opts = append(opts, bookservice.WithRecorder(lib.recorder))

	svc, err := bookservice.New(store, cfg.Library.File(), append(opts, extra...)...)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	lib.Service = svc
	return lib, nil
}

// Recorder returns the activity log.
func (l *Library) Recorder() activity.Recorder {
	return l.recorder
}

// Close releases the activity log and, for exclusive sessions, the lock.
func (l *Library) Close() error {
	err := l.recorder.Close()
	if l.exclusive {
		err = errors.Join(err, l.lock.Release())
	}
	return err
}
