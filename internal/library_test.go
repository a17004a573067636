package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/shelf/internal/activity"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Library.Path = filepath.Join(dir, "books", "library.json")
	cfg.SQLite.Path = filepath.Join(dir, "db", "shelf.db")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpenLibraryExclusive(t *testing.T) {
	cfg := testConfig(t)
	logger := testutil.Logger()

	first, err := OpenLibrary(cfg, logger, true)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := OpenLibrary(cfg, logger, true); !errors.Is(err, ErrLibraryLocked) {
		t.Errorf("second exclusive open err = %v, want ErrLibraryLocked", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := OpenLibrary(cfg, logger, true)
	if err != nil {
		t.Fatalf("open after close: %v", err)
	}
	again.Close()
}

func TestOpenLibraryRecordsActivity(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	lib, err := OpenLibrary(cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	if _, err := lib.Service.Add(ctx, models.NewBook("Dune", "Frank Herbert", "001")); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Service.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := lib.Recorder().Recent(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Op != activity.OpSave || entries[1].Op != activity.OpAdd {
		t.Errorf("entries = %+v", entries)
	}
	if lib.Path != cfg.Library.Path {
		t.Errorf("Path = %q, want %q", lib.Path, cfg.Library.Path)
	}
}

func TestOpenLibraryWithoutActivityLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLite.Path = ""

	lib, err := OpenLibrary(cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	if _, ok := lib.Recorder().(activity.Discard); !ok {
		t.Errorf("recorder = %T, want activity.Discard", lib.Recorder())
	}
}
