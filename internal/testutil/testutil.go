// Package testutil provides shared test helpers for library directories,
// sample books and the activity database.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/shelf/internal/activity"
	"github.com/starford/shelf/internal/datafile"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

// LibraryFile is the file name used by test libraries.
const LibraryFile = "library.json"

// TestDB creates a temporary activity database that is closed on cleanup.
func TestDB(t *testing.T) *activity.DB {
	t.Helper()
	db, err := activity.Open(filepath.Join(t.TempDir(), "activity.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary data directory with a storage provider.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Seed writes books to LibraryFile in store.
func Seed(t *testing.T, store storage.Provider, books ...models.Book) {
	t.Helper()
	if _, err := datafile.Save(store, LibraryFile, books); err != nil {
		t.Fatal(err)
	}
}

// SampleBooks returns a small library: two Herbert novels and one Austen.
func SampleBooks() []models.Book {
	dune := models.NewBook("Dune", "Frank Herbert", "001")
	dune.Year = "1965"
	children := models.NewBook("Children of Dune", "Frank Herbert", "002")
	children.Year = "1976"
	emma := models.NewBook("Emma", "Jane Austen", "003")
	emma.Publisher = "John Murray"
	return []models.Book{dune, children, emma}
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
