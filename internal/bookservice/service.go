// Package bookservice hosts a catalog for concurrent callers: it serializes
// access, caches searches, persists changes and records activity.
package bookservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/shelf/internal/activity"
	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/datafile"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

// BookDetail is a book together with its concurrency tag and position.
type BookDetail struct {
	Book     models.Book `json:"book"`
	Checksum string      `json:"checksum"`
	Position int         `json:"position"`
}

// Change kinds passed to the change callback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Change describes one applied mutation.
type Change struct {
	Kind  string
	ISBN  string
	Title string
	Books int
}

// ListFilter narrows List to an exact title or author. Empty fields match all.
type ListFilter struct {
	Title  string
	Author string
}

type searchKey struct {
	mode  catalog.Mode
	query string
}

// Service coordinates the catalog, the library file and the activity log.
type Service struct {
	mu    sync.RWMutex
	cat   *catalog.Catalog
	dirty bool
	// lastSum is the checksum of the file content last read or written,
	// used to ignore watcher events caused by our own saves.
	lastSum string

	store    storage.Provider
	file     string
	lock     *storage.Lock
	autosave bool
	recorder activity.Recorder
	cache    *lru.Cache[searchKey, []models.Book]
	onChange func(Change)
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAutosave writes the library file after every mutation.
func WithAutosave(on bool) Option {
	return func(s *Service) { s.autosave = on }
}

// WithRecorder sets the activity log.
func WithRecorder(r activity.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithCacheSize sets the search cache capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n <= 0 {
			s.cache = nil
			return
		}
		c, err := lru.New[searchKey, []models.Book](n)
		if err == nil {
			s.cache = c
		}
	}
}

// WithChangeFunc registers a callback run after each mutation.
func WithChangeFunc(fn func(Change)) Option {
	return func(s *Service) { s.onChange = fn }
}

// WithLock guards saves with a cross-process file lock.
func WithLock(l *storage.Lock) Option {
	return func(s *Service) { s.lock = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New opens the library file (a missing or empty file gives an empty
// library) and returns a service around it.
func New(store storage.Provider, file string, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		file:     file,
		recorder: activity.Discard{},
		logger:   slog.Default(),
	}
	WithCacheSize(128)(s)
	for _, o := range opts {
		o(s)
	}

	cat, sum, err := s.read()
	if err != nil {
		return nil, err
	}
	s.cat = cat
	s.lastSum = sum
	return s, nil
}

func (s *Service) read() (*catalog.Catalog, string, error) {
	sum := ""
	if data, err := s.store.Read(s.file); err == nil {
		sum = checksum.Sum(data)
	}
	cat, err := datafile.Open(s.store, s.file, datafile.AllowMissing())
	if err != nil {
		return nil, "", fmt.Errorf("bookservice: %w", err)
	}
	return cat, sum, nil
}

func detail(cat *catalog.Catalog, b models.Book) (BookDetail, error) {
	sum, err := checksum.Of(b)
	if err != nil {
		return BookDetail{}, err
	}
	pos, _ := cat.Position(b.ISBN)
	return BookDetail{Book: b, Checksum: sum, Position: pos}, nil
}

// Get returns the book with isbn.
func (s *Service) Get(_ context.Context, isbn string) (BookDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.cat.Get(isbn)
	if !ok {
		return BookDetail{}, fmt.Errorf("book %q: %w", isbn, apperr.ErrNotFound)
	}
	return detail(s.cat, b)
}

// List returns books in store order, optionally restricted by f.
func (s *Service) List(_ context.Context, f ListFilter) []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case f.Title != "" && f.Author != "":
		var out []models.Book
		for _, b := range s.cat.ByTitle(f.Title) {
			if b.Author == f.Author {
				out = append(out, b)
			}
		}
		if out == nil {
			out = []models.Book{}
		}
		return out
	case f.Title != "":
		return s.cat.ByTitle(f.Title)
	case f.Author != "":
		return s.cat.ByAuthor(f.Author)
	}
	return s.cat.All()
}

// Search runs query in mode. limit <= 0 returns every match.
func (s *Service) Search(_ context.Context, mode catalog.Mode, query string, limit int) []models.Book {
	key := searchKey{mode: mode, query: query}

	s.mu.RLock()
	var res []models.Book
	hit := false
	if s.cache != nil {
		res, hit = s.cache.Get(key)
	}
	if !hit {
		res = s.cat.Search(mode, query)
		if s.cache != nil {
			s.cache.Add(key, res)
		}
	}
	s.mu.RUnlock()

	s.record(activity.OpSearch, "", fmt.Sprintf("%s: %s", mode, strings.TrimSpace(query)))

	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	out := make([]models.Book, len(res))
	for i, b := range res {
		out[i] = b.Clone()
	}
	return out
}

// Stats returns library counts.
func (s *Service) Stats(_ context.Context) catalog.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Stats()
}

// Verify checks the catalog's index invariants.
func (s *Service) Verify(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Verify()
}

// Dirty reports whether there are unsaved changes.
func (s *Service) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Activity returns recent log entries, newest first.
func (s *Service) Activity(_ context.Context, limit int, op string) ([]activity.Entry, error) {
	return s.recorder.Recent(limit, op)
}

// ActivityCounts returns the number of logged entries per operation.
func (s *Service) ActivityCounts(_ context.Context) (map[string]int, error) {
	return s.recorder.Counts()
}

// Has reports whether a book with isbn exists.
func (s *Service) Has(_ context.Context, isbn string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Has(isbn)
}

// Titles returns the distinct titles, sorted.
func (s *Service) Titles(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Titles()
}

// Authors returns the distinct authors, sorted.
func (s *Service) Authors(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Authors()
}

// Add inserts b.
func (s *Service) Add(ctx context.Context, b models.Book) (BookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cat.Add(b); err != nil {
		return BookDetail{}, err
	}
	s.mutated(ctx, Change{Kind: ChangeCreated, ISBN: b.ISBN, Title: b.Title})
	s.record(activity.OpAdd, b.ISBN, b.Title)
	stored, _ := s.cat.Get(b.ISBN)
	return detail(s.cat, stored)
}

// Update replaces the book at isbn with b. A non-empty ifMatch must name the
// current book's checksum or apperr.ErrConflict is returned.
func (s *Service) Update(ctx context.Context, isbn string, b models.Book, ifMatch string) (BookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cat.Get(isbn)
	if !ok {
		return BookDetail{}, fmt.Errorf("book %q: %w", isbn, apperr.ErrNotFound)
	}
	if ifMatch != "" {
		sum, err := checksum.Of(current)
		if err != nil {
			return BookDetail{}, err
		}
		if !checksum.Match(ifMatch, sum) {
			return BookDetail{}, fmt.Errorf("book %q: %w", isbn, apperr.ErrConflict)
		}
	}
	if err := s.cat.Edit(isbn, b); err != nil {
		return BookDetail{}, err
	}
	s.mutated(ctx, Change{Kind: ChangeUpdated, ISBN: b.ISBN, Title: b.Title})
	detailText := b.Title
	if b.ISBN != isbn {
		detailText = fmt.Sprintf("%s (was %s)", b.Title, isbn)
	}
	s.record(activity.OpEdit, b.ISBN, detailText)
	stored, _ := s.cat.Get(b.ISBN)
	return detail(s.cat, stored)
}

// Remove deletes the book with isbn and returns it.
func (s *Service) Remove(ctx context.Context, isbn string) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.cat.Remove(isbn)
	if err != nil {
		return models.Book{}, err
	}
	s.mutated(ctx, Change{Kind: ChangeDeleted, ISBN: b.ISBN, Title: b.Title})
	s.record(activity.OpRemove, b.ISBN, b.Title)
	return b, nil
}

// Import adds books in order, skipping invalid records and ISBNs already
// present. source names the origin in the activity log.
func (s *Service) Import(ctx context.Context, books []models.Book, source string) (added, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changes []Change
	for _, b := range books {
		if err := s.cat.Add(b); err != nil {
			skipped++
			continue
		}
		changes = append(changes, Change{Kind: ChangeCreated, ISBN: b.ISBN, Title: b.Title})
	}
	added = len(changes)
	if added > 0 {
		s.mutated(ctx, changes...)
	}
	s.record(activity.OpImport, "", fmt.Sprintf("%s: %d added, %d skipped", source, added, skipped))
	return added, skipped
}

// Save writes the library file if it differs from the catalog.
func (s *Service) Save(ctx context.Context) (datafile.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

func (s *Service) save(ctx context.Context) (datafile.SaveResult, error) {
	if s.lock != nil {
		if err := s.lock.Acquire(ctx); err != nil {
			return 0, err
		}
		defer func() { _ = s.lock.Release() }()
	}
	books := s.cat.All()
	res, err := datafile.Save(s.store, s.file, books)
	if err != nil {
		return 0, err
	}
	s.dirty = false
	s.lastSum = ""
	if data, err := s.store.Read(s.file); err == nil {
		s.lastSum = checksum.Sum(data)
	}
	if res.Wrote() {
		s.record(activity.OpSave, "", res.String())
	}
	return res, nil
}

// Reload replaces the catalog from the library file. It reports false when
// the file still holds what this service last read or wrote. Unsaved changes
// are discarded.
func (s *Service) Reload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		if err := s.lock.Acquire(ctx); err != nil {
			return false, err
		}
		defer func() { _ = s.lock.Release() }()
	}

	data, err := s.store.Read(s.file)
	switch {
	case err == nil && s.lastSum != "" && checksum.Sum(data) == s.lastSum:
		return false, nil
	case datafile.IsMissing(err) && s.lastSum == "":
		return false, nil
	}
	cat, sum, err := s.read()
	if err != nil {
		return false, err
	}
	if s.dirty {
		s.logger.Warn("bookservice: reload discarded unsaved changes",
			slog.String("file", s.file))
	}
	s.cat = cat
	s.lastSum = sum
	s.dirty = false
	s.purge()
	s.record(activity.OpReload, "", fmt.Sprintf("%d books", cat.Len()))
	return true, nil
}

// Len returns the number of books.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Len()
}

// mutated runs after each successful mutation with the write lock held.
func (s *Service) mutated(ctx context.Context, changes ...Change) {
	s.dirty = true
	s.purge()
	if s.autosave {
		if _, err := s.save(ctx); err != nil {
			s.logger.Warn("bookservice: autosave failed",
				slog.String("file", s.file),
				slog.String("error", err.Error()))
		}
	}
	if s.onChange != nil {
		for _, c := range changes {
			c.Books = s.cat.Len()
			s.onChange(c)
		}
	}
}

func (s *Service) purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Service) record(op, isbn, detail string) {
	if err := s.recorder.Log(op, isbn, detail); err != nil {
		s.logger.Warn("bookservice: activity log failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
}
