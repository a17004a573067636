package catalog

import (
	"fmt"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

// Verify checks that every store position is referenced by exactly one
// title bucket, one author bucket and one ISBN entry keyed by that book's
// values, that no bucket is empty, and that no index points outside the
// store. The returned error wraps apperr.ErrCorrupt.
func (c *Catalog) Verify() error {
	n := len(c.books)

	if len(c.byISBN) != n {
		return corrupt("isbn index has %d entries for %d books", len(c.byISBN), n)
	}
	for isbn, p := range c.byISBN {
		if p < 0 || p >= n {
			return corrupt("isbn %q points at %d, store has %d books", isbn, p, n)
		}
		if c.books[p].ISBN != isbn {
			return corrupt("isbn %q points at %d which holds %q", isbn, p, c.books[p].ISBN)
		}
	}

	if err := verifyMulti("title", c.byTitle, c.books, func(b models.Book) string { return b.Title }); err != nil {
		return err
	}
	return verifyMulti("author", c.byAuthor, c.books, func(b models.Book) string { return b.Author })
}

func verifyMulti(name string, idx multiIndex, books []models.Book, keyOf func(models.Book) string) error {
	seen := make([]bool, len(books))
	for key, bucket := range idx {
		if len(bucket) == 0 {
			return corrupt("%s bucket %q is empty", name, key)
		}
		for _, p := range bucket {
			if p < 0 || p >= len(books) {
				return corrupt("%s bucket %q holds %d, store has %d books", name, key, p, len(books))
			}
			if seen[p] {
				return corrupt("%s index references position %d twice", name, p)
			}
			seen[p] = true
			if got := keyOf(books[p]); got != key {
				return corrupt("%s bucket %q holds %d whose %s is %q", name, key, p, name, got)
			}
		}
	}
	for p, ok := range seen {
		if !ok {
			return corrupt("position %d missing from %s index", p, name)
		}
	}
	return nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrCorrupt, fmt.Sprintf(format, args...))
}
