// Package catalog is the in-memory book collection: an ordered store of
// books plus title, author and ISBN indices that address books by their
// position in the store.
//
// A Catalog is not safe for concurrent use; hosts that share one across
// goroutines must serialize access themselves.
package catalog

import (
	"fmt"
	"slices"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

// Catalog is the indexed book collection.
type Catalog struct {
	books    []models.Book
	byTitle  multiIndex
	byAuthor multiIndex
	byISBN   uniqueIndex
}

// Stats summarises the catalog contents.
type Stats struct {
	Books   int `json:"number_of_books"`
	Titles  int `json:"number_of_titles"`
	Authors int `json:"number_of_authors"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		byTitle:  make(multiIndex),
		byAuthor: make(multiIndex),
		byISBN:   make(uniqueIndex),
	}
}

// Load builds a catalog by adding books in order. The first rejected book
// aborts the load; the error names its index in the input.
func Load(books []models.Book) (*Catalog, error) {
	c := New()
	for i, b := range books {
		if err := c.Add(b); err != nil {
			return nil, fmt.Errorf("catalog: load record %d: %w", i, err)
		}
	}
	return c, nil
}

// Add appends b to the store and indexes it.
func (c *Catalog) Add(b models.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, ok := c.byISBN[b.ISBN]; ok {
		return fmt.Errorf("isbn %q: %w", b.ISBN, apperr.ErrDuplicateKey)
	}

	pos := len(c.books)
	c.books = append(c.books, b.Clone())
	c.byTitle.insert(b.Title, pos)
	c.byAuthor.insert(b.Author, pos)
	c.byISBN[b.ISBN] = pos
	return nil
}

// Remove deletes the book with the given ISBN and returns it. Every index
// entry pointing past the removed position is shifted down by one.
func (c *Catalog) Remove(isbn string) (models.Book, error) {
	pos, ok := c.byISBN[isbn]
	if !ok {
		return models.Book{}, fmt.Errorf("isbn %q: %w", isbn, apperr.ErrNotFound)
	}
	b := c.books[pos]

	c.books = slices.Delete(c.books, pos, pos+1)

	c.byTitle.drop(b.Title, pos)
	c.byAuthor.drop(b.Author, pos)
	delete(c.byISBN, isbn)

	c.byTitle.shiftAfter(pos)
	c.byAuthor.shiftAfter(pos)
	c.byISBN.shiftAfter(pos)
	return b, nil
}

// Edit replaces the book stored under oldISBN with b by removing the old
// record and adding the new one, so the edited book moves to the end of
// the store. b is validated and its ISBN checked for collisions before
// anything is removed; a failed edit leaves the catalog unchanged.
func (c *Catalog) Edit(oldISBN string, b models.Book) error {
	if _, ok := c.byISBN[oldISBN]; !ok {
		return fmt.Errorf("isbn %q: %w", oldISBN, apperr.ErrNotFound)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ISBN != oldISBN {
		if _, taken := c.byISBN[b.ISBN]; taken {
			return fmt.Errorf("isbn %q: %w", b.ISBN, apperr.ErrDuplicateKey)
		}
	}

	if _, err := c.Remove(oldISBN); err != nil {
		return err
	}
	return c.Add(b)
}

// Get returns the book with the given ISBN.
func (c *Catalog) Get(isbn string) (models.Book, bool) {
	pos, ok := c.byISBN[isbn]
	if !ok {
		return models.Book{}, false
	}
	return c.books[pos], true
}

// Has reports whether isbn is present.
func (c *Catalog) Has(isbn string) bool {
	_, ok := c.byISBN[isbn]
	return ok
}

// Position returns the current store position of isbn.
func (c *Catalog) Position(isbn string) (int, bool) {
	pos, ok := c.byISBN[isbn]
	return pos, ok
}

// ByTitle returns the books with exactly this title in insertion order.
func (c *Catalog) ByTitle(title string) []models.Book {
	return c.at(c.byTitle[title])
}

// ByAuthor returns the books by exactly this author in insertion order.
func (c *Catalog) ByAuthor(author string) []models.Book {
	return c.at(c.byAuthor[author])
}

// All returns the store in storage order.
func (c *Catalog) All() []models.Book {
	out := make([]models.Book, len(c.books))
	copy(out, c.books)
	return out
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	return len(c.books)
}

// Titles returns the distinct titles, sorted.
func (c *Catalog) Titles() []string {
	return c.byTitle.keys()
}

// Authors returns the distinct authors, sorted.
func (c *Catalog) Authors() []string {
	return c.byAuthor.keys()
}

// Stats returns book, title and author counts.
func (c *Catalog) Stats() Stats {
	return Stats{
		Books:   len(c.books),
		Titles:  len(c.byTitle),
		Authors: len(c.byAuthor),
	}
}

func (c *Catalog) at(positions []int) []models.Book {
	out := make([]models.Book, 0, len(positions))
	for _, p := range positions {
		out = append(out, c.books[p])
	}
	return out
}
