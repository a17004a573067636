// Package datafile reads and writes the library file: a JSON array of flat
// book records kept in store order.
package datafile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

const indent = "    "

// Encode renders books in the persisted format.
func Encode(books []models.Book) ([]byte, error) {
	if books == nil {
		books = []models.Book{}
	}
	data, err := json.MarshalIndent(books, "", indent)
	if err != nil {
		return nil, fmt.Errorf("datafile: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses persisted data. Blank input is apperr.ErrEmptyFile; anything
// that is not a list of valid flat records is apperr.ErrMalformed.
func Decode(data []byte) ([]models.Book, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, apperr.ErrEmptyFile
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: top level is not a list", apperr.ErrMalformed)
	}
	var books []models.Book
	if err := json.Unmarshal(trimmed, &books); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformed, err)
	}
	for i, b := range books {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", apperr.ErrMalformed, i, err)
		}
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

// Load reads name from store. A missing file is reported as the wrapped
// fs.ErrNotExist from the provider.
func Load(store storage.Provider, name string) ([]models.Book, error) {
	data, err := store.Read(name)
	if err != nil {
		return nil, fmt.Errorf("datafile: load: %w", err)
	}
	books, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("datafile: load %s: %w", name, err)
	}
	return books, nil
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

type openOptions struct {
	allowMissing bool
}

// AllowMissing makes Open return an empty catalog for a missing or empty file.
func AllowMissing() OpenOption {
	return func(o *openOptions) { o.allowMissing = true }
}

// Open loads name and builds a catalog from it.
func Open(store storage.Provider, name string, opts ...OpenOption) (*catalog.Catalog, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	books, err := Load(store, name)
	if err != nil {
		if o.allowMissing && (IsMissing(err) || IsEmpty(err)) {
			return catalog.New(), nil
		}
		return nil, err
	}
	c, err := catalog.Load(books)
	if err != nil {
		return nil, fmt.Errorf("datafile: open %s: %w", name, err)
	}
	return c, nil
}
