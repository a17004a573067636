// Package models defines the domain types for shelf.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cast"

	"github.com/starford/shelf/internal/apperr"
)

// Canonical field names, in persisted order.
const (
	FieldTitle     = "title"
	FieldAuthor    = "author"
	FieldISBN      = "isbn"
	FieldPublisher = "publisher"
	FieldCover     = "cover"
	FieldCategory  = "category"
	FieldEdition   = "edition"
	FieldYear      = "year"
	FieldPages     = "pages"
)

// NotSet is the placeholder stored for absent descriptive fields.
const NotSet = "not_set"

var canonicalFields = []string{
	FieldTitle, FieldAuthor, FieldISBN,
	FieldPublisher, FieldCover, FieldCategory,
	FieldEdition, FieldYear, FieldPages,
}

// Book is one catalog record. ISBN is the primary key; every value is a string.
type Book struct {
	Title     string
	Author    string
	ISBN      string
	Publisher string
	Cover     string
	Category  string
	Edition   string
	Year      string
	Pages     string

	// Extra holds attributes outside the canonical set.
	Extra map[string]string
}

// Record is the raw dictionary form of a book as found in persisted files.
type Record map[string]any

// Field is a single named value of a book.
type Field struct {
	Name  string
	Value string
}

// NewBook returns a book with the descriptive fields set to their defaults.
func NewBook(title, author, isbn string) Book {
	return Book{
		Title:     title,
		Author:    author,
		ISBN:      isbn,
		Publisher: NotSet,
		Cover:     NotSet,
		Category:  NotSet,
		Edition:   "0",
		Year:      "0",
		Pages:     "0",
	}
}

// CanonicalFields returns the canonical field names in persisted order.
func CanonicalFields() []string {
	return slices.Clone(canonicalFields)
}

// FromRecord builds a book from a raw record. Absent fields take their
// defaults; scalar values are coerced to strings. Nested or null values
// are rejected with apperr.ErrMalformed.
func FromRecord(r Record) (Book, error) {
	b := NewBook("", "", "")
	for _, k := range slices.Sorted(maps.Keys(r)) {
		v := r[k]
		switch v.(type) {
		case nil:
			return Book{}, fmt.Errorf("%w: field %q is null", apperr.ErrMalformed, k)
		case map[string]any, []any:
			return Book{}, fmt.Errorf("%w: field %q is not a scalar", apperr.ErrMalformed, k)
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return Book{}, fmt.Errorf("%w: field %q: %v", apperr.ErrMalformed, k, err)
		}
		b.Set(k, s)
	}
	return b, nil
}

// Get returns the value of the named field and whether the book has it.
func (b Book) Get(name string) (string, bool) {
	switch name {
	case FieldTitle:
		return b.Title, true
	case FieldAuthor:
		return b.Author, true
	case FieldISBN:
		return b.ISBN, true
	case FieldPublisher:
		return b.Publisher, true
	case FieldCover:
		return b.Cover, true
	case FieldCategory:
		return b.Category, true
	case FieldEdition:
		return b.Edition, true
	case FieldYear:
		return b.Year, true
	case FieldPages:
		return b.Pages, true
	}
	v, ok := b.Extra[name]
	return v, ok
}

// Set assigns the named field. Unknown names go to Extra.
func (b *Book) Set(name, value string) {
	switch name {
	case FieldTitle:
		b.Title = value
	case FieldAuthor:
		b.Author = value
	case FieldISBN:
		b.ISBN = value
	case FieldPublisher:
		b.Publisher = value
	case FieldCover:
		b.Cover = value
	case FieldCategory:
		b.Category = value
	case FieldEdition:
		b.Edition = value
	case FieldYear:
		b.Year = value
	case FieldPages:
		b.Pages = value
	default:
		if b.Extra == nil {
			b.Extra = make(map[string]string)
		}
		b.Extra[name] = value
	}
}

// Fields returns the canonical fields followed by Extra sorted by name.
func (b Book) Fields() []Field {
	out := make([]Field, 0, len(canonicalFields)+len(b.Extra))
	for _, name := range canonicalFields {
		v, _ := b.Get(name)
		out = append(out, Field{Name: name, Value: v})
	}
	for _, name := range slices.Sorted(maps.Keys(b.Extra)) {
		out = append(out, Field{Name: name, Value: b.Extra[name]})
	}
	return out
}

// ToRecord returns the flat string map form of the book.
func (b Book) ToRecord() map[string]string {
	fields := b.Fields()
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out
}

// Clone returns a copy that shares no map with b.
func (b Book) Clone() Book {
	b.Extra = maps.Clone(b.Extra)
	return b
}

// Validate checks that the key fields are present and not blank.
func (b Book) Validate() error {
	err := validation.ValidateStruct(&b,
		validation.Field(&b.ISBN, validation.Required, validation.By(notBlank)),
		validation.Field(&b.Title, validation.Required, validation.By(notBlank)),
		validation.Field(&b.Author, validation.Required, validation.By(notBlank)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return nil
}

func notBlank(v any) error {
	s, _ := v.(string)
	if s != "" && strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}

// MarshalJSON writes the fields in Fields order so encoded files are stable.
func (b Book) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range b.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object through FromRecord.
func (b *Book) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformed, err)
	}
	if r == nil {
		return fmt.Errorf("%w: record is null", apperr.ErrMalformed)
	}
	out, err := FromRecord(r)
	if err != nil {
		return err
	}
	*b = out
	return nil
}
