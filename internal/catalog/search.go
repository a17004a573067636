package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/shelf/internal/models"
)

// Mode selects a search strategy.
type Mode string

const (
	ModeSubstring Mode = "substring"
	ModeFuzzy     Mode = "fuzzy"
)

// ParseMode maps a user supplied mode name to a Mode. The empty string
// selects fuzzy search.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFuzzy:
		return ModeFuzzy, nil
	case ModeSubstring:
		return ModeSubstring, nil
	}
	return "", fmt.Errorf("unknown search mode %q (want %q or %q)", s, ModeSubstring, ModeFuzzy)
}

// Search dispatches to the strategy selected by mode.
func (c *Catalog) Search(mode Mode, query string) []models.Book {
	if mode == ModeSubstring {
		return c.SearchSubstring(query)
	}
	return c.SearchFuzzy(query)
}

// SearchSubstring returns the books whose title, author or ISBN contains
// query, compared case-insensitively and literally. Matching runs over the
// index keys; results are in store order. A blank query matches nothing.
func (c *Catalog) SearchSubstring(query string) []models.Book {
	if strings.TrimSpace(query) == "" {
		return []models.Book{}
	}
	q := strings.ToLower(query)

	matched := make(map[int]struct{})
	for key, bucket := range c.byTitle {
		if strings.Contains(strings.ToLower(key), q) {
			for _, p := range bucket {
				matched[p] = struct{}{}
			}
		}
	}
	for key, bucket := range c.byAuthor {
		if strings.Contains(strings.ToLower(key), q) {
			for _, p := range bucket {
				matched[p] = struct{}{}
			}
		}
	}
	for key, p := range c.byISBN {
		if strings.Contains(strings.ToLower(key), q) {
			matched[p] = struct{}{}
		}
	}

	positions := make([]int, 0, len(matched))
	for p := range matched {
		positions = append(positions, p)
	}
	slices.Sort(positions)
	return c.at(positions)
}

// SearchScan evaluates the SearchSubstring predicate by walking the store
// instead of the indices.
func (c *Catalog) SearchScan(query string) []models.Book {
	out := []models.Book{}
	if strings.TrimSpace(query) == "" {
		return out
	}
	q := strings.ToLower(query)
	for _, b := range c.books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.ISBN), q) {
			out = append(out, b)
		}
	}
	return out
}

// fuzzyHit is an index key whose text contains the query as a subsequence.
type fuzzyHit struct {
	span      int
	start     int
	field     int
	key       string
	positions []int
}

// SearchFuzzy returns the books referenced by every title, author or ISBN
// key that contains the query runes in order, case-insensitively, with
// arbitrary gaps. Keys are ranked by the length of their shortest matching
// window, then by where that window starts; a book reached through more
// than one key keeps its best rank. A blank query matches nothing.
func (c *Catalog) SearchFuzzy(query string) []models.Book {
	if strings.TrimSpace(query) == "" {
		return []models.Book{}
	}
	q := []rune(strings.ToLower(query))

	var hits []fuzzyHit
	collect := func(field int, key string, positions []int) {
		span, start, ok := shortestWindow([]rune(strings.ToLower(key)), q)
		if ok {
			hits = append(hits, fuzzyHit{span: span, start: start, field: field, key: key, positions: positions})
		}
	}
	for key, bucket := range c.byTitle {
		collect(0, key, bucket)
	}
	for key, bucket := range c.byAuthor {
		collect(1, key, bucket)
	}
	for key, p := range c.byISBN {
		collect(2, key, []int{p})
	}

	slices.SortFunc(hits, func(a, b fuzzyHit) int {
		return cmp.Or(
			cmp.Compare(a.span, b.span),
			cmp.Compare(a.start, b.start),
			cmp.Compare(a.field, b.field),
			strings.Compare(a.key, b.key),
		)
	})

	seen := make(map[int]struct{})
	var positions []int
	for _, h := range hits {
		for _, p := range h.positions {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			positions = append(positions, p)
		}
	}
	return c.at(positions)
}

// shortestWindow finds the shortest run of key that contains query as a
// subsequence and returns its length and start, both in runes.
func shortestWindow(key, query []rune) (span, start int, ok bool) {
	if len(query) == 0 {
		return 0, 0, false
	}
	best := -1
	for i, r := range key {
		if r != query[0] {
			continue
		}
		j, k := i, 0
		for j < len(key) && k < len(query) {
			if key[j] == query[k] {
				k++
			}
			j++
		}
		if k < len(query) {
			// A later start sees a suffix of this one and cannot match either.
			break
		}
		if w := j - i; best < 0 || w < best {
			best, start = w, i
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, start, true
}
