package catalog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

func book(title, author, isbn string) models.Book {
	return models.NewBook(title, author, isbn)
}

func isbns(books []models.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ISBN
	}
	return out
}

func mustAdd(t *testing.T, c *Catalog, books ...models.Book) {
	t.Helper()
	for _, b := range books {
		if err := c.Add(b); err != nil {
			t.Fatalf("Add(%s): %v", b.ISBN, err)
		}
	}
	if err := c.Verify(); err != nil {
		t.Fatalf("Verify after add: %v", err)
	}
}

func TestAddAndGet(t *testing.T) {
	c := New()
	mustAdd(t, c, book("Dune", "Herbert", "001"))

	got, ok := c.Get("001")
	if !ok {
		t.Fatal("Get(001) not found")
	}
	if got.Title != "Dune" || got.Author != "Herbert" {
		t.Errorf("got %+v", got)
	}
	if got.Publisher != models.NotSet || got.Pages != "0" {
		t.Errorf("defaults not applied: %+v", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestAddDuplicateLeavesStoreUnchanged(t *testing.T) {
	c := New()
	mustAdd(t, c, book("Dune", "Herbert", "001"))

	err := c.Add(book("Other", "Someone", "001"))
	if !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d after rejected add", c.Len())
	}
	if got := c.ByTitle("Other"); len(got) != 0 {
		t.Errorf("rejected book indexed by title: %v", got)
	}
	if err := c.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	c := New()
	for _, b := range []models.Book{
		book("Dune", "Herbert", ""),
		book("", "Herbert", "001"),
		book("Dune", "   ", "001"),
	} {
		if err := c.Add(b); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Add(%+v) err = %v, want ErrInvalid", b, err)
		}
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestRemoveReindexes(t *testing.T) {
	c := New()
	mustAdd(t, c,
		book("Alpha", "Ann", "A"),
		book("Beta", "Bob", "B"),
		book("Gamma", "Ann", "C"),
		book("Delta", "Bob", "D"),
	)

	removed, err := c.Remove("B")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.Title != "Beta" {
		t.Errorf("removed = %+v", removed)
	}
	if diff := cmp.Diff([]string{"A", "C", "D"}, isbns(c.All())); diff != "" {
		t.Errorf("store order (-want +got):\n%s", diff)
	}
	for isbn, want := range map[string]int{"A": 0, "C": 1, "D": 2} {
		if got, _ := c.Position(isbn); got != want {
			t.Errorf("Position(%s) = %d, want %d", isbn, got, want)
		}
	}
	if diff := cmp.Diff([]string{"D"}, isbns(c.ByAuthor("Bob"))); diff != "" {
		t.Errorf("ByAuthor(Bob) (-want +got):\n%s", diff)
	}
	if got := c.ByTitle("Beta"); len(got) != 0 {
		t.Errorf("ByTitle(Beta) = %v, want empty", got)
	}
	if _, ok := c.byTitle["Beta"]; ok {
		t.Error("empty title bucket left behind")
	}
	if err := c.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestRemoveLastAndOnly(t *testing.T) {
	c := New()
	mustAdd(t, c, book("Solo", "One", "1"))
	if _, err := c.Remove("1"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 || len(c.byTitle) != 0 || len(c.byAuthor) != 0 || len(c.byISBN) != 0 {
		t.Errorf("catalog not empty: %+v", c)
	}
}

func TestBucketsKeepInsertionOrder(t *testing.T) {
	c := New()
	mustAdd(t, c,
		book("Same", "X", "3"),
		book("Other", "Y", "1"),
		book("Same", "Z", "2"),
		book("Same", "X", "0"),
	)
	if diff := cmp.Diff([]string{"3", "2", "0"}, isbns(c.ByTitle("Same"))); diff != "" {
		t.Errorf("ByTitle (-want +got):\n%s", diff)
	}
	if _, err := c.Remove("1"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"3", "2", "0"}, isbns(c.ByTitle("Same"))); diff != "" {
		t.Errorf("ByTitle after remove (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3", "0"}, isbns(c.ByAuthor("X"))); diff != "" {
		t.Errorf("ByAuthor (-want +got):\n%s", diff)
	}
}

func TestEdit(t *testing.T) {
	c := New()
	mustAdd(t, c,
		book("Dune", "Herbert", "001"),
		book("Emma", "Austen", "002"),
	)

	if err := c.Edit("001", book("Dune Messiah", "Frank Herbert", "003")); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if c.Has("001") {
		t.Error("old isbn still present")
	}
	if diff := cmp.Diff([]string{"002", "003"}, isbns(c.All())); diff != "" {
		t.Errorf("store (-want +got):\n%s", diff)
	}
	if got := c.ByAuthor("Herbert"); len(got) != 0 {
		t.Errorf("old author bucket survives: %v", got)
	}
	if err := c.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestEditSameISBN(t *testing.T) {
	c := New()
	mustAdd(t, c, book("Dune", "Herbert", "001"), book("Emma", "Austen", "002"))
	if err := c.Edit("001", book("Dune (revised)", "Herbert", "001")); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, _ := c.Get("001")
	if got.Title != "Dune (revised)" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestEditFailuresLeaveCatalogUntouched(t *testing.T) {
	c := New()
	mustAdd(t, c, book("Dune", "Herbert", "001"), book("Emma", "Austen", "002"))
	before := c.All()

	if err := c.Edit("404", book("X", "Y", "005")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing old isbn err = %v", err)
	}
	if err := c.Edit("001", book("X", "Y", "002")); !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Errorf("taken isbn err = %v", err)
	}
	if err := c.Edit("001", book("", "Y", "009")); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("invalid book err = %v", err)
	}
	if diff := cmp.Diff(before, c.All()); diff != "" {
		t.Errorf("catalog changed (-before +after):\n%s", diff)
	}
}

func TestEmptyCatalog(t *testing.T) {
	c := New()
	if _, ok := c.Get("x"); ok {
		t.Error("Get on empty catalog found something")
	}
	if _, err := c.Remove("x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Remove err = %v, want ErrNotFound", err)
	}
	if got := c.SearchSubstring("x"); len(got) != 0 {
		t.Errorf("SearchSubstring = %v", got)
	}
	if got := c.SearchFuzzy("x"); len(got) != 0 {
		t.Errorf("SearchFuzzy = %v", got)
	}
	if got := c.ByTitle("x"); got == nil || len(got) != 0 {
		t.Errorf("ByTitle = %#v, want empty non-nil", got)
	}
	if err := c.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadStopsAtFirstFailure(t *testing.T) {
	_, err := Load([]models.Book{
		book("A", "a", "1"),
		book("B", "b", "1"),
	})
	if !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}

	c, err := Load([]models.Book{book("A", "a", "1"), book("B", "b", "2")})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2"}, isbns(c.All())); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestAddClonesExtra(t *testing.T) {
	c := New()
	b := book("Dune", "Herbert", "001")
	b.Set("language", "en")
	mustAdd(t, c, b)

	b.Extra["language"] = "fr"
	got, _ := c.Get("001")
	if got.Extra["language"] != "en" {
		t.Errorf("stored extra mutated through caller map: %q", got.Extra["language"])
	}
}

func TestStats(t *testing.T) {
	c := New()
	mustAdd(t, c,
		book("Dune", "Herbert", "001"),
		book("Dune", "Herbert", "002"),
		book("Emma", "Austen", "003"),
	)
	want := Stats{Books: 3, Titles: 2, Authors: 2}
	if got := c.Stats(); got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
	if diff := cmp.Diff([]string{"Austen", "Herbert"}, c.Authors()); diff != "" {
		t.Errorf("Authors (-want +got):\n%s", diff)
	}
}

func TestVerifyDetectsStalePositions(t *testing.T) {
	c := New()
	mustAdd(t, c, book("A", "a", "1"), book("B", "b", "2"))
	c.byISBN["2"] = 5
	if err := c.Verify(); !errors.Is(err, apperr.ErrCorrupt) {
		t.Errorf("Verify err = %v, want ErrCorrupt", err)
	}
}
