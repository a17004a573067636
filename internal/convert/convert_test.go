package convert

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/datafile"
	"github.com/starford/shelf/internal/models"
)

func books() []models.Book {
	dune := models.NewBook("Dune", "Frank Herbert", "001")
	dune.Year = "1965"
	emma := models.NewBook("Emma", "Jane Austen", "002")
	emma.Extra = map[string]string{"shelf": "B2"}
	return []models.Book{dune, emma}
}

func TestJSONToCSV(t *testing.T) {
	src, _ := datafile.Encode(books())
	var out bytes.Buffer
	if err := JSONToCSV(bytes.NewReader(src), &out); err != nil {
		t.Fatalf("JSONToCSV: %v", err)
	}
	want := "title,author,isbn,publisher,cover,category,edition,year,pages\n" +
		"Dune,Frank Herbert,001,not_set,not_set,not_set,0,1965,0\n" +
		"Emma,Jane Austen,002,not_set,not_set,not_set,0,0,0\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONToCSVMissingCellIsEmpty(t *testing.T) {
	first := models.NewBook("Emma", "Jane Austen", "002")
	first.Extra = map[string]string{"shelf": "B2"}
	second := models.NewBook("Dune", "Frank Herbert", "001")
	src, _ := datafile.Encode([]models.Book{first, second})

	var out bytes.Buffer
	if err := JSONToCSV(bytes.NewReader(src), &out); err != nil {
		t.Fatalf("JSONToCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if !strings.HasSuffix(lines[0], ",shelf") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], ",0,") {
		t.Errorf("second row should end with an empty cell: %q", lines[2])
	}
}

func TestJSONToCSVEmptyList(t *testing.T) {
	err := JSONToCSV(strings.NewReader("[]"), &bytes.Buffer{})
	if !errors.Is(err, apperr.ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestCSVToJSON(t *testing.T) {
	in := "isbn,title,author,year\n001,Dune,Frank Herbert,1965\n002,\"Emma, Vol. 1\",Jane Austen,1815\n"
	var out bytes.Buffer
	if err := CSVToJSON(strings.NewReader(in), &out); err != nil {
		t.Fatalf("CSVToJSON: %v", err)
	}
	got, err := datafile.Decode(out.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[1].Title != "Emma, Vol. 1" || got[1].Year != "1815" || got[1].Publisher != models.NotSet {
		t.Errorf("second book = %+v", got[1])
	}
}

func TestCSVToJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", apperr.ErrEmptyFile},
		{"ragged row", "isbn,title,author\n1,t\n", apperr.ErrMalformed},
		{"missing author", "isbn,title\n1,t\n", apperr.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CSVToJSON(strings.NewReader(tt.in), &bytes.Buffer{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var out bytes.Buffer
	if err := ToYAML(books(), &out); err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	if !strings.HasPrefix(out.String(), "- title: Dune\n  author: Frank Herbert\n") {
		t.Errorf("yaml does not keep field order:\n%s", out.String())
	}
	got, err := ReadBooks(&out, YAML)
	if err != nil {
		t.Fatalf("ReadBooks: %v", err)
	}
	if diff := cmp.Diff(books(), got); diff != "" {
		t.Errorf("yaml round trip (-want +got):\n%s", diff)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"data/books.json", JSON, true},
		{"books.CSV", CSV, true},
		{"books.yml", YAML, true},
		{"books.yaml", YAML, true},
		{"books.txt", "", false},
		{"books", "", false},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FormatOf(%q) = %q, %v", tt.path, got, err)
		}
	}
}

func TestExportAndImportFile(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "library.json")
	data, _ := datafile.Encode(books())
	if err := os.WriteFile(lib, data, 0o644); err != nil {
		t.Fatal(err)
	}

	csvPath := filepath.Join(dir, "library.csv")
	if err := ExportFile(lib, csvPath, false); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	if err := ExportFile(lib, csvPath, false); !errors.Is(err, ErrDestinationExists) {
		t.Errorf("second export err = %v, want ErrDestinationExists", err)
	}
	if err := ExportFile(lib, csvPath, true); err != nil {
		t.Errorf("forced export: %v", err)
	}

	back := filepath.Join(dir, "back.json")
	if err := ImportFile(csvPath, back, false); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	raw, _ := os.ReadFile(back)
	got, err := datafile.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// The CSV header comes from the first record, so the second record's
	// extra field does not survive.
	want := books()
	want[1].Extra = nil
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("csv round trip (-want +got):\n%s", diff)
	}

	if err := ExportFile(csvPath, filepath.Join(dir, "x.yaml"), false); !errors.Is(err, ErrUnsupported) {
		t.Errorf("export from csv err = %v", err)
	}
	if err := ImportFile(csvPath, filepath.Join(dir, "x.csv"), false); !errors.Is(err, ErrUnsupported) {
		t.Errorf("import to csv err = %v", err)
	}
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yml")
	if err := WriteFile(path, books(), false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, books(), false); !errors.Is(err, ErrDestinationExists) {
		t.Errorf("second WriteFile err = %v, want ErrDestinationExists", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(books(), got); diff != "" {
		t.Errorf("yaml file round trip (-want +got):\n%s", diff)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile missing err = %v", err)
	}
	if err := WriteFile(filepath.Join(t.TempDir(), "out.txt"), books(), false); !errors.Is(err, ErrUnsupported) {
		t.Errorf("WriteFile txt err = %v", err)
	}
}

func TestConvert(t *testing.T) {
	src, _ := datafile.Encode(books())

	var direct, via bytes.Buffer
	if err := JSONToCSV(bytes.NewReader(src), &direct); err != nil {
		t.Fatal(err)
	}
	if err := Convert(bytes.NewReader(src), &via, JSON, CSV); err != nil {
		t.Fatalf("Convert json to csv: %v", err)
	}
	if diff := cmp.Diff(direct.String(), via.String()); diff != "" {
		t.Errorf("csv (-JSONToCSV +Convert):\n%s", diff)
	}

	var yml, back bytes.Buffer
	if err := Convert(bytes.NewReader(src), &yml, JSON, YAML); err != nil {
		t.Fatalf("Convert json to yaml: %v", err)
	}
	if err := Convert(&yml, &back, YAML, JSON); err != nil {
		t.Fatalf("Convert yaml to json: %v", err)
	}
	got, err := datafile.Decode(back.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(books(), got); diff != "" {
		t.Errorf("yaml round trip (-want +got):\n%s", diff)
	}

	if err := Convert(strings.NewReader("[]"), io.Discard, JSON, CSV); !errors.Is(err, apperr.ErrEmptyFile) {
		t.Errorf("empty list err = %v, want ErrEmptyFile", err)
	}
}
