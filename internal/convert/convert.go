// Package convert moves book lists between the JSON library format, CSV
// and YAML.
package convert

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/datafile"
	"github.com/starford/shelf/internal/models"
)

// Format is a supported file format.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	YAML Format = "yaml"
)

// ErrUnsupported is returned for unknown formats or directions.
var ErrUnsupported = errors.New("unsupported format")

// ParseFormat parses a format name ("yml" is accepted for YAML).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupported, path)
	}
	return ParseFormat(ext)
}

// ReadBooks decodes books in the given format.
func ReadBooks(r io.Reader, f Format) ([]models.Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("convert: read: %w", err)
	}
	switch f {
	case JSON:
		return datafile.Decode(data)
	case CSV:
		return readCSV(data)
	case YAML:
		return readYAML(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, f)
}

// WriteBooks encodes books in the given format.
func WriteBooks(w io.Writer, f Format, books []models.Book) error {
	var data []byte
	var err error
	switch f {
	case JSON:
		data, err = datafile.Encode(books)
	case CSV:
		data, err = encodeCSV(books)
	case YAML:
		data, err = encodeYAML(books)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, f)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("convert: write: %w", err)
	}
	return nil
}

// JSONToCSV converts a JSON library to CSV. The header row is the field list
// of the first record.
func JSONToCSV(r io.Reader, w io.Writer) error {
	books, err := ReadBooks(r, JSON)
	if err != nil {
		return err
	}
	return WriteBooks(w, CSV, books)
}

// CSVToJSON converts CSV with a header row to the JSON library format.
func CSVToJSON(r io.Reader, w io.Writer) error {
	books, err := ReadBooks(r, CSV)
	if err != nil {
		return err
	}
	return WriteBooks(w, JSON, books)
}

// ToYAML writes books as a YAML sequence of mappings in field order.
func ToYAML(books []models.Book, w io.Writer) error {
	return WriteBooks(w, YAML, books)
}

// Convert reads r in format from and writes it to w in format to.
func Convert(r io.Reader, w io.Writer, from, to Format) error {
	switch {
	case from == JSON && to == CSV:
		return JSONToCSV(r, w)
	case from == CSV && to == JSON:
		return CSVToJSON(r, w)
	}
	books, err := ReadBooks(r, from)
	if err != nil {
		return err
	}
	if to == YAML {
		return ToYAML(books, w)
	}
	return WriteBooks(w, to, books)
}

func encodeCSV(books []models.Book) ([]byte, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("convert: csv: %w", apperr.ErrEmptyFile)
	}
	var header []string
	for _, f := range books[0].Fields() {
		header = append(header, f.Name)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("convert: csv: %w", err)
	}
	row := make([]string, len(header))
	for _, b := range books {
		for i, name := range header {
			row[i], _ = b.Get(name)
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("convert: csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("convert: csv: %w", err)
	}
	return buf.Bytes(), nil
}

func readCSV(data []byte) ([]models.Book, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("convert: csv: %w", apperr.ErrEmptyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("convert: csv: %w: %v", apperr.ErrMalformed, err)
	}

	books := []models.Book{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("convert: csv: %w: %v", apperr.ErrMalformed, err)
		}
		rec := make(models.Record, len(header))
		for i, name := range header {
			rec[name] = row[i]
		}
		b, err := toBook(rec)
		if err != nil {
			return nil, fmt.Errorf("convert: csv line %d: %w", line, err)
		}
		books = append(books, b)
	}
	return books, nil
}

func encodeYAML(books []models.Book) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, b := range books {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range b.Fields() {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Value},
			)
		}
		seq.Content = append(seq.Content, m)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return nil, fmt.Errorf("convert: yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("convert: yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func readYAML(data []byte) ([]models.Book, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("convert: yaml: %w", apperr.ErrEmptyFile)
	}
	var recs []models.Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("convert: yaml: %w: %v", apperr.ErrMalformed, err)
	}
	books := make([]models.Book, 0, len(recs))
	for i, rec := range recs {
		b, err := toBook(rec)
		if err != nil {
			return nil, fmt.Errorf("convert: yaml record %d: %w", i, err)
		}
		books = append(books, b)
	}
	return books, nil
}

func toBook(rec models.Record) (models.Book, error) {
	b, err := models.FromRecord(rec)
	if err != nil {
		return models.Book{}, err
	}
	if err := b.Validate(); err != nil {
		return models.Book{}, err
	}
	return b, nil
}
