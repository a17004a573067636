package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"

	"github.com/starford/shelf/internal/models"
)

// ErrDestinationExists is returned when a conversion would overwrite a file
// and force was not set.
var ErrDestinationExists = errors.New("destination already exists")

// ExportFile converts the JSON library at src into dst, whose extension
// selects CSV or YAML.
func ExportFile(src, dst string, force bool) error {
	if f, err := FormatOf(src); err != nil || f != JSON {
		return fmt.Errorf("convert: export source must be a .json file: %w", ErrUnsupported)
	}
	return ConvertFile(src, dst, force)
}

// ImportFile converts the CSV or YAML file at src into the JSON library dst.
func ImportFile(src, dst string, force bool) error {
	if f, err := FormatOf(dst); err != nil || f != JSON {
		return fmt.Errorf("convert: import destination must be a .json file: %w", ErrUnsupported)
	}
	return ConvertFile(src, dst, force)
}

// ConvertFile converts src to dst, choosing both formats from the extensions.
func ConvertFile(src, dst string, force bool) error {
	to, err := FormatOf(dst)
	if err != nil {
		return err
	}
	from, err := FormatOf(src)
	if err != nil {
		return err
	}
	if err := checkDestination(dst, force); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	defer in.Close()

	var buf bytes.Buffer
	if err := Convert(in, &buf, from, to); err != nil {
		return fmt.Errorf("convert: %s: %w", src, err)
	}
	if err := atomic.WriteFile(dst, &buf); err != nil {
		return fmt.Errorf("convert: write %s: %w", dst, err)
	}
	return nil
}

// ReadFile reads the books in src, choosing the format from its extension.
func ReadFile(src string) ([]models.Book, error) {
	from, err := FormatOf(src)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	defer in.Close()

	books, err := ReadBooks(in, from)
	if err != nil {
		return nil, fmt.Errorf("convert: %s: %w", src, err)
	}
	return books, nil
}

// WriteFile writes books to dst in the format named by its extension.
func WriteFile(dst string, books []models.Book, force bool) error {
	to, err := FormatOf(dst)
	if err != nil {
		return err
	}
	if err := checkDestination(dst, force); err != nil {
		return err
	}
	return writeFile(dst, to, books)
}

func checkDestination(dst string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("convert: %s: %w", dst, ErrDestinationExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("convert: stat %s: %w", dst, err)
	}
	return nil
}

func writeFile(dst string, f Format, books []models.Book) error {
	var buf bytes.Buffer
	if err := WriteBooks(&buf, f, books); err != nil {
		return fmt.Errorf("convert: %s: %w", dst, err)
	}
	if err := atomic.WriteFile(dst, &buf); err != nil {
		return fmt.Errorf("convert: write %s: %w", dst, err)
	}
	return nil
}
