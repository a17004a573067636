package datafile

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

// SaveResult describes what Save did to the file.
type SaveResult int

const (
	SaveUnchanged SaveResult = iota // file already held the same records
	SaveCreated
	SaveUpdated
	SaveRemoved // library was empty, file deleted
	SaveSkipped // library was empty and there was no file
)

func (r SaveResult) String() string {
	switch r {
	case SaveUnchanged:
		return "library file is already up to date"
	case SaveCreated:
		return "library file created"
	case SaveUpdated:
		return "library file updated"
	case SaveRemoved:
		return "library is empty, file removed"
	case SaveSkipped:
		return "library is empty, nothing to save"
	}
	return fmt.Sprintf("SaveResult(%d)", int(r))
}

// Wrote reports whether the file on disk changed.
func (r SaveResult) Wrote() bool {
	return r == SaveCreated || r == SaveUpdated || r == SaveRemoved
}

var sameBooks = cmp.Options{cmpopts.EquateEmpty()}

// Save writes books to name unless the file already holds the same records.
func Save(store storage.Provider, name string, books []models.Book) (SaveResult, error) {
	exists, err := store.Exists(name)
	if err != nil {
		return 0, fmt.Errorf("datafile: save: %w", err)
	}

	if len(books) == 0 {
		if !exists {
			return SaveSkipped, nil
		}
		if err := store.Delete(name); err != nil {
			return 0, fmt.Errorf("datafile: save: %w", err)
		}
		return SaveRemoved, nil
	}

	data, err := Encode(books)
	if err != nil {
		return 0, err
	}

	result := SaveCreated
	if exists {
		result = SaveUpdated
		current, err := store.Read(name)
		if err != nil {
			return 0, fmt.Errorf("datafile: save: %w", err)
		}
		if checksum.Sum(current) == checksum.Sum(data) {
			return SaveUnchanged, nil
		}
		if prev, err := Decode(current); err == nil && cmp.Equal(prev, books, sameBooks) {
			return SaveUnchanged, nil
		}
	}

	if err := store.Write(name, data); err != nil {
		return 0, fmt.Errorf("datafile: save: %w", err)
	}
	return result, nil
}
