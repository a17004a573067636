package datafile

import (
	"errors"
	"io/fs"

	"github.com/starford/shelf/internal/apperr"
)

// IsMissing reports whether err means the library file does not exist.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsEmpty reports whether err means the library file exists but is blank.
func IsEmpty(err error) bool {
	return errors.Is(err, apperr.ErrEmptyFile)
}
