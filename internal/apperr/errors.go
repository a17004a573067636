// Package apperr holds the sentinel errors shared across shelf packages.
// Callers wrap them with context and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalid      = errors.New("invalid record")
	ErrMalformed    = errors.New("malformed persisted data")
	ErrEmptyFile    = errors.New("empty file")
	ErrConflict     = errors.New("conflict")
	ErrCorrupt      = errors.New("index corrupt")
)
