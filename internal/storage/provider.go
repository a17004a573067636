// Package storage is the file-system layer under the library data file:
// rooted path resolution, atomic whole-file writes and cross-process locks.
package storage

// Provider is the interface for data-directory file operations.
type Provider interface {
	// Read returns the raw bytes of the file at name (relative to the root).
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name with content.
	Write(name string, content []byte) error
	// Delete removes the file at name.
	Delete(name string) error
	// Exists reports whether a regular file is present at name.
	Exists(name string) (bool, error)
	// Path returns the absolute path for name.
	Path(name string) (string, error)
}
