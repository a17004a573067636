// Package checksum fingerprints library content for change detection and
// optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Of returns the digest of v's JSON encoding. Values with a stable
// MarshalJSON (such as books) yield stable tags.
func Of(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("checksum: encode: %w", err)
	}
	return Sum(data), nil
}

// ETag quotes a digest for use in HTTP headers.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Match reports whether an If-Match header value names sum. "*" matches any.
func Match(header, sum string) bool {
	if header == "*" {
		return true
	}
	if len(header) >= 2 && header[0] == '"' && header[len(header)-1] == '"' {
		header = header[1 : len(header)-1]
	}
	return header == sum
}
