// Package storage provides the S3-compatible object store that holds
// raw document content. The ingestion boundary reads documents from it
// by storage key, and the load stage archives normalized output next to
// the original.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the interface for document object storage.
type ObjectStorage interface {
	// Upload stores an object under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download retrieves an object by key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by key
	Delete(ctx context.Context, key string) error

	// Exists checks whether an object exists
	Exists(ctx context.Context, key string) (bool, error)
}

// NormalizedKey returns the archive key for a document's normalized
// content, derived from its raw storage key.
func NormalizedKey(rawKey string) string {
	return rawKey + ".normalized.json"
}
