// Package media defines the file storage abstraction for voice note payloads.
// Implementations exist for S3-compatible object stores, Google Cloud
// Storage, and a local-disk caching decorator.
package media

import (
	"context"
	"io"
)

// FileStore handles voice payload storage.
// Implementations can support S3, GCS, local filesystem, etc.
type FileStore interface {
	// Upload stores content and returns a URI for later retrieval.
	Upload(ctx context.Context, filename, contentType string, content io.Reader) (uri string, err error)

	// Load returns a reader for the payload content.
	// Caller is responsible for closing the reader.
	Load(ctx context.Context, uri string) (io.ReadCloser, error)

	// Delete removes the payload from storage.
	Delete(ctx context.Context, uri string) error
}
