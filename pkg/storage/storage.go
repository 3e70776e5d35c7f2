// Package storage defines the blob storage layer for photo assets.
// An asset lives on exactly one of two backends: an S3-compatible object
// store (AWS S3, MinIO) or the local filesystem fallback served under /uploads/.
package storage

import (
	"context"
	"errors"
	"io"
)

// Backend identifies which storage backend holds an asset.
type Backend int

const (
	// BackendFilesystem is the local uploads tree.
	BackendFilesystem Backend = iota
	// BackendObject is the S3-compatible object store.
	BackendObject
)

func (b Backend) String() string {
	switch b {
	case BackendObject:
		return "object"
	case BackendFilesystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// ErrNotFound is returned by BlobStore.Get when the key is absent.
var ErrNotFound = errors.New("object not found")

// Storage defines the operations every backend driver implements.
// Drivers report absent keys with errors wrapping fs.ErrNotExist.
type Storage interface {
	// PutObject uploads data under key.
	PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error

	// GetObject retrieves an object. The caller must close the reader.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes an object. Deleting an absent key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// URL returns a publicly resolvable URL for key.
	URL(ctx context.Context, key string) (string, error)

	// KeyFromURL recovers the key from a URL produced by URL.
	KeyFromURL(rawURL string) (string, bool)

	// Type returns the driver identifier ("local", "s3" or "minio").
	Type() string
}
