package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/photo_bridge/pkg/metrics"
)

// UploadsSegment marks URLs served from the filesystem backend.
const UploadsSegment = "/uploads/"

// BlobStore routes blob operations to the object or filesystem backend.
// The object backend is optional; the filesystem backend is always present.
type BlobStore struct {
	object Storage
	local  Storage
}

// NewBlobStore creates a BlobStore. object may be nil when no object store is configured.
func NewBlobStore(object, local Storage) (*BlobStore, error) {
	if local == nil {
		return nil, errors.New("filesystem backend is required")
	}
	return &BlobStore{object: object, local: local}, nil
}

// HasObject reports whether an object backend is configured.
func (b *BlobStore) HasObject() bool {
	return b.object != nil
}

// Primary returns the backend uploads should attempt first.
func (b *BlobStore) Primary() Backend {
	if b.object != nil {
		return BackendObject
	}
	return BackendFilesystem
}

func (b *BlobStore) driver(backend Backend) Storage {
	switch backend {
	case BackendObject:
		return b.object
	case BackendFilesystem:
		return b.local
	default:
		return nil
	}
}

// Put writes data under key. It never returns an error: false means the
// write did not happen, including when the backend is not configured.
func (b *BlobStore) Put(ctx context.Context, backend Backend, key string, data []byte, contentType string) bool {
	d := b.driver(backend)
	if d == nil {
		metrics.StorePuts.WithLabelValues(backend.String(), metrics.Result(false)).Inc()
		return false
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := d.PutObject(ctx, key, bytes.NewReader(data), contentType, int64(len(data)))
	metrics.StorePuts.WithLabelValues(backend.String(), metrics.Result(err == nil)).Inc()
	if err != nil {
		hlog.CtxWarnf(ctx, "storage: put %s on %s failed: %v", key, backend, err)
		return false
	}
	return true
}

// Get reads the full object. Absent keys return ErrNotFound.
func (b *BlobStore) Get(ctx context.Context, backend Backend, key string) ([]byte, error) {
	d := b.driver(backend)
	if d == nil {
		return nil, fmt.Errorf("%s backend not configured: %w", backend, ErrNotFound)
	}
	rc, err := d.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Remove deletes key. Removing an absent key succeeds.
func (b *BlobStore) Remove(ctx context.Context, backend Backend, key string) bool {
	d := b.driver(backend)
	if d == nil || key == "" {
		return false
	}
	err := d.DeleteObject(ctx, key)
	metrics.StoreRemovals.WithLabelValues(backend.String(), metrics.Result(err == nil)).Inc()
	if err != nil {
		hlog.CtxWarnf(ctx, "storage: remove %s on %s failed: %v", key, backend, err)
		return false
	}
	return true
}

// URLFor returns the public URL of key on backend.
func (b *BlobStore) URLFor(ctx context.Context, backend Backend, key string) (string, bool) {
	d := b.driver(backend)
	if d == nil {
		return "", false
	}
	u, err := d.URL(ctx, key)
	if err != nil || u == "" {
		hlog.CtxWarnf(ctx, "storage: url for %s on %s failed: %v", key, backend, err)
		return "", false
	}
	return u, true
}

// Locate tells which backend produced url and recovers its key.
func (b *BlobStore) Locate(url string) (Backend, string, bool) {
	backend := b.BackendOf(url)
	d := b.driver(backend)
	if d == nil {
		return backend, "", false
	}
	key, ok := d.KeyFromURL(url)
	return backend, key, ok
}

// RemoveURL deletes the blob behind a URL produced by either backend.
// Unrecognised URLs are ignored and reported as false.
func (b *BlobStore) RemoveURL(ctx context.Context, url string) bool {
	backend, key, ok := b.Locate(url)
	if !ok {
		return false
	}
	return b.Remove(ctx, backend, key)
}

// BackendOf tells which backend produced url. A URL the object backend
// claims is an object URL even when its path holds /uploads/ (a bucket or
// public base named "uploads"); otherwise the /uploads/ segment marks the
// filesystem.
func (b *BlobStore) BackendOf(url string) Backend {
	if b.IsObjectURL(url) {
		return BackendObject
	}
	if strings.Contains(url, UploadsSegment) {
		return BackendFilesystem
	}
	return BackendObject
}

// IsObjectURL reports whether the object backend recognises url as its own.
func (b *BlobStore) IsObjectURL(url string) bool {
	if b.object == nil {
		return false
	}
	_, ok := b.object.KeyFromURL(url)
	return ok
}
