package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/yi-nology/photo_bridge/pkg/config"
	"github.com/yi-nology/photo_bridge/pkg/storage/local"
)

// memStorage is an in-memory object backend with optional write failures.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
	base    string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, base: "http://minio:9000/photos/"}
}

func (m *memStorage) PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	if m.failPut {
		return errors.New("connection refused")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) URL(ctx context.Context, key string) (string, error) {
	return m.base + key, nil
}

func (m *memStorage) KeyFromURL(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, m.base) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, m.base), true
}

func (m *memStorage) Type() string { return "mem" }

func newTestBlobStore(t *testing.T, object Storage) *BlobStore {
	t.Helper()
	fsBackend, err := local.New(t.TempDir(), "http://localhost:4002")
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	store, err := NewBlobStore(object, fsBackend)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	return store
}

func TestNewBlobStoreRequiresFilesystem(t *testing.T) {
	if _, err := NewBlobStore(newMemStorage(), nil); err == nil {
		t.Fatalf("expected error without filesystem backend")
	}
}

func TestPrimary(t *testing.T) {
	if got := newTestBlobStore(t, nil).Primary(); got != BackendFilesystem {
		t.Fatalf("expected filesystem primary, got %s", got)
	}
	if got := newTestBlobStore(t, newMemStorage()).Primary(); got != BackendObject {
		t.Fatalf("expected object primary, got %s", got)
	}
}

func TestPutGetRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestBlobStore(t, newMemStorage())

	for _, backend := range []Backend{BackendObject, BackendFilesystem} {
		t.Run(backend.String(), func(t *testing.T) {
			if !store.Put(ctx, backend, "processed/a.webp", []byte("data"), "image/webp") {
				t.Fatalf("Put failed")
			}
			got, err := store.Get(ctx, backend, "processed/a.webp")
			if err != nil || string(got) != "data" {
				t.Fatalf("Get = %q, %v", got, err)
			}
			if !store.Remove(ctx, backend, "processed/a.webp") {
				t.Fatalf("first Remove failed")
			}
			if !store.Remove(ctx, backend, "processed/a.webp") {
				t.Fatalf("second Remove of an absent key must succeed")
			}
			if _, err := store.Get(ctx, backend, "processed/a.webp"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestUnconfiguredObjectBackend(t *testing.T) {
	ctx := context.Background()
	store := newTestBlobStore(t, nil)

	if store.Put(ctx, BackendObject, "originals/a.jpg", []byte("x"), "") {
		t.Fatalf("Put on missing object backend must fail")
	}
	if store.Remove(ctx, BackendObject, "originals/a.jpg") {
		t.Fatalf("Remove on missing object backend must fail")
	}
	if _, ok := store.URLFor(ctx, BackendObject, "originals/a.jpg"); ok {
		t.Fatalf("URLFor on missing object backend must fail")
	}
	if _, err := store.Get(ctx, BackendObject, "originals/a.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailingPutReportsFalse(t *testing.T) {
	mem := newMemStorage()
	mem.failPut = true
	store := newTestBlobStore(t, mem)
	if store.Put(context.Background(), BackendObject, "originals/a.jpg", []byte("x"), "image/jpeg") {
		t.Fatalf("expected false from failing backend")
	}
}

func TestRemoveURL(t *testing.T) {
	ctx := context.Background()
	mem := newMemStorage()
	store := newTestBlobStore(t, mem)

	store.Put(ctx, BackendObject, "thumbs/a_thumb.webp", []byte("t"), "image/webp")
	store.Put(ctx, BackendFilesystem, "thumbs/b_thumb.webp", []byte("t"), "image/webp")

	objURL, _ := store.URLFor(ctx, BackendObject, "thumbs/a_thumb.webp")
	fsURL, _ := store.URLFor(ctx, BackendFilesystem, "thumbs/b_thumb.webp")

	if store.BackendOf(objURL) != BackendObject || store.BackendOf(fsURL) != BackendFilesystem {
		t.Fatalf("BackendOf misclassified %s / %s", objURL, fsURL)
	}
	if !store.RemoveURL(ctx, objURL) || !store.RemoveURL(ctx, fsURL) {
		t.Fatalf("RemoveURL failed")
	}
	if ok, _ := mem.ObjectExists(ctx, "thumbs/a_thumb.webp"); ok {
		t.Fatalf("object blob still present")
	}
	if _, err := store.Get(ctx, BackendFilesystem, "thumbs/b_thumb.webp"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("filesystem blob still present: %v", err)
	}
	if store.RemoveURL(ctx, "https://elsewhere.example.com/x.jpg") {
		t.Fatalf("unknown url must report false")
	}
}

func TestRemoveURL_BucketNamedUploads(t *testing.T) {
	ctx := context.Background()
	mem := newMemStorage()
	mem.base = "http://minio:9000/uploads/"
	store := newTestBlobStore(t, mem)

	store.Put(ctx, BackendObject, "processed/a.webp", []byte("o"), "image/webp")
	store.Put(ctx, BackendFilesystem, "processed/a.webp", []byte("f"), "image/webp")

	objURL, _ := store.URLFor(ctx, BackendObject, "processed/a.webp")
	fsURL, _ := store.URLFor(ctx, BackendFilesystem, "processed/a.webp")
	if got := store.BackendOf(objURL); got != BackendObject {
		t.Fatalf("BackendOf(%s) = %v, want object", objURL, got)
	}
	if got := store.BackendOf(fsURL); got != BackendFilesystem {
		t.Fatalf("BackendOf(%s) = %v, want filesystem", fsURL, got)
	}

	if !store.RemoveURL(ctx, objURL) {
		t.Fatalf("RemoveURL(%s) failed", objURL)
	}
	if ok, _ := mem.ObjectExists(ctx, "processed/a.webp"); ok {
		t.Error("object blob still present")
	}
	if _, err := store.Get(ctx, BackendFilesystem, "processed/a.webp"); err != nil {
		t.Errorf("filesystem blob with the same key was removed: %v", err)
	}
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		cfg  config.ObjectStorageConfig
		want string
	}{
		{config.ObjectStorageConfig{PublicBase: "https://cdn.example.com/"}, "https://cdn.example.com"},
		{config.ObjectStorageConfig{Endpoint: "minio:9000"}, "http://minio:9000"},
		{config.ObjectStorageConfig{Endpoint: "http://minio:9000", Secure: true}, "https://minio:9000"},
		{config.ObjectStorageConfig{}, ""},
	}
	for _, tt := range tests {
		if got := PublicBase(tt.cfg); got != tt.want {
			t.Fatalf("PublicBase(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestNewWithoutObjectConfig(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Local: config.LocalStorageConfig{Root: t.TempDir(), AssetBaseURL: "http://localhost:4002"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.HasObject() {
		t.Fatalf("object backend must be absent when unconfigured")
	}
}
