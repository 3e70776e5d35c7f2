package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yi-nology/photo_bridge/biz/dal/db"
	"github.com/yi-nology/photo_bridge/pkg/asseturl"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
	"github.com/yi-nology/photo_bridge/pkg/storage"
	"github.com/yi-nology/photo_bridge/pkg/storage/local"
)

const (
	testAssetBase  = "http://localhost:4002"
	testObjectBase = "http://minio.test:9000/photos/"
)

// fakeObject is an in-memory object backend. Puts of keys starting with
// failPrefix fail; an empty failPrefix with failAll set fails every put.
type fakeObject struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failAll    bool
	failPrefix string
}

func newFakeObject() *fakeObject {
	return &fakeObject{objects: map[string][]byte{}}
}

func (f *fakeObject) PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	if f.failAll || (f.failPrefix != "" && strings.HasPrefix(key, f.failPrefix)) {
		return errors.New("dial tcp: connection refused")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeObject) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeObject) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObject) ObjectExists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObject) URL(ctx context.Context, key string) (string, error) {
	return testObjectBase + key, nil
}

func (f *fakeObject) KeyFromURL(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, testObjectBase) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, testObjectBase), true
}

func (f *fakeObject) Type() string { return "fake" }

func (f *fakeObject) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeObject) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type testEnv struct {
	db     *gorm.DB
	logic  *Logic
	store  *storage.BlobStore
	root   string
	object *fakeObject
	svc    *Service
}

// newTestEnv wires a Service over in-memory sqlite and a temp uploads root.
// A nil object leaves the store filesystem-only.
func newTestEnv(t *testing.T, object *fakeObject, limits QuotaLimits) *testEnv {
	t.Helper()

	conn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, conn) })

	root := t.TempDir()
	fsStore, err := local.New(root, testAssetBase)
	if err != nil {
		t.Fatalf("local.New() error = %v", err)
	}
	var objectStore storage.Storage
	if object != nil {
		objectStore = object
	}
	store, err := storage.NewBlobStore(objectStore, fsStore)
	if err != nil {
		t.Fatalf("NewBlobStore() error = %v", err)
	}

	logic := NewLogic(conn)
	svc := NewService(logic, Options{
		Store:       store,
		Transformer: imaging.New(2),
		Resolver:    asseturl.New(testAssetBase, asseturl.KeepObjectURLs(store.IsObjectURL)),
		Limits:      limits,
	})
	return &testEnv{db: conn, logic: logic, store: store, root: root, object: object, svc: svc}
}

// localFiles counts the files stored under one category directory.
func (e *testEnv) localFiles(t *testing.T, category string) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.root, category))
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", category, err)
	}
	return len(entries)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}
