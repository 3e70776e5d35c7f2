// Package local implements the filesystem storage backend.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Categories are the top-level folders created under the uploads root.
var Categories = []string{"originals", "processed", "thumbs", "carousel", "carousel_thumbs"}

const mount = "/uploads/"

// Storage implements the storage.Storage interface on the local filesystem.
type Storage struct {
	root      string
	assetBase string
}

// New creates the filesystem backend rooted at root and creates the category
// folders. assetBase is the external URL prefix that serves /uploads/.
func New(root, assetBase string) (*Storage, error) {
	if root == "" {
		root = "uploads"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads root: %w", err)
	}
	for _, dir := range Categories {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &Storage{root: abs, assetBase: strings.TrimRight(assetBase, "/")}, nil
}

// PutObject writes a file under the uploads root.
func (s *Storage) PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// GetObject opens a stored file.
func (s *Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found: %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// DeleteObject removes a stored file. Missing files are not an error.
func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// ObjectExists checks if a file exists.
func (s *Storage) ObjectExists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return true, nil
}

// URL returns <asset_base>/uploads/<key>.
func (s *Storage) URL(ctx context.Context, key string) (string, error) {
	return s.assetBase + mount + strings.TrimLeft(key, "/"), nil
}

// KeyFromURL returns the path after /uploads/, without query or fragment.
func (s *Storage) KeyFromURL(rawURL string) (string, bool) {
	i := strings.Index(rawURL, mount)
	if i < 0 {
		return "", false
	}
	key := rawURL[i+len(mount):]
	if j := strings.IndexAny(key, "?#"); j >= 0 {
		key = key[:j]
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	if key == "" {
		return "", false
	}
	return key, true
}

// Type returns "local" as the storage type identifier.
func (s *Storage) Type() string {
	return "local"
}

// Root returns the absolute uploads root.
func (s *Storage) Root() string {
	return s.root
}

// keyToPath maps a key to a path inside the root, rejecting escapes.
func (s *Storage) keyToPath(key string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(key))
	if cleaned == string(filepath.Separator) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, cleaned), nil
}
