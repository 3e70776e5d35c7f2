package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/photo_bridge/pkg/config"
	"github.com/yi-nology/photo_bridge/pkg/storage/local"
	"github.com/yi-nology/photo_bridge/pkg/storage/minio"
	"github.com/yi-nology/photo_bridge/pkg/storage/s3"
)

// New builds the BlobStore from configuration. The filesystem backend is
// mandatory. An object backend that is unconfigured or unreachable is logged
// and left out, and the store runs filesystem-only.
func New(ctx context.Context, cfg config.StorageConfig) (*BlobStore, error) {
	fsBackend, err := local.New(cfg.Local.Root, cfg.Local.AssetBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init filesystem storage: %w", err)
	}

	var object Storage
	if cfg.Object.Enabled() {
		object, err = NewObject(ctx, cfg.Object)
		if err != nil {
			hlog.CtxWarnf(ctx, "storage: object store unavailable, using filesystem only: %v", err)
			object = nil
		} else {
			hlog.CtxInfof(ctx, "storage: object store %s ready (bucket=%s)", object.Type(), cfg.Object.Bucket)
		}
	}
	return NewBlobStore(object, fsBackend)
}

// NewObject creates the object backend selected by cfg.Driver.
func NewObject(ctx context.Context, cfg config.ObjectStorageConfig) (Storage, error) {
	publicBase := PublicBase(cfg)
	switch strings.ToLower(cfg.Driver) {
	case "", "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:       cfg.Endpoint,
			Region:         cfg.Region,
			Bucket:         cfg.Bucket,
			AccessKey:      cfg.AccessKey,
			SecretKey:      cfg.SecretKey,
			UseSSL:         cfg.Secure,
			PublicBase:     publicBase,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			Retry:          cfg.Retry,
		})
	case "s3":
		return s3.New(ctx, s3.Config{
			Endpoint:       cfg.Endpoint,
			Region:         cfg.Region,
			Bucket:         cfg.Bucket,
			AccessKey:      cfg.AccessKey,
			SecretKey:      cfg.SecretKey,
			UseSSL:         cfg.Secure,
			PathStyle:      cfg.PathStyle,
			PublicBase:     publicBase,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			Retry:          cfg.Retry,
		})
	default:
		return nil, fmt.Errorf("unsupported object storage driver: %s", cfg.Driver)
	}
}

// PublicBase returns the configured public base, or one derived from the
// endpoint and the secure flag.
func PublicBase(cfg config.ObjectStorageConfig) string {
	if cfg.PublicBase != "" {
		return strings.TrimRight(cfg.PublicBase, "/")
	}
	if cfg.Endpoint == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(host, "/")
}
