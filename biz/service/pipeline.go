package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/photo_bridge/biz/dal/model"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
	"github.com/yi-nology/photo_bridge/pkg/keyname"
	"github.com/yi-nology/photo_bridge/pkg/metrics"
	"github.com/yi-nology/photo_bridge/pkg/storage"
)

const defaultContentType = "application/octet-stream"

// Asset is one stored blob.
type Asset struct {
	Key         string
	Backend     storage.Backend
	ContentType string
	SizeBytes   int64
	URL         string
}

// DerivedSet is the stored result of one upload. When the source could not be
// decoded Processed and Thumbnail both equal Original. Carousel uploads keep
// no Original.
type DerivedSet struct {
	Original  Asset
	Processed Asset
	Thumbnail Asset
	// SizeBytes is the size of the uploaded payload.
	SizeBytes int64
	Degraded  bool
}

// Keys lists the distinct blob keys of the set.
func (d *DerivedSet) Keys() []string {
	keys := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	for _, a := range []Asset{d.Original, d.Processed, d.Thumbnail} {
		if a.Key != "" && !seen[a.Key] {
			seen[a.Key] = true
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// IngestInput is a raw upload.
type IngestInput struct {
	UserID      uint
	Data        []byte
	FileName    string
	ContentType string
}

// Pipeline turns raw uploads into stored derived sets. It writes blobs only;
// Catalog inserts are the caller's job.
type Pipeline struct {
	store       *storage.BlobStore
	transformer *imaging.Transformer
	namer       keyname.Namer
	quota       *QuotaGuard
	catalog     Catalog
}

func NewPipeline(store *storage.BlobStore, transformer *imaging.Transformer, quota *QuotaGuard, catalog Catalog) *Pipeline {
	return &Pipeline{
		store:       store,
		transformer: transformer,
		quota:       quota,
		catalog:     catalog,
	}
}

type blob struct {
	key         string
	data        []byte
	contentType string
}

// Ingest checks the quota, derives variants and stores the set on the
// object backend, or on the filesystem when any object write fails.
func (p *Pipeline) Ingest(ctx context.Context, in IngestInput) (*DerivedSet, error) {
	size := int64(len(in.Data))
	if size == 0 {
		return nil, invalidInput("empty upload")
	}
	if p.quota != nil {
		if err := p.quota.Check(ctx, in.UserID, size); err != nil {
			metrics.Ingests.WithLabelValues("photo", "rejected").Inc()
			return nil, err
		}
	}

	keys := p.namer.Keys(in.FileName)
	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	blobs := []blob{{key: keys.Original, data: in.Data, contentType: contentType}}
	degraded := false
	variants, err := p.transformer.Transform(ctx, in.Data)
	switch {
	case err == nil:
		blobs = append(blobs,
			blob{key: keys.Processed, data: variants.Processed.Data, contentType: imaging.ContentType},
			blob{key: keys.Thumbnail, data: variants.Thumbnail.Data, contentType: imaging.ContentType},
		)
	case imaging.IsDecodeError(err):
		hlog.CtxWarnf(ctx, "pipeline: %s not decodable, storing original only: %v", in.FileName, err)
		metrics.DecodeFailures.Inc()
		degraded = true
	default:
		return nil, err
	}

	assets, err := p.persist(ctx, blobs)
	if err != nil {
		metrics.Ingests.WithLabelValues("photo", "failed").Inc()
		return nil, err
	}

	set := &DerivedSet{Original: assets[0], SizeBytes: size, Degraded: degraded}
	if degraded {
		set.Processed, set.Thumbnail = assets[0], assets[0]
	} else {
		set.Processed, set.Thumbnail = assets[1], assets[2]
	}
	metrics.Ingests.WithLabelValues("photo", "ok").Inc()
	return set, nil
}

// IngestCarousel crops the upload to the carousel canvas and stores it.
// It fails with ErrCarouselFull once MaxCarouselSlots slots exist, and with a
// *imaging.DecodeError when the upload is not a decodable image.
func (p *Pipeline) IngestCarousel(ctx context.Context, in IngestInput) (*DerivedSet, error) {
	return p.ingestCarousel(ctx, in, true)
}

// IngestCarouselReplacement is IngestCarousel for an existing slot, so the
// slot cap does not apply.
func (p *Pipeline) IngestCarouselReplacement(ctx context.Context, in IngestInput) (*DerivedSet, error) {
	return p.ingestCarousel(ctx, in, false)
}

func (p *Pipeline) ingestCarousel(ctx context.Context, in IngestInput, capped bool) (*DerivedSet, error) {
	if capped {
		if err := p.ensureCarouselRoom(ctx); err != nil {
			return nil, err
		}
	}

	variants, err := p.transformer.TransformCarousel(ctx, in.Data)
	if err != nil {
		if imaging.IsDecodeError(err) {
			metrics.DecodeFailures.Inc()
		}
		metrics.Ingests.WithLabelValues("carousel", "rejected").Inc()
		return nil, err
	}

	keys := p.namer.CarouselKeys()
	assets, err := p.persist(ctx, []blob{
		{key: keys.Processed, data: variants.Processed.Data, contentType: imaging.ContentType},
		{key: keys.Thumbnail, data: variants.Thumbnail.Data, contentType: imaging.ContentType},
	})
	if err != nil {
		metrics.Ingests.WithLabelValues("carousel", "failed").Inc()
		return nil, err
	}

	// Slots may have been added while we were encoding.
	if capped {
		if err := p.ensureCarouselRoom(ctx); err != nil {
			p.discard(ctx, assets...)
			return nil, err
		}
	}

	metrics.Ingests.WithLabelValues("carousel", "ok").Inc()
	return &DerivedSet{
		Processed: assets[0],
		Thumbnail: assets[1],
		SizeBytes: int64(len(in.Data)),
	}, nil
}

func (p *Pipeline) ensureCarouselRoom(ctx context.Context) error {
	count, err := p.catalog.CountCarouselSlots(ctx)
	if err != nil {
		return err
	}
	if count >= model.MaxCarouselSlots {
		metrics.Ingests.WithLabelValues("carousel", "rejected").Inc()
		return ErrCarouselFull
	}
	return nil
}

// IngestExisting derives variants for an object already in the bucket.
// ref is an object-store URL or a bare key. Variants get fresh keys on the
// object backend; if writing them fails they degrade to the original.
func (p *Pipeline) IngestExisting(ctx context.Context, ref string) (*DerivedSet, error) {
	if !p.store.HasObject() {
		return nil, ErrObjectStoreOff
	}
	key := objectKey(p.store, ref)
	if key == "" {
		return nil, invalidInput("object url or key required")
	}

	data, err := p.store.Get(ctx, storage.BackendObject, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrAssetNotFound
	}

	originalURL, ok := p.store.URLFor(ctx, storage.BackendObject, key)
	if !ok {
		return nil, &IngestFailedError{Key: key}
	}
	original := Asset{
		Key:         key,
		Backend:     storage.BackendObject,
		ContentType: defaultContentType,
		SizeBytes:   int64(len(data)),
		URL:         originalURL,
	}
	set := &DerivedSet{Original: original, Processed: original, Thumbnail: original, SizeBytes: original.SizeBytes}

	variants, err := p.transformer.Transform(ctx, data)
	if err != nil {
		if !imaging.IsDecodeError(err) {
			return nil, err
		}
		metrics.DecodeFailures.Inc()
		set.Degraded = true
		metrics.Ingests.WithLabelValues("import", "ok").Inc()
		return set, nil
	}

	keys := p.namer.DerivedKeys(key)
	derived, ok := p.attempt(ctx, storage.BackendObject, []blob{
		{key: keys.Processed, data: variants.Processed.Data, contentType: imaging.ContentType},
		{key: keys.Thumbnail, data: variants.Thumbnail.Data, contentType: imaging.ContentType},
	})
	if !ok {
		hlog.CtxWarnf(ctx, "pipeline: variants for %s not stored, using original", key)
		set.Degraded = true
	} else {
		set.Processed, set.Thumbnail = derived[0], derived[1]
	}
	metrics.Ingests.WithLabelValues("import", "ok").Inc()
	return set, nil
}

// persist stores every blob on one backend. The object backend is tried first
// when configured; any failure there removes what was written and retries the
// whole set on the filesystem.
func (p *Pipeline) persist(ctx context.Context, blobs []blob) ([]Asset, error) {
	if p.store.Primary() == storage.BackendObject {
		if assets, ok := p.attempt(ctx, storage.BackendObject, blobs); ok {
			return assets, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		metrics.Fallbacks.Inc()
		hlog.CtxWarnf(ctx, "pipeline: object store write failed, falling back to filesystem for %s", blobs[0].key)
	}

	assets, ok := p.attempt(ctx, storage.BackendFilesystem, blobs)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &IngestFailedError{Key: blobs[0].key}
	}
	return assets, nil
}

// attempt writes blobs to backend and resolves their URLs. On failure it
// removes the blobs it wrote.
func (p *Pipeline) attempt(ctx context.Context, backend storage.Backend, blobs []blob) ([]Asset, bool) {
	assets := make([]Asset, 0, len(blobs))
	for _, b := range blobs {
		if ctx.Err() != nil || !p.store.Put(ctx, backend, b.key, b.data, b.contentType) {
			p.discard(ctx, assets...)
			return nil, false
		}
		asset := Asset{Key: b.key, Backend: backend, ContentType: b.contentType, SizeBytes: int64(len(b.data))}
		assets = append(assets, asset)

		url, ok := p.store.URLFor(ctx, backend, b.key)
		if !ok {
			p.discard(ctx, assets...)
			return nil, false
		}
		assets[len(assets)-1].URL = url
	}
	return assets, true
}

// discard removes blobs best effort. Failures are logged by the store.
func (p *Pipeline) discard(ctx context.Context, assets ...Asset) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range assets {
		p.store.Remove(ctx, a.Backend, a.Key)
	}
}

// objectKey resolves ref to an object key: a URL produced by the object
// backend, or a bare key.
func objectKey(store *storage.BlobStore, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if backend, key, ok := store.Locate(ref); ok && backend == storage.BackendObject {
		return key
	}
	if strings.Contains(ref, "://") || strings.Contains(ref, storage.UploadsSegment) {
		return ""
	}
	return strings.TrimLeft(ref, "/")
}
