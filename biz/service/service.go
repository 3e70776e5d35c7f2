package service

import (
	"context"
	"path"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/photo_bridge/biz/dal/model"
	"github.com/yi-nology/photo_bridge/biz/model/api"
	"github.com/yi-nology/photo_bridge/pkg/asseturl"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
	"github.com/yi-nology/photo_bridge/pkg/storage"
	"github.com/yi-nology/photo_bridge/pkg/validator"
)

// Options wires the Service dependencies.
type Options struct {
	Store         *storage.BlobStore
	Transformer   *imaging.Transformer
	Resolver      *asseturl.Resolver
	Limits        QuotaLimits
	MaxUploadSize int64
}

// Service implements photo and carousel operations on top of the Pipeline
// and the Catalog.
type Service struct {
	catalog  Catalog
	store    *storage.BlobStore
	pipeline *Pipeline
	quota    *QuotaGuard
	resolver *asseturl.Resolver

	photoUploads    *validator.UploadConfig
	carouselUploads *validator.UploadConfig
}

func NewService(catalog Catalog, opts Options) *Service {
	quota := NewQuotaGuard(catalog, opts.Limits)
	transformer := opts.Transformer
	if transformer == nil {
		transformer = imaging.New(1)
	}
	resolver := opts.Resolver
	if resolver == nil {
		var keep []asseturl.Option
		if opts.Store != nil {
			keep = append(keep, asseturl.KeepObjectURLs(opts.Store.IsObjectURL))
		}
		resolver = asseturl.New("", keep...)
	}
	return &Service{
		catalog:         catalog,
		store:           opts.Store,
		pipeline:        NewPipeline(opts.Store, transformer, quota, catalog),
		quota:           quota,
		resolver:        resolver,
		photoUploads:    validator.NewUploadConfig(opts.MaxUploadSize, validator.PhotoMimeTypes),
		carouselUploads: validator.NewUploadConfig(opts.MaxUploadSize, validator.CarouselMimeTypes),
	}
}

// Pipeline exposes the asset pipeline.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// --------------------- Model conversion helpers ---------------------

func (s *Service) photoToAPI(p *model.Photo) *api.Photo {
	if p == nil {
		return nil
	}
	image := firstNonEmpty(p.ImageURL, p.OriginalURL)
	thumb := firstNonEmpty(p.ThumbURL, p.ImageURL, p.OriginalURL)
	out := &api.Photo{
		ID:          p.ID,
		UserID:      p.UserID,
		Title:       p.Title,
		Description: p.Description,
		Camera:      p.Camera,
		Settings:    p.Settings,
		Category:    p.Category,
		OriginalURL: s.resolver.Normalize(p.OriginalURL),
		ImageURL:    s.resolver.Normalize(image),
		ThumbURL:    s.resolver.Normalize(thumb),
		SizeBytes:   p.SizeBytes,
		CreatedAt:   p.CreatedAt,
	}
	for _, t := range p.Tags {
		out.Tags = append(out.Tags, t.Name)
	}
	return out
}

func (s *Service) slotToAPI(slot *model.CarouselSlot) *api.CarouselSlot {
	return &api.CarouselSlot{
		ID:        slot.ID,
		ImageURL:  s.resolver.Normalize(slot.ImageURL),
		ThumbURL:  s.resolver.Normalize(firstNonEmpty(slot.ThumbURL, slot.ImageURL)),
		SortOrder: slot.SortOrder,
		Title:     slot.Title,
		PhotoID:   slot.PhotoID,
	}
}

// --------------------- Service helpers ---------------------

// removeURLs deletes the blobs behind urls on whichever backend produced
// them. Failures are logged and never returned.
func (s *Service) removeURLs(ctx context.Context, urls ...string) {
	ctx = context.WithoutCancel(ctx)
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		if !s.store.RemoveURL(ctx, u) {
			hlog.CtxWarnf(ctx, "cleanup: blob behind %s not removed", u)
		}
	}
}

func (s *Service) discardSet(ctx context.Context, set *DerivedSet) {
	s.pipeline.discard(ctx, set.Original, set.Processed, set.Thumbnail)
}

// ParseTags splits a comma separated list, trimming and dropping empty and
// repeated names.
func ParseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		tags = append(tags, part)
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
