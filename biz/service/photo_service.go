package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/photo_bridge/biz/dal/db"
	"github.com/yi-nology/photo_bridge/biz/dal/model"
	"github.com/yi-nology/photo_bridge/biz/model/api"
	"github.com/yi-nology/photo_bridge/pkg/common"
	"github.com/yi-nology/photo_bridge/pkg/storage"
)

// UploadPhotosInput is one multipart photo upload. Metadata applies to every file.
type UploadPhotosInput struct {
	UserID      uint
	Files       []UploadFile
	Title       string
	Description string
	Camera      string
	Settings    string
	Category    string
	Tags        string
}

// UploadPhotos ingests and catalogs each file in order. Files already
// catalogued stay when a later file fails.
func (s *Service) UploadPhotos(ctx context.Context, in UploadPhotosInput) ([]api.UploadedPhoto, error) {
	if in.UserID == 0 {
		return nil, ErrForbidden
	}
	if len(in.Files) == 0 {
		return nil, invalidInput("no files uploaded")
	}
	contentTypes := make([]string, len(in.Files))
	for i, f := range in.Files {
		ct, err := s.photoUploads.Validate(f.Data, f.ContentType)
		if err != nil {
			return nil, invalidInput(fmt.Sprintf("%s: %v", f.FileName, err))
		}
		contentTypes[i] = ct
	}
	tags := ParseTags(in.Tags)

	out := make([]api.UploadedPhoto, 0, len(in.Files))
	for i, f := range in.Files {
		set, err := s.pipeline.Ingest(ctx, IngestInput{
			UserID:      in.UserID,
			Data:        f.Data,
			FileName:    f.FileName,
			ContentType: contentTypes[i],
		})
		if err != nil {
			return out, err
		}

		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = firstNonEmpty(stem(f.FileName), "Untitled")
		}
		photo := &model.Photo{
			UserID:      in.UserID,
			Title:       title,
			Description: in.Description,
			Camera:      in.Camera,
			Settings:    in.Settings,
			Category:    in.Category,
			OriginalURL: set.Original.URL,
			ImageURL:    set.Processed.URL,
			ThumbURL:    set.Thumbnail.URL,
			SizeBytes:   set.SizeBytes,
		}
		id, err := s.catalog.InsertPhoto(ctx, photo)
		if err != nil {
			s.discardSet(ctx, set)
			return out, fmt.Errorf("insert photo: %w", err)
		}
		if err := s.catalog.AttachTags(ctx, id, tags); err != nil {
			hlog.CtxWarnf(ctx, "photo %d: attach tags: %v", id, err)
		}

		hlog.CtxInfof(ctx, "photo %d uploaded by user %d (%d bytes, degraded=%t)", id, in.UserID, set.SizeBytes, set.Degraded)
		out = append(out, api.UploadedPhoto{
			ID:       id,
			ImageURL: s.resolver.Normalize(set.Processed.URL),
			ThumbURL: s.resolver.Normalize(set.Thumbnail.URL),
			Degraded: set.Degraded,
		})
	}
	return out, nil
}

// DeletePhoto removes a photo, the carousel slots it backs and every blob
// they reference. Only the owner or an admin may delete.
func (s *Service) DeletePhoto(ctx context.Context, id uint, actor common.Identity) error {
	photo, err := s.catalog.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	if photo.UserID != actor.UserID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return s.deletePhotoCascade(ctx, photo)
}

func (s *Service) deletePhotoCascade(ctx context.Context, photo *model.Photo) error {
	slots, err := s.catalog.CarouselSlotsForPhoto(ctx, photo.ID)
	if err != nil {
		return err
	}
	urls := photo.URLs()
	for _, slot := range slots {
		urls = append(urls, slot.ImageURL, slot.ThumbURL)
	}

	if err := s.catalog.DeleteAssetsForPhoto(ctx, photo.ID); err != nil {
		return fmt.Errorf("delete photo %d: %w", photo.ID, err)
	}
	if len(slots) > 0 {
		if err := s.catalog.ReorderCarousel(ctx, nil); err != nil {
			hlog.CtxWarnf(ctx, "carousel: compact sort orders: %v", err)
		}
	}
	s.removeURLs(ctx, urls...)
	hlog.CtxInfof(ctx, "photo %d deleted with %d carousel slot(s)", photo.ID, len(slots))
	return nil
}

// ImportInput catalogs an object that already lives in the bucket.
type ImportInput struct {
	UserID      uint
	Ref         string
	Title       string
	Description string
	Camera      string
	Settings    string
	Category    string
	Tags        string
}

// ImportObject derives variants for an existing object and catalogs it.
// The object's length is recorded as the photo size; quota does not apply.
func (s *Service) ImportObject(ctx context.Context, in ImportInput) (*api.Photo, error) {
	if in.UserID == 0 {
		return nil, ErrForbidden
	}
	set, err := s.pipeline.IngestExisting(ctx, in.Ref)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = path.Base(set.Original.Key)
	}
	photo := &model.Photo{
		UserID:      in.UserID,
		Title:       title,
		Description: in.Description,
		Camera:      in.Camera,
		Settings:    in.Settings,
		Category:    in.Category,
		OriginalURL: set.Original.URL,
		ImageURL:    set.Processed.URL,
		ThumbURL:    set.Thumbnail.URL,
		SizeBytes:   set.SizeBytes,
	}
	id, err := s.catalog.InsertPhoto(ctx, photo)
	if err != nil {
		if !set.Degraded {
			// The original predates the import and is left alone.
			s.pipeline.discard(ctx, set.Processed, set.Thumbnail)
		}
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	if err := s.catalog.AttachTags(ctx, id, ParseTags(in.Tags)); err != nil {
		hlog.CtxWarnf(ctx, "photo %d: attach tags: %v", id, err)
	}
	hlog.CtxInfof(ctx, "object %s imported as photo %d", set.Original.Key, id)

	created, err := s.catalog.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.photoToAPI(created), nil
}

// DeleteObjectByURL removes an object-store blob addressed by URL or key.
// With removeRelated, photos referencing it are deleted with their slots and
// blobs. It returns the number of photos removed.
func (s *Service) DeleteObjectByURL(ctx context.Context, ref string, removeRelated bool) (int, error) {
	if !s.store.HasObject() {
		return 0, ErrObjectStoreOff
	}
	key := objectKey(s.store, ref)
	if key == "" {
		return 0, invalidInput("object url or key required")
	}
	url, ok := s.store.URLFor(ctx, storage.BackendObject, key)
	if !ok {
		url = strings.TrimSpace(ref)
	}

	if !s.store.Remove(ctx, storage.BackendObject, key) {
		return 0, fmt.Errorf("remove object %s: %w", key, ErrStoreWriteFailure)
	}
	hlog.CtxInfof(ctx, "object %s removed", key)
	if !removeRelated {
		return 0, nil
	}

	candidates := []string{url}
	if given := strings.TrimSpace(ref); given != url && strings.Contains(given, "://") {
		candidates = append(candidates, given)
	}
	removed := 0
	seen := make(map[uint]bool)
	for _, u := range candidates {
		photos, err := s.catalog.ListPhotosByURL(ctx, u)
		if err != nil {
			return removed, err
		}
		for i := range photos {
			if seen[photos[i].ID] {
				continue
			}
			seen[photos[i].ID] = true
			if err := s.deletePhotoCascade(ctx, &photos[i]); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// ListPhotos pages through the catalog, newest first.
func (s *Service) ListPhotos(ctx context.Context, req api.PhotoListRequest) ([]*api.Photo, error) {
	photos, err := s.catalog.ListPhotos(ctx, db.PhotoFilter{
		Query:    strings.TrimSpace(req.Query),
		Category: strings.TrimSpace(req.Category),
		Tag:      strings.TrimSpace(req.Tag),
		UserID:   req.UserID,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*api.Photo, 0, len(photos))
	for i := range photos {
		out = append(out, s.photoToAPI(&photos[i]))
	}
	return out, nil
}

// UserStats reports the user's photo count and quota usage.
func (s *Service) UserStats(ctx context.Context, userID uint) (*api.UserStats, error) {
	count, err := s.catalog.CountPhotosByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.quota.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &api.UserStats{
		Photos:          count,
		DayBytes:        usage.Day,
		MonthBytes:      usage.Month,
		DayLimitBytes:   usage.DayLimit,
		MonthLimitBytes: usage.MonthLimit,
	}, nil
}

// GetPhoto returns one photo with normalized URLs.
func (s *Service) GetPhoto(ctx context.Context, id uint) (*api.Photo, error) {
	photo, err := s.catalog.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.photoToAPI(photo), nil
}

// UpdatePhoto edits descriptive fields. Nil fields are left unchanged; a
// non-nil Tags replaces the whole tag set.
func (s *Service) UpdatePhoto(ctx context.Context, id uint, req api.PhotoUpdateRequest, actor common.Identity) (*api.Photo, error) {
	photo, err := s.catalog.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if photo.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	fields := make(map[string]string, 5)
	for col, v := range map[string]*string{
		"title":       req.Title,
		"description": req.Description,
		"camera":      req.Camera,
		"settings":    req.Settings,
		"category":    req.Category,
	} {
		if v != nil {
			fields[col] = *v
		}
	}
	if t, ok := fields["title"]; ok && strings.TrimSpace(t) == "" {
		return nil, invalidInput("title must not be empty")
	}
	if err := s.catalog.UpdatePhotoMetadata(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update photo %d: %w", id, err)
	}
	if req.Tags != nil {
		if err := s.catalog.ReplaceTags(ctx, id, ParseTags(*req.Tags)); err != nil {
			return nil, fmt.Errorf("update photo %d tags: %w", id, err)
		}
	}
	return s.GetPhoto(ctx, id)
}

// MyPhotos lists the caller's photos; admins see every photo.
func (s *Service) MyPhotos(ctx context.Context, actor common.Identity, page, pageSize int) ([]*api.Photo, error) {
	req := api.PhotoListRequest{Page: page, PageSize: pageSize}
	if !actor.IsAdmin() {
		req.UserID = actor.UserID
	}
	return s.ListPhotos(ctx, req)
}
