package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/photo_bridge/biz/dal/model"
	"github.com/yi-nology/photo_bridge/biz/model/api"
)

const (
	carouselCategory     = "carousel"
	defaultCarouselTitle = "Home carousel"
)

// CarouselUpload is one image posted for the home carousel.
type CarouselUpload struct {
	UserID uint
	File   UploadFile
}

// AddSlot appends a slot at the end of the carousel backed by a new photo.
func (s *Service) AddSlot(ctx context.Context, in CarouselUpload) (*api.CarouselSlot, error) {
	ct, err := s.carouselUploads.Validate(in.File.Data, in.File.ContentType)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	set, err := s.pipeline.IngestCarousel(ctx, IngestInput{
		UserID:      in.UserID,
		Data:        in.File.Data,
		FileName:    in.File.FileName,
		ContentType: ct,
	})
	if err != nil {
		return nil, err
	}

	photo, err := s.insertCarouselPhoto(ctx, in, set)
	if err != nil {
		return nil, err
	}

	maxOrder, err := s.catalog.MaxCarouselSortOrder(ctx)
	if err != nil {
		s.rollbackCarouselPhoto(ctx, photo.ID, set)
		return nil, err
	}
	slot := &model.CarouselSlot{
		ImageURL:  set.Processed.URL,
		ThumbURL:  set.Thumbnail.URL,
		PhotoID:   &photo.ID,
		SortOrder: maxOrder + 1,
	}
	if _, err := s.catalog.InsertCarouselSlot(ctx, slot); err != nil {
		s.rollbackCarouselPhoto(ctx, photo.ID, set)
		return nil, fmt.Errorf("insert carousel slot: %w", err)
	}
	slot.Title = photo.Title

	hlog.CtxInfof(ctx, "carousel slot %d added at position %d", slot.ID, slot.SortOrder)
	return s.slotToAPI(slot), nil
}

// ReplaceSlot swaps the image of an existing slot. The slot keeps its
// position; the previous image and its backing photo are removed.
func (s *Service) ReplaceSlot(ctx context.Context, id uint, in CarouselUpload) (*api.CarouselSlot, error) {
	old, err := s.catalog.GetCarouselSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	ct, err := s.carouselUploads.Validate(in.File.Data, in.File.ContentType)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	set, err := s.pipeline.IngestCarouselReplacement(ctx, IngestInput{
		UserID:      in.UserID,
		Data:        in.File.Data,
		FileName:    in.File.FileName,
		ContentType: ct,
	})
	if err != nil {
		return nil, err
	}

	photo, err := s.insertCarouselPhoto(ctx, in, set)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateCarouselSlot(ctx, id, set.Processed.URL, set.Thumbnail.URL, &photo.ID); err != nil {
		s.rollbackCarouselPhoto(ctx, photo.ID, set)
		return nil, err
	}

	s.dropSlotAssets(ctx, old)
	hlog.CtxInfof(ctx, "carousel slot %d replaced", id)

	slot := *old
	slot.ImageURL, slot.ThumbURL, slot.PhotoID, slot.Title = set.Processed.URL, set.Thumbnail.URL, &photo.ID, photo.Title
	return s.slotToAPI(&slot), nil
}

// DeleteSlot removes a slot and its blobs, then closes the gap in sort orders.
func (s *Service) DeleteSlot(ctx context.Context, id uint) error {
	slot, err := s.catalog.GetCarouselSlot(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteCarouselSlot(ctx, id); err != nil {
		return fmt.Errorf("delete carousel slot %d: %w", id, err)
	}
	s.dropSlotAssets(ctx, slot)
	if err := s.catalog.ReorderCarousel(ctx, nil); err != nil {
		hlog.CtxWarnf(ctx, "carousel: compact sort orders: %v", err)
	}
	hlog.CtxInfof(ctx, "carousel slot %d deleted", id)
	return nil
}

// Reorder places the listed slots first, in order, and returns the carousel.
func (s *Service) Reorder(ctx context.Context, ids []uint) ([]*api.CarouselSlot, error) {
	if len(ids) == 0 {
		return nil, invalidInput("ids required")
	}
	if err := s.catalog.ReorderCarousel(ctx, ids); err != nil {
		return nil, err
	}
	return s.ListSlots(ctx)
}

// ListSlots returns the carousel in display order.
func (s *Service) ListSlots(ctx context.Context) ([]*api.CarouselSlot, error) {
	slots, err := s.catalog.ListCarouselSlots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*api.CarouselSlot, 0, len(slots))
	for i := range slots {
		out = append(out, s.slotToAPI(&slots[i]))
	}
	return out, nil
}

func (s *Service) insertCarouselPhoto(ctx context.Context, in CarouselUpload, set *DerivedSet) (*model.Photo, error) {
	photo := &model.Photo{
		UserID:    in.UserID,
		Title:     firstNonEmpty(stem(in.File.FileName), defaultCarouselTitle),
		Category:  carouselCategory,
		ImageURL:  set.Processed.URL,
		ThumbURL:  set.Thumbnail.URL,
		SizeBytes: set.SizeBytes,
	}
	if _, err := s.catalog.InsertPhoto(ctx, photo); err != nil {
		s.discardSet(ctx, set)
		return nil, fmt.Errorf("insert carousel photo: %w", err)
	}
	return photo, nil
}

func (s *Service) rollbackCarouselPhoto(ctx context.Context, photoID uint, set *DerivedSet) {
	if err := s.catalog.DeleteAssetsForPhoto(context.WithoutCancel(ctx), photoID); err != nil {
		hlog.CtxWarnf(ctx, "carousel: rollback photo %d: %v", photoID, err)
	}
	s.discardSet(ctx, set)
}

// dropSlotAssets removes the blobs of a slot that no longer shows them, and
// its backing photo when that photo holds the same image.
func (s *Service) dropSlotAssets(ctx context.Context, slot *model.CarouselSlot) {
	urls := []string{slot.ImageURL, slot.ThumbURL}
	if slot.PhotoID != nil {
		photo, err := s.catalog.GetPhoto(ctx, *slot.PhotoID)
		switch {
		case err == nil && photo.ImageURL == slot.ImageURL:
			if err := s.catalog.DeleteAssetsForPhoto(ctx, photo.ID); err != nil {
				hlog.CtxWarnf(ctx, "carousel: delete backing photo %d: %v", photo.ID, err)
				return
			}
			urls = append(urls, photo.URLs()...)
		case err == nil:
			// The backing photo lives on with its own image; keep the slot blobs
			// it still references.
			if slices.Contains(photo.URLs(), slot.ImageURL) || slices.Contains(photo.URLs(), slot.ThumbURL) {
				return
			}
		}
	}
	s.removeURLs(ctx, urls...)
}
