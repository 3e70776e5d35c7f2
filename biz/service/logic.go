package service

import (
	"context"
	"errors"
	"time"

	"github.com/yi-nology/photo_bridge/biz/dal/db"
	"github.com/yi-nology/photo_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// Catalog is the relational record of photos, tags and carousel slots.
// The pipeline reads aggregates through it; services write through it.
type Catalog interface {
	InsertPhoto(ctx context.Context, photo *model.Photo) (uint, error)
	AttachTags(ctx context.Context, photoID uint, names []string) error
	// ReplaceTags sets the photo's tags to exactly names.
	ReplaceTags(ctx context.Context, photoID uint, names []string) error
	UpdatePhotoMetadata(ctx context.Context, photoID uint, fields map[string]string) error
	GetPhoto(ctx context.Context, id uint) (*model.Photo, error)
	ListPhotos(ctx context.Context, filter db.PhotoFilter) ([]model.Photo, error)
	ListPhotosByURL(ctx context.Context, url string) ([]model.Photo, error)
	CountPhotosByUser(ctx context.Context, userID uint) (int64, error)
	// SumBytesForUserInWindow totals size_bytes of the user's photos created in [from, to).
	SumBytesForUserInWindow(ctx context.Context, userID uint, from, to time.Time) (int64, error)
	// DeleteAssetsForPhoto removes the photo row, its tag links and the
	// carousel slots backed by it.
	DeleteAssetsForPhoto(ctx context.Context, photoID uint) error

	CountCarouselSlots(ctx context.Context) (int64, error)
	MaxCarouselSortOrder(ctx context.Context) (int, error)
	InsertCarouselSlot(ctx context.Context, slot *model.CarouselSlot) (uint, error)
	GetCarouselSlot(ctx context.Context, id uint) (*model.CarouselSlot, error)
	UpdateCarouselSlot(ctx context.Context, id uint, imageURL, thumbURL string, photoID *uint) error
	DeleteCarouselSlot(ctx context.Context, id uint) error
	ListCarouselSlots(ctx context.Context) ([]model.CarouselSlot, error)
	CarouselSlotsForPhoto(ctx context.Context, photoID uint) ([]model.CarouselSlot, error)
	// ReorderCarousel gives the listed slots sort orders 1..n; the remaining
	// slots follow in their current order.
	ReorderCarousel(ctx context.Context, ids []uint) error
}

// Logic implements Catalog on gorm.
type Logic struct {
	db          *gorm.DB
	photoDAO    *db.PhotoDAO
	tagDAO      *db.TagDAO
	carouselDAO *db.CarouselDAO
}

var _ Catalog = (*Logic)(nil)

func NewLogic(dbConn *gorm.DB) *Logic {
	return &Logic{
		db:          dbConn,
		photoDAO:    db.NewPhotoDAO(),
		tagDAO:      db.NewTagDAO(),
		carouselDAO: db.NewCarouselDAO(),
	}
}

// --------------------- Photo Operations ---------------------

func (l *Logic) InsertPhoto(ctx context.Context, photo *model.Photo) (uint, error) {
	if err := l.photoDAO.Create(ctx, l.db, photo); err != nil {
		return 0, err
	}
	return photo.ID, nil
}

func (l *Logic) AttachTags(ctx context.Context, photoID uint, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tags, err := l.tagDAO.Ensure(ctx, l.db, names)
	if err != nil {
		return err
	}
	return l.tagDAO.Attach(ctx, l.db, photoID, tags)
}

func (l *Logic) ReplaceTags(ctx context.Context, photoID uint, names []string) error {
	tags, err := l.tagDAO.Ensure(ctx, l.db, names)
	if err != nil {
		return err
	}
	return l.tagDAO.Replace(ctx, l.db, photoID, tags)
}

func (l *Logic) UpdatePhotoMetadata(ctx context.Context, photoID uint, fields map[string]string) error {
	return l.photoDAO.UpdateMetadata(ctx, l.db, photoID, fields)
}

func (l *Logic) GetPhoto(ctx context.Context, id uint) (*model.Photo, error) {
	photo, err := l.photoDAO.GetByID(ctx, l.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhotoNotFound
	}
	return photo, err
}

func (l *Logic) ListPhotos(ctx context.Context, filter db.PhotoFilter) ([]model.Photo, error) {
	return l.photoDAO.List(ctx, l.db, filter)
}

func (l *Logic) ListPhotosByURL(ctx context.Context, url string) ([]model.Photo, error) {
	return l.photoDAO.ListByURL(ctx, l.db, url)
}

func (l *Logic) CountPhotosByUser(ctx context.Context, userID uint) (int64, error) {
	return l.photoDAO.CountByUser(ctx, l.db, userID)
}

func (l *Logic) SumBytesForUserInWindow(ctx context.Context, userID uint, from, to time.Time) (int64, error) {
	return l.photoDAO.SumSizeForUserBetween(ctx, l.db, userID, from, to)
}

func (l *Logic) DeleteAssetsForPhoto(ctx context.Context, photoID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.carouselDAO.DeleteByPhotoID(ctx, tx, photoID); err != nil {
			return err
		}
		return l.photoDAO.DeleteByID(ctx, tx, photoID)
	})
}

// --------------------- Carousel Operations ---------------------

func (l *Logic) CountCarouselSlots(ctx context.Context) (int64, error) {
	return l.carouselDAO.Count(ctx, l.db)
}

func (l *Logic) MaxCarouselSortOrder(ctx context.Context) (int, error) {
	return l.carouselDAO.MaxSortOrder(ctx, l.db)
}

func (l *Logic) InsertCarouselSlot(ctx context.Context, slot *model.CarouselSlot) (uint, error) {
	if err := l.carouselDAO.Create(ctx, l.db, slot); err != nil {
		return 0, err
	}
	return slot.ID, nil
}

func (l *Logic) GetCarouselSlot(ctx context.Context, id uint) (*model.CarouselSlot, error) {
	slot, err := l.carouselDAO.GetByID(ctx, l.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotNotFound
	}
	return slot, err
}

func (l *Logic) UpdateCarouselSlot(ctx context.Context, id uint, imageURL, thumbURL string, photoID *uint) error {
	err := l.carouselDAO.UpdateAssets(ctx, l.db, id, imageURL, thumbURL, photoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSlotNotFound
	}
	return err
}

func (l *Logic) DeleteCarouselSlot(ctx context.Context, id uint) error {
	return l.carouselDAO.DeleteByID(ctx, l.db, id)
}

func (l *Logic) ListCarouselSlots(ctx context.Context) ([]model.CarouselSlot, error) {
	return l.carouselDAO.List(ctx, l.db)
}

func (l *Logic) CarouselSlotsForPhoto(ctx context.Context, photoID uint) ([]model.CarouselSlot, error) {
	return l.carouselDAO.ListByPhotoID(ctx, l.db, photoID)
}

// ReorderCarousel is not transactional: concurrent reorders interleave and
// the last writer wins per slot.
func (l *Logic) ReorderCarousel(ctx context.Context, ids []uint) error {
	slots, err := l.carouselDAO.List(ctx, l.db)
	if err != nil {
		return err
	}
	for _, s := range planSortOrders(slots, ids) {
		if err := l.carouselDAO.UpdateSortOrder(ctx, l.db, s.ID, s.SortOrder); err != nil {
			return err
		}
	}
	return nil
}

// planSortOrders returns the slots whose sort order changes. Listed ids come
// first in the given order, unknown and repeated ids are skipped, and the
// rest keep their relative order.
func planSortOrders(current []model.CarouselSlot, ids []uint) []model.CarouselSlot {
	byID := make(map[uint]model.CarouselSlot, len(current))
	for _, s := range current {
		byID[s.ID] = s
	}

	ordered := make([]model.CarouselSlot, 0, len(current))
	placed := make(map[uint]bool, len(current))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		placed[id] = true
		ordered = append(ordered, s)
	}
	for _, s := range current {
		if !placed[s.ID] {
			ordered = append(ordered, s)
		}
	}

	changed := make([]model.CarouselSlot, 0, len(ordered))
	for i, s := range ordered {
		if s.SortOrder != i+1 {
			s.SortOrder = i + 1
			changed = append(changed, s)
		}
	}
	return changed
}
