package db

import (
	"context"
	"errors"

	"github.com/yi-nology/photo_bridge/biz/dal/model"

	"gorm.io/gorm"
)

// CarouselDAO handles home carousel slots.
type CarouselDAO struct{}

func NewCarouselDAO() *CarouselDAO { return &CarouselDAO{} }

func (dao *CarouselDAO) Create(ctx context.Context, db *gorm.DB, slot *model.CarouselSlot) error {
	if slot == nil {
		return errors.New("carousel slot must not be nil")
	}
	return db.WithContext(ctx).Create(slot).Error
}

func (dao *CarouselDAO) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&model.CarouselSlot{}).Count(&count).Error
	return count, err
}

func (dao *CarouselDAO) MaxSortOrder(ctx context.Context, db *gorm.DB) (int, error) {
	var max int
	err := db.WithContext(ctx).
		Model(&model.CarouselSlot{}).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	return max, err
}

func (dao *CarouselDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.CarouselSlot, error) {
	var slot model.CarouselSlot
	if err := db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// UpdateAssets points a slot at new variant URLs and a new backing photo.
func (dao *CarouselDAO) UpdateAssets(ctx context.Context, db *gorm.DB, id uint, imageURL, thumbURL string, photoID *uint) error {
	result := db.WithContext(ctx).
		Model(&model.CarouselSlot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"image_url": imageURL,
			"thumb_url": thumbURL,
			"photo_id":  photoID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (dao *CarouselDAO) UpdateSortOrder(ctx context.Context, db *gorm.DB, id uint, order int) error {
	return db.WithContext(ctx).
		Model(&model.CarouselSlot{}).
		Where("id = ?", id).
		Update("sort_order", order).Error
}

func (dao *CarouselDAO) DeleteByID(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Delete(&model.CarouselSlot{}, id).Error
}

func (dao *CarouselDAO) ListByPhotoID(ctx context.Context, db *gorm.DB, photoID uint) ([]model.CarouselSlot, error) {
	var slots []model.CarouselSlot
	err := db.WithContext(ctx).Where("photo_id = ?", photoID).Order("id ASC").Find(&slots).Error
	return slots, err
}

func (dao *CarouselDAO) DeleteByPhotoID(ctx context.Context, db *gorm.DB, photoID uint) error {
	return db.WithContext(ctx).Where("photo_id = ?", photoID).Delete(&model.CarouselSlot{}).Error
}

// List returns slots in display order with the backing photo title.
func (dao *CarouselDAO) List(ctx context.Context, db *gorm.DB) ([]model.CarouselSlot, error) {
	var slots []model.CarouselSlot
	err := db.WithContext(ctx).
		Table("home_carousel AS hc").
		Select("hc.id, hc.created_at, hc.image_url, hc.thumb_url, hc.photo_id, hc.sort_order, COALESCE(p.title, '') AS title").
		Joins("LEFT JOIN photos p ON p.id = hc.photo_id").
		Order("hc.sort_order ASC, hc.id ASC").
		Scan(&slots).Error
	return slots, err
}
