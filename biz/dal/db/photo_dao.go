package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yi-nology/photo_bridge/biz/dal/model"

	"gorm.io/gorm"
)

// PhotoFilter narrows photo list queries. Zero values are ignored.
type PhotoFilter struct {
	Query    string
	Category string
	Tag      string
	UserID   uint
	Page     int
	PageSize int
}

// PhotoDAO handles persistence of photo records.
type PhotoDAO struct{}

func NewPhotoDAO() *PhotoDAO { return &PhotoDAO{} }

func (dao *PhotoDAO) Create(ctx context.Context, db *gorm.DB, photo *model.Photo) error {
	if photo == nil {
		return errors.New("photo must not be nil")
	}
	if strings.TrimSpace(photo.ImageURL) == "" {
		return errors.New("photo image_url must not be empty")
	}
	return db.WithContext(ctx).Omit("Tags").Create(photo).Error
}

func (dao *PhotoDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.Photo, error) {
	var photo model.Photo
	if err := db.WithContext(ctx).Preload("Tags").First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// SumSizeForUserBetween returns the byte total of photos created by the user in [from, to).
func (dao *PhotoDAO) SumSizeForUserBetween(ctx context.Context, db *gorm.DB, userID uint, from, to time.Time) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).
		Model(&model.Photo{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&sum).Error
	return sum, err
}

func (dao *PhotoDAO) CountByUser(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&model.Photo{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ListByURL returns photos referencing url as any of their variants.
func (dao *PhotoDAO) ListByURL(ctx context.Context, db *gorm.DB, url string) ([]model.Photo, error) {
	var photos []model.Photo
	err := db.WithContext(ctx).
		Where("original_url = ? OR image_url = ? OR thumb_url = ?", url, url, url).
		Order("id ASC").
		Find(&photos).Error
	return photos, err
}

func (dao *PhotoDAO) List(ctx context.Context, db *gorm.DB, filter PhotoFilter) ([]model.Photo, error) {
	q := db.WithContext(ctx).Model(&model.Photo{})
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where("photos.title LIKE ? OR photos.description LIKE ?", like, like)
	}
	if filter.Category != "" {
		q = q.Where("photos.category = ?", filter.Category)
	}
	if filter.UserID != 0 {
		q = q.Where("photos.user_id = ?", filter.UserID)
	}
	if filter.Tag != "" {
		q = q.Joins("JOIN photo_tags pt ON pt.photo_id = photos.id").
			Joins("JOIN tags t ON t.id = pt.tag_id AND t.name = ?", filter.Tag)
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	var photos []model.Photo
	err := q.Preload("Tags").
		Order("photos.id DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&photos).Error
	return photos, err
}

// UpdateMetadata sets the given descriptive columns. Unknown keys are ignored.
func (dao *PhotoDAO) UpdateMetadata(ctx context.Context, db *gorm.DB, id uint, fields map[string]string) error {
	updates := make(map[string]any, len(fields))
	for _, col := range []string{"title", "description", "camera", "settings", "category"} {
		if v, ok := fields[col]; ok {
			updates[col] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&model.Photo{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteByID removes the photo row together with its tag links.
func (dao *PhotoDAO) DeleteByID(ctx context.Context, db *gorm.DB, id uint) error {
	photo := &model.Photo{ID: id}
	if err := db.WithContext(ctx).Model(photo).Association("Tags").Clear(); err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&model.Photo{}, id).Error
}
