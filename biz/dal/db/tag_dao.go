package db

import (
	"context"
	"errors"

	"github.com/yi-nology/photo_bridge/biz/dal/model"

	"gorm.io/gorm"
)

// TagDAO handles tags and their photo links.
type TagDAO struct{}

func NewTagDAO() *TagDAO { return &TagDAO{} }

// Ensure returns the tags with the given names, creating missing ones.
func (dao *TagDAO) Ensure(ctx context.Context, db *gorm.DB, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		tag := model.Tag{Name: name}
		if err := db.WithContext(ctx).Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Attach links tags to a photo. Existing links are kept.
func (dao *TagDAO) Attach(ctx context.Context, db *gorm.DB, photoID uint, tags []model.Tag) error {
	if photoID == 0 {
		return errors.New("photo id must not be zero")
	}
	if len(tags) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&model.Photo{ID: photoID}).Association("Tags").Append(tags)
}

// Replace sets the photo's tags to exactly the given list.
func (dao *TagDAO) Replace(ctx context.Context, db *gorm.DB, photoID uint, tags []model.Tag) error {
	if photoID == 0 {
		return errors.New("photo id must not be zero")
	}
	assoc := db.WithContext(ctx).Model(&model.Photo{ID: photoID}).Association("Tags")
	if len(tags) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(tags)
}
