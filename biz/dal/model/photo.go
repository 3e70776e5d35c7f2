package model

import (
	"time"
)

// Photo stores catalog metadata for an uploaded image and the URLs of its
// stored variants. OriginalURL is empty for carousel-backed photos.
type Photo struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"index:idx_photos_user_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"column:user_id;not null;index:idx_photos_user_created,priority:1" json:"user_id"`
	Title       string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Camera      string    `gorm:"column:camera;type:varchar(128)" json:"camera,omitempty"`
	Settings    string    `gorm:"column:settings;type:varchar(255)" json:"settings,omitempty"`
	Category    string    `gorm:"column:category;type:varchar(64);index" json:"category,omitempty"`
	OriginalURL string    `gorm:"column:original_url;type:varchar(1024)" json:"original_url,omitempty"`
	ImageURL    string    `gorm:"column:image_url;type:varchar(1024);not null" json:"image_url"`
	ThumbURL    string    `gorm:"column:thumb_url;type:varchar(1024)" json:"thumb_url,omitempty"`
	SizeBytes   int64     `gorm:"column:size_bytes;default:0" json:"size_bytes"`

	Tags []Tag `gorm:"many2many:photo_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
}

// TableName overrides gorm to use photos table.
func (Photo) TableName() string {
	return "photos"
}

// URLs returns every non-empty asset URL referenced by the photo.
func (p *Photo) URLs() []string {
	urls := make([]string, 0, 3)
	for _, u := range []string{p.ImageURL, p.ThumbURL, p.OriginalURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Tag is a free-form label attached to photos.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"column:name;type:varchar(64);uniqueIndex;not null" json:"name"`
}

// TableName overrides gorm to use tags table.
func (Tag) TableName() string {
	return "tags"
}

// All lists the catalog models for migration.
func All() []any {
	return []any{&Photo{}, &Tag{}, &CarouselSlot{}}
}
