package model

import "time"

// MaxCarouselSlots caps the number of live home carousel entries.
const MaxCarouselSlots = 9

// CarouselSlot is one home carousel entry. SortOrder is 1-indexed.
type CarouselSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ImageURL  string    `gorm:"column:image_url;type:varchar(1024);not null" json:"image_url"`
	ThumbURL  string    `gorm:"column:thumb_url;type:varchar(1024)" json:"thumb_url,omitempty"`
	PhotoID   *uint     `gorm:"column:photo_id;index" json:"photo_id,omitempty"`
	SortOrder int       `gorm:"column:sort_order;not null" json:"sort_order"`

	// Title is filled from the backing photo on list queries.
	Title string `gorm:"->;column:title;-:migration" json:"title,omitempty"`
}

// TableName overrides gorm to use home_carousel table.
func (CarouselSlot) TableName() string {
	return "home_carousel"
}
