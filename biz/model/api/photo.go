// Package api provides API request/response models for photos and the home carousel.
package api

import "time"

// Photo is the public view of a catalogued photo.
type Photo struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Camera      string    `json:"camera,omitempty"`
	Settings    string    `json:"settings,omitempty"`
	Category    string    `json:"category,omitempty"`
	OriginalURL string    `json:"original_url,omitempty"`
	ImageURL    string    `json:"image_url"`
	ThumbURL    string    `json:"thumb_url"`
	SizeBytes   int64     `json:"size_bytes"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadedPhoto is returned for each file of an upload.
type UploadedPhoto struct {
	ID       uint   `json:"id"`
	ImageURL string `json:"image_url"`
	ThumbURL string `json:"thumb_url"`
	Degraded bool   `json:"degraded,omitempty"`
}

// CarouselSlot is one entry of the home carousel.
type CarouselSlot struct {
	ID        uint   `json:"id"`
	ImageURL  string `json:"image_url"`
	ThumbURL  string `json:"thumb_url"`
	SortOrder int    `json:"sort_order"`
	Title     string `json:"title,omitempty"`
	PhotoID   *uint  `json:"photo_id,omitempty"`
}

// UserStats summarises a user's uploads.
type UserStats struct {
	Photos          int64 `json:"photos"`
	DayBytes        int64 `json:"day_bytes"`
	MonthBytes      int64 `json:"month_bytes"`
	DayLimitBytes   int64 `json:"day_limit_bytes"`
	MonthLimitBytes int64 `json:"month_limit_bytes"`
}

// PhotoListRequest carries GET /api/photos query parameters.
type PhotoListRequest struct {
	Query    string `query:"q"`
	Tag      string `query:"tag"`
	Category string `query:"category"`
	UserID   uint   `query:"user_id"`
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
}

// ObjectImportRequest imports an object that already lives in the bucket.
type ObjectImportRequest struct {
	URL         string `form:"url" json:"url"`
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Camera      string `form:"camera" json:"camera"`
	Settings    string `form:"settings" json:"settings"`
	Category    string `form:"category" json:"category"`
	Tags        string `form:"tags" json:"tags"`
}

// ObjectDeleteRequest removes an object and, optionally, the photos using it.
type ObjectDeleteRequest struct {
	URL           string `form:"url" json:"url"`
	RemoveRelated *bool  `form:"remove_related" json:"remove_related"`
}

// CarouselSortRequest lists slot ids in their new display order.
type CarouselSortRequest struct {
	IDs []uint `json:"ids"`
}

// PhotoUpdateRequest edits photo metadata. Absent fields are left unchanged.
type PhotoUpdateRequest struct {
	Title       *string `form:"title" json:"title"`
	Description *string `form:"description" json:"description"`
	Camera      *string `form:"camera" json:"camera"`
	Settings    *string `form:"settings" json:"settings"`
	Category    *string `form:"category" json:"category"`
	Tags        *string `form:"tags" json:"tags"`
}
