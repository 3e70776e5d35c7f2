package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yi-nology/photo_bridge/biz/dal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an isolated in-memory SQLite catalog for testing.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}

	return db
}

// CleanupTestDB closes the database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close DB: %v", err)
	}
}

// CreateTestPhoto inserts a photo owned by userID with the given size and creation time.
func CreateTestPhoto(t *testing.T, db *gorm.DB, userID uint, size int64, createdAt time.Time) *model.Photo {
	t.Helper()
	photo := &model.Photo{
		UserID:    userID,
		Title:     "test photo",
		ImageURL:  fmt.Sprintf("http://localhost:4002/uploads/processed/%s.webp", uuid.NewString()),
		SizeBytes: size,
		CreatedAt: createdAt,
	}
	if err := NewPhotoDAO().Create(context.Background(), db, photo); err != nil {
		t.Fatalf("Failed to create test photo: %v", err)
	}
	return photo
}

// CreateTestSlot inserts a carousel slot at the given sort order.
func CreateTestSlot(t *testing.T, db *gorm.DB, order int) *model.CarouselSlot {
	t.Helper()
	slot := &model.CarouselSlot{
		ImageURL:  fmt.Sprintf("http://localhost:4002/uploads/carousel/%d.webp", order),
		ThumbURL:  fmt.Sprintf("http://localhost:4002/uploads/carousel_thumbs/%d_thumb.webp", order),
		SortOrder: order,
	}
	if err := NewCarouselDAO().Create(context.Background(), db, slot); err != nil {
		t.Fatalf("Failed to create test slot: %v", err)
	}
	return slot
}
