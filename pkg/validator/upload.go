package validator

import (
	"errors"
	"net/http"
	"strings"
)

// DefaultMaxUploadSize bounds a single uploaded file.
const DefaultMaxUploadSize = 20 * 1024 * 1024 // 20MB

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// PhotoMimeTypes are accepted for photo uploads. Undecodable payloads of
// these types are still stored as originals.
var PhotoMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/heic": true,
	"image/heif": true,
}

// CarouselMimeTypes are accepted for carousel slots.
var CarouselMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadConfig defines constraints for file uploads.
type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes map[string]bool
}

// NewUploadConfig returns limits for maxSize bytes and the given types.
// A non-positive maxSize uses DefaultMaxUploadSize.
func NewUploadConfig(maxSize int64, types map[string]bool) *UploadConfig {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &UploadConfig{MaxFileSize: maxSize, AllowedMimeTypes: types}
}

// ValidateFileSize checks if the file size is within the allowed limit.
func (c *UploadConfig) ValidateFileSize(size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > c.MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateMimeType checks the declared type against the whitelist.
func (c *UploadConfig) ValidateMimeType(mimeType string) error {
	normalized := NormalizeMimeType(mimeType)
	if normalized == "" || !c.AllowedMimeTypes[normalized] {
		return ErrUnsupportedType
	}
	return nil
}

// Validate checks size and declared type. When the declared type is missing
// or generic, the type sniffed from data is used instead.
func (c *UploadConfig) Validate(data []byte, declaredType string) (string, error) {
	if err := c.ValidateFileSize(int64(len(data))); err != nil {
		return "", err
	}
	mimeType := NormalizeMimeType(declaredType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = NormalizeMimeType(http.DetectContentType(data))
	}
	if err := c.ValidateMimeType(mimeType); err != nil {
		return mimeType, err
	}
	return mimeType, nil
}

// NormalizeMimeType lowercases and strips parameters such as "; charset=utf-8".
func NormalizeMimeType(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}
