package validator

import (
	"errors"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidate(t *testing.T) {
	cfg := NewUploadConfig(64, CarouselMimeTypes)

	tests := []struct {
		name     string
		data     []byte
		declared string
		wantType string
		wantErr  error
	}{
		{"declared png", pngHeader, "image/png", "image/png", nil},
		{"declared with params", pngHeader, "IMAGE/JPEG; q=1", "image/jpeg", nil},
		{"sniffed when generic", pngHeader, "application/octet-stream", "image/png", nil},
		{"sniffed when missing", pngHeader, "", "image/png", nil},
		{"gif rejected for carousel", pngHeader, "image/gif", "image/gif", ErrUnsupportedType},
		{"empty", nil, "image/png", "", ErrEmptyFile},
		{"too large", make([]byte, 65), "image/png", "", ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.Validate(tt.data, tt.declared)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.wantType {
				t.Fatalf("Validate type = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestNewUploadConfigDefaults(t *testing.T) {
	cfg := NewUploadConfig(0, PhotoMimeTypes)
	if cfg.MaxFileSize != DefaultMaxUploadSize {
		t.Fatalf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if err := cfg.ValidateMimeType("image/heic"); err != nil {
		t.Fatalf("heic should be accepted for photos: %v", err)
	}
}
