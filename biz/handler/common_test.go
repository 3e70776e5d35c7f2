package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yi-nology/photo_bridge/biz/service"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 200},
		{"quota", fmt.Errorf("upload: %w", &service.QuotaExceededError{Window: service.WindowDay}), 429},
		{"ingest failed", &service.IngestFailedError{Key: "processed/a.webp"}, 502},
		{"object remove failed", fmt.Errorf("remove object a: %w", service.ErrStoreWriteFailure), 502},
		{"carousel full", service.ErrCarouselFull, 400},
		{"invalid input", fmt.Errorf("%w: no files", service.ErrInvalidInput), 400},
		{"decode", &imaging.DecodeError{Err: errors.New("unknown format")}, 400},
		{"forbidden", service.ErrForbidden, 403},
		{"photo missing", service.ErrPhotoNotFound, 404},
		{"slot missing", service.ErrSlotNotFound, 404},
		{"asset missing", service.ErrAssetNotFound, 404},
		{"no object store", service.ErrObjectStoreOff, 503},
		{"canceled", fmt.Errorf("ingest: %w", context.Canceled), 408},
		{"unknown", errors.New("disk on fire"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
