// Package imaging derives display variants from uploaded image bytes.
// It performs no I/O beyond decoding and encoding in memory.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yi-nology/photo_bridge/pkg/metrics"
)

const (
	// ContentType and Ext describe every encoded variant.
	ContentType = "image/webp"
	Ext         = ".webp"

	ProcessedMaxEdge = 2000
	ProcessedQuality = 80
	ThumbMaxEdge     = 480
	ThumbQuality     = 70

	CarouselWidth        = 2560
	CarouselHeight       = 1067
	CarouselQuality      = 85
	CarouselThumbQuality = 75
)

// DecodeError reports bytes that could not be decoded as a supported image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Variant is one encoded output image.
type Variant struct {
	Data   []byte
	Width  int
	Height int
}

// Variants holds the display image and its thumbnail, both derived from one decode.
type Variants struct {
	Processed Variant
	Thumbnail Variant
}

// Transformer bounds the number of images decoded at once. Safe for concurrent use.
type Transformer struct {
	sem *semaphore.Weighted
}

// New creates a Transformer allowing at most maxConcurrency decodes in flight.
func New(maxConcurrency int) *Transformer {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Transformer{sem: semaphore.NewWeighted(int64(maxConcurrency))}
}

// Transform fits data within ProcessedMaxEdge and ThumbMaxEdge. Smaller
// sources are not upscaled.
func (t *Transformer) Transform(ctx context.Context, data []byte) (*Variants, error) {
	return t.run(ctx, "photo", data, func(img image.Image) (image.Image, image.Image) {
		processed := imaging.Fit(img, ProcessedMaxEdge, ProcessedMaxEdge, imaging.Lanczos)
		thumb := imaging.Fit(img, ThumbMaxEdge, ThumbMaxEdge, imaging.Lanczos)
		return processed, thumb
	}, ProcessedQuality, ThumbQuality)
}

// TransformCarousel center-crops data to the carousel aspect ratio and resizes
// it to exactly CarouselWidth x CarouselHeight.
func (t *Transformer) TransformCarousel(ctx context.Context, data []byte) (*Variants, error) {
	return t.run(ctx, "carousel", data, func(img image.Image) (image.Image, image.Image) {
		b := img.Bounds()
		rect := CenterCropRect(b.Dx(), b.Dy()).Add(b.Min)
		cropped := imaging.Resize(imaging.Crop(img, rect), CarouselWidth, CarouselHeight, imaging.Lanczos)
		thumb := imaging.Fit(cropped, ThumbMaxEdge, ThumbMaxEdge, imaging.Lanczos)
		return cropped, thumb
	}, CarouselQuality, CarouselThumbQuality)
}

type derive func(img image.Image) (display, thumb image.Image)

func (t *Transformer) run(ctx context.Context, kind string, data []byte, fn derive, displayQ, thumbQ float32) (*Variants, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.sem.Release(1)

	start := time.Now()
	defer func() {
		metrics.TransformSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	display, thumb, err := decodeAndDerive(data, fn)
	if err != nil {
		return nil, err
	}

	var out Variants
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Processed, err = encode(display, displayQ)
		return err
	})
	g.Go(func() (err error) {
		out.Thumbnail, err = encode(thumb, thumbQ)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// decodeAndDerive keeps the full-size decode local so it can be collected
// as soon as the derived images exist.
func decodeAndDerive(data []byte, fn derive) (image.Image, image.Image, error) {
	img, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	display, thumb := fn(img)
	return display, thumb, nil
}

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty payload")}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: errors.New("image has no pixels")}
	}
	return img, nil
}

func encode(img image.Image, quality float32) (Variant, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return Variant{}, fmt.Errorf("encode webp: %w", err)
	}
	b := img.Bounds()
	return Variant{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// CenterCropRect returns the largest CarouselWidth:CarouselHeight rectangle
// centered in a w x h image. When the remainder is odd the extra pixel is
// trimmed from the right or bottom.
func CenterCropRect(w, h int) image.Rectangle {
	if w*CarouselHeight > h*CarouselWidth {
		newW := max(h*CarouselWidth/CarouselHeight, 1)
		x := (w - newW) / 2
		return image.Rect(x, 0, x+newW, h)
	}
	newH := max(w*CarouselHeight/CarouselWidth, 1)
	y := (h - newH) / 2
	return image.Rect(0, y, w, y+newH)
}
