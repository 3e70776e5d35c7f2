// Package keyname generates storage keys for uploaded assets.
//
// A key is <category>/<epoch_ms>-<8 hex><suffix>. Keys are never reused.
package keyname

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// Storage categories.
const (
	Originals      = "originals"
	Processed      = "processed"
	Thumbs         = "thumbs"
	Carousel       = "carousel"
	CarouselThumbs = "carousel_thumbs"
)

const (
	variantExt  = ".webp"
	thumbSuffix = "_thumb"
	defaultExt  = ".jpg"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
	".heic": true, ".heif": true,
}

// Keys are the storage keys of one upload. Original is empty for carousel uploads.
type Keys struct {
	Original  string
	Processed string
	Thumbnail string
}

// Namer generates keys. The zero value uses the wall clock and crypto/rand.
type Namer struct {
	Now  func() time.Time
	Rand io.Reader
}

// Base returns <epoch_ms>-<8 lowercase hex>.
func (n Namer) Base() string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	src := n.Rand
	if src == nil {
		src = rand.Reader
	}

	var b [4]byte
	if _, err := io.ReadFull(src, b[:]); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to the clock.
		ns := now().UnixNano()
		b = [4]byte{byte(ns), byte(ns >> 8), byte(ns >> 16), byte(ns >> 24)}
	}
	return strconv.FormatInt(now().UnixMilli(), 10) + "-" + hex.EncodeToString(b[:])
}

// Keys names the original, processed and thumbnail blobs of a photo upload.
func (n Namer) Keys(filename string) Keys {
	base := n.Base()
	return Keys{
		Original:  Originals + "/" + base + OriginalExt(filename),
		Processed: Processed + "/" + base + variantExt,
		Thumbnail: Thumbs + "/" + base + thumbSuffix + variantExt,
	}
}

// CarouselKeys names the cropped image and thumbnail of a carousel upload.
func (n Namer) CarouselKeys() Keys {
	base := n.Base()
	return Keys{
		Processed: Carousel + "/" + base + variantExt,
		Thumbnail: CarouselThumbs + "/" + base + thumbSuffix + variantExt,
	}
}

// DerivedKeys names fresh variants for an object that is already stored under
// originalKey. The original keeps its key; the variants never collide with it
// or with the variants of another import of the same file name.
func (n Namer) DerivedKeys(originalKey string) Keys {
	base := n.Base()
	return Keys{
		Original:  originalKey,
		Processed: Processed + "/" + base + variantExt,
		Thumbnail: Thumbs + "/" + base + thumbSuffix + variantExt,
	}
}

// OriginalExt returns the lowercased extension of filename when it is a known
// image extension, otherwise ".jpg".
func OriginalExt(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if imageExts[ext] {
		return ext
	}
	return defaultExt
}
