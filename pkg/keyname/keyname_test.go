package keyname

import (
	"bytes"
	"regexp"
	"testing"
	"time"
)

func fixedNamer() Namer {
	return Namer{
		Now:  func() time.Time { return time.UnixMilli(1700000000123) },
		Rand: bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04}),
	}
}

func TestKeys(t *testing.T) {
	keys := fixedNamer().Keys("IMG_0001.JPG")
	want := Keys{
		Original:  "originals/1700000000123-deadbeef.jpg",
		Processed: "processed/1700000000123-deadbeef.webp",
		Thumbnail: "thumbs/1700000000123-deadbeef_thumb.webp",
	}
	if keys != want {
		t.Fatalf("Keys = %+v, want %+v", keys, want)
	}
}

func TestCarouselKeys(t *testing.T) {
	keys := fixedNamer().CarouselKeys()
	if keys.Original != "" {
		t.Fatalf("carousel uploads keep no original, got %q", keys.Original)
	}
	if keys.Processed != "carousel/1700000000123-deadbeef.webp" {
		t.Fatalf("unexpected processed key %q", keys.Processed)
	}
	if keys.Thumbnail != "carousel_thumbs/1700000000123-deadbeef_thumb.webp" {
		t.Fatalf("unexpected thumb key %q", keys.Thumbnail)
	}
}

func TestBaseFormatAndUniqueness(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{13}-[0-9a-f]{8}$`)
	var n Namer
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		b := n.Base()
		if !pattern.MatchString(b) {
			t.Fatalf("malformed base %q", b)
		}
		if seen[b] {
			t.Fatalf("duplicate base %q", b)
		}
		seen[b] = true
	}
}

func TestOriginalExt(t *testing.T) {
	tests := map[string]string{
		"photo.png":        ".png",
		"photo.JPEG":       ".jpeg",
		"archive.tar.webp": ".webp",
		"noext":            ".jpg",
		"":                 ".jpg",
		"notes.txt":        ".jpg",
		`C:\dir\pic.PNG`:   ".png",
	}
	for in, want := range tests {
		if got := OriginalExt(in); got != want {
			t.Errorf("OriginalExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDerivedKeys(t *testing.T) {
	keys := fixedNamer().DerivedKeys("imports/2024/holiday.jpg")
	want := Keys{
		Original:  "imports/2024/holiday.jpg",
		Processed: "processed/1700000000123-deadbeef.webp",
		Thumbnail: "thumbs/1700000000123-deadbeef_thumb.webp",
	}
	if keys != want {
		t.Fatalf("DerivedKeys = %+v, want %+v", keys, want)
	}

	// Same file name under another prefix, or an object that already is a variant.
	var n Namer
	a := n.DerivedKeys("a/img.png")
	b := n.DerivedKeys("b/img.png")
	if a.Processed == b.Processed || a.Thumbnail == b.Thumbnail {
		t.Errorf("variants collide: %+v vs %+v", a, b)
	}
	if v := n.DerivedKeys("processed/x.webp"); v.Processed == v.Original {
		t.Errorf("variant overwrites its source: %+v", v)
	}
}
