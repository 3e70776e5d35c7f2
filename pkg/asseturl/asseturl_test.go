package asseturl

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	r := New("https://photos.example.com/")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "old host rewritten",
			in:   "http://localhost:4002/uploads/processed/1700000000000-deadbeef.webp",
			want: "https://photos.example.com/uploads/processed/1700000000000-deadbeef.webp",
		},
		{
			name: "relative legacy path",
			in:   "/uploads/thumbs/a_thumb.webp",
			want: "https://photos.example.com/uploads/thumbs/a_thumb.webp",
		},
		{
			name: "suffix preserved byte for byte",
			in:   "http://old:8080/uploads/originals/a%20b.JPG?x=1#frag",
			want: "https://photos.example.com/uploads/originals/a%20b.JPG?x=1#frag",
		},
		{
			name: "signed object url untouched",
			in:   "http://minio:9000/photos/processed/a.webp?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Signature=abc",
			want: "http://minio:9000/photos/processed/a.webp?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Signature=abc",
		},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAssetURL(t *testing.T) {
	r := New("http://localhost:4002")
	if got := r.AssetURL("/uploads/carousel/a.webp"); got != "http://localhost:4002/uploads/carousel/a.webp" {
		t.Fatalf("AssetURL = %q", got)
	}
}

func TestNormalizeAll(t *testing.T) {
	r := New("https://cdn.example.com")
	image, thumb := "http://a/uploads/x.webp", "https://minio/photos/y.webp"
	r.NormalizeAll(&image, &thumb, nil)
	if image != "https://cdn.example.com/uploads/x.webp" || thumb != "https://minio/photos/y.webp" {
		t.Fatalf("NormalizeAll: %q %q", image, thumb)
	}
}

func TestNormalize_KeepsObjectURLs(t *testing.T) {
	objectBase := "https://s3.example.com/uploads/"
	r := New("https://photos.example.com", KeepObjectURLs(func(url string) bool {
		return strings.HasPrefix(url, objectBase)
	}))

	obj := objectBase + "processed/a.webp"
	if got := r.Normalize(obj); got != obj {
		t.Errorf("Normalize(%q) = %q, want unchanged", obj, got)
	}
	fs := "http://localhost:4002/uploads/processed/a.webp"
	if got, want := r.Normalize(fs), "https://photos.example.com/uploads/processed/a.webp"; got != want {
		t.Errorf("Normalize(%q) = %q, want %q", fs, got, want)
	}
}
