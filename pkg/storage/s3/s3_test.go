package s3

import (
	"testing"
)

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		secure   bool
		want     string
	}{
		{"bare host", "minio:9000", false, "http://minio:9000"},
		{"secure", "s3.example.com", true, "https://s3.example.com"},
		{"scheme stripped", "http://minio:9000/", true, "https://minio:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := EndpointURL(tt.endpoint, tt.secure)
			if err != nil {
				t.Fatalf("EndpointURL: %v", err)
			}
			if u.String() != tt.want {
				t.Fatalf("got %s, want %s", u, tt.want)
			}
		})
	}

	u, err := EndpointURL("  ", false)
	if err != nil || u != nil {
		t.Fatalf("empty endpoint should map to nil, got %v %v", u, err)
	}
}

func TestKeyFromURL(t *testing.T) {
	endpoint, _ := EndpointURL("minio:9000", false)

	tests := []struct {
		name   string
		url    string
		public string
		want   string
		ok     bool
	}{
		{"public base", "https://cdn.example.com/photos/processed/a.webp", "https://cdn.example.com", "processed/a.webp", true},
		{"public base with query", "https://cdn.example.com/photos/thumbs/a_thumb.webp?x=1", "https://cdn.example.com", "thumbs/a_thumb.webp", true},
		{"presigned path style", "http://minio:9000/photos/originals/a.jpg?X-Amz-Signature=abc", "", "originals/a.jpg", true},
		{"other host", "http://other:9000/photos/originals/a.jpg", "", "", false},
		{"other bucket", "http://minio:9000/avatars/a.jpg", "", "", false},
		{"filesystem url", "http://localhost:4002/uploads/originals/a.jpg", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyFromURL(tt.url, tt.public, endpoint, "photos")
			if ok != tt.ok || got != tt.want {
				t.Fatalf("keyFromURL(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.ok)
			}
		})
	}
}
