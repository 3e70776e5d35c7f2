package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load("non-existent-config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":4002" {
		t.Fatalf("expected default address :4002, got %s", cfg.Server.Address)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Storage.Local.AssetBaseURL != "http://localhost:4002" {
		t.Fatalf("unexpected asset base %s", cfg.Storage.Local.AssetBaseURL)
	}
	if cfg.Storage.Object.Enabled() {
		t.Fatalf("object storage must be disabled without credentials")
	}
	if cfg.Upload.MaxPerDayBytes != 0 || cfg.Upload.MaxPerMonthBytes != 0 {
		t.Fatalf("quota must default to unlimited")
	}
	if !slices.Contains(cfg.Upload.AllowedReferers, "https://*.ngrok.io") {
		t.Fatalf("default referers missing ngrok wildcard: %v", cfg.Upload.AllowedReferers)
	}
}

func TestLoadWithPartialConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9090"
database:
  driver: ""
storage:
  object:
    endpoint: "minio:9000"
    access_key: "ak"
    secret_key: "sk"
    connect_timeout: 3s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Fatalf("expected server address :9090, got %s", cfg.Server.Address)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected database driver sqlite, got %s", cfg.Database.Driver)
	}
	if !cfg.Storage.Object.Enabled() {
		t.Fatalf("expected object storage enabled")
	}
	if cfg.Storage.Object.ConnectTimeout != 3*time.Second {
		t.Fatalf("expected connect timeout 3s, got %s", cfg.Storage.Object.ConnectTimeout)
	}
	if cfg.Storage.Object.ReadTimeout != 10*time.Second {
		t.Fatalf("expected default read timeout 10s, got %s", cfg.Storage.Object.ReadTimeout)
	}
	if cfg.Storage.Local.AssetBaseURL != "http://localhost:9090" {
		t.Fatalf("asset base should follow server port, got %s", cfg.Storage.Local.AssetBaseURL)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bogus: 1\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "5005")
	t.Setenv("UPLOAD_MAX_PER_DAY_BYTES", "1000")
	t.Setenv("ASSET_BASE_URL", "https://cdn.example.com/")
	t.Setenv("ALLOWED_REFERRERS", "https://a.example.com,https://b.example.com")
	t.Setenv("MINIO_SECURE", "true")

	cfg, err := Load("non-existent-config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":5005" {
		t.Fatalf("expected :5005, got %s", cfg.Server.Address)
	}
	if cfg.Upload.MaxPerDayBytes != 1000 {
		t.Fatalf("expected day limit 1000, got %d", cfg.Upload.MaxPerDayBytes)
	}
	if cfg.Storage.Local.AssetBaseURL != "https://cdn.example.com" {
		t.Fatalf("expected trimmed asset base, got %s", cfg.Storage.Local.AssetBaseURL)
	}
	if len(cfg.Upload.AllowedReferers) != 2 {
		t.Fatalf("expected 2 referers, got %v", cfg.Upload.AllowedReferers)
	}
	if !cfg.Storage.Object.Secure {
		t.Fatalf("expected secure flag from env")
	}
}

func TestEnvironmentDurations(t *testing.T) {
	tests := []struct {
		connect, read string
		wantConnect   time.Duration
		wantRead      time.Duration
	}{
		{"2", "10", 2 * time.Second, 10 * time.Second},
		{"0.5", "1.5", 500 * time.Millisecond, 1500 * time.Millisecond},
		{"750ms", "1m", 750 * time.Millisecond, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.connect+"/"+tt.read, func(t *testing.T) {
			t.Setenv("MINIO_CONNECT_TIMEOUT", tt.connect)
			t.Setenv("MINIO_READ_TIMEOUT", tt.read)

			cfg, err := Load("non-existent-config.yaml")
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.Storage.Object.ConnectTimeout != tt.wantConnect {
				t.Errorf("connect timeout = %s, want %s", cfg.Storage.Object.ConnectTimeout, tt.wantConnect)
			}
			if cfg.Storage.Object.ReadTimeout != tt.wantRead {
				t.Errorf("read timeout = %s, want %s", cfg.Storage.Object.ReadTimeout, tt.wantRead)
			}
		})
	}

	t.Run("garbage", func(t *testing.T) {
		t.Setenv("MINIO_CONNECT_TIMEOUT", "soon")
		if _, err := Load("non-existent-config.yaml"); err == nil {
			t.Fatal("expected error for unparsable duration")
		}
	})
}
