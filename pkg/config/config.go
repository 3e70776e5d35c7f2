package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures service level configuration loaded from config.yaml and the environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	CORS     CORSConfig     `yaml:"cors"`
	Upload   UploadConfig   `yaml:"upload"`
	Storage  StorageConfig  `yaml:"storage"`
	Imaging  ImagingConfig  `yaml:"imaging"`
	Redis    RedisConfig    `yaml:"redis"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address" env:"SERVER_ADDRESS"`
	// Port, when set, overrides the port part of Address.
	Port string `yaml:"port" env:"PORT"`
}

// LogConfig controls hlog verbosity.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// DatabaseConfig defines the catalog database backend.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" env:"DATABASE_DRIVER"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`

	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn" env:"MYSQL_DSN"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_URL"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// UploadConfig defines upload constraints and per-user byte budgets.
type UploadConfig struct {
	MaxSize int64 `yaml:"max_size" env:"UPLOAD_MAX_SIZE"`
	// Zero disables the corresponding window.
	MaxPerDayBytes   int64 `yaml:"max_per_day_bytes" env:"UPLOAD_MAX_PER_DAY_BYTES"`
	MaxPerMonthBytes int64 `yaml:"max_per_month_bytes" env:"UPLOAD_MAX_PER_MONTH_BYTES"`
	// AllowedReferers lists origins allowed to embed /uploads/ assets.
	AllowedReferers []string `yaml:"allowed_referers" env:"ALLOWED_REFERRERS" envSeparator:","`
}

// StorageConfig groups the filesystem and object-store backends.
type StorageConfig struct {
	Local  LocalStorageConfig  `yaml:"local"`
	Object ObjectStorageConfig `yaml:"object"`
}

// LocalStorageConfig configures the filesystem fallback backend.
type LocalStorageConfig struct {
	Root string `yaml:"root" env:"UPLOADS_ROOT"`
	// AssetBaseURL is the externally advertised prefix for /uploads/ URLs.
	AssetBaseURL string `yaml:"asset_base_url" env:"ASSET_BASE_URL"`
}

// ObjectStorageConfig configures the S3-compatible backend. It is considered
// unconfigured unless endpoint, access key and secret key are all present.
type ObjectStorageConfig struct {
	Driver     string `yaml:"driver" env:"MINIO_DRIVER"`
	Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	Region     string `yaml:"region" env:"MINIO_REGION"`
	Bucket     string `yaml:"bucket" env:"MINIO_BUCKET"`
	AccessKey  string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey  string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Secure     bool   `yaml:"secure" env:"MINIO_SECURE"`
	PathStyle  bool   `yaml:"path_style" env:"MINIO_PATH_STYLE"`
	PublicBase string `yaml:"public_base" env:"MINIO_PUBLIC_BASE"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MINIO_CONNECT_TIMEOUT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"MINIO_READ_TIMEOUT"`
	Retry          int           `yaml:"retry" env:"MINIO_RETRY"`
}

// Enabled reports whether enough settings are present to try the object backend.
func (c ObjectStorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

// ImagingConfig bounds image transformation work.
type ImagingConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" env:"IMAGING_MAX_CONCURRENCY"`
}

// RedisConfig defines Redis connection settings for the optional write lock.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// Load reads a YAML configuration file, then applies .env and environment overrides.
// The file is searched in the current working directory first, then next to the binary.
func Load(name string) (*Config, error) {
	cfg := defaultConfig()

	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
	} else {
		log.Printf("Loading config from: %s", configPath)
		if err := decodeFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseDuration,
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// parseDuration accepts Go durations ("2s", "500ms") and bare numbers of
// seconds ("2", "0.5").
func parseDuration(v string) (any, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":4002",
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/photos.db",
			},
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 30 * time.Minute,
		},
		CORS: CORSConfig{
			AllowOrigin:  "*",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders: "*",
		},
		Upload: UploadConfig{
			MaxSize: 20 * 1024 * 1024, // 20MB
			AllowedReferers: []string{
				"http://192.168.", "http://10.", "http://172.",
				"https://*.ngrok-free.app", "https://*.ngrok-free.dev", "https://*.ngrok.io",
			},
		},
		Storage: StorageConfig{
			Local: LocalStorageConfig{
				Root: "uploads",
			},
			Object: ObjectStorageConfig{
				Driver:         "minio",
				Region:         "us-east-1",
				Bucket:         "photos",
				PathStyle:      true,
				ConnectTimeout: 2 * time.Second,
				ReadTimeout:    10 * time.Second,
				Retry:          1,
			},
		},
		Imaging: ImagingConfig{
			MaxConcurrency: 4,
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port != "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(cfg.Server.Port, ":")
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":4002"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/photos.db"
	}
	if cfg.Storage.Local.Root == "" {
		cfg.Storage.Local.Root = "uploads"
	}
	if cfg.Storage.Local.AssetBaseURL == "" {
		cfg.Storage.Local.AssetBaseURL = "http://localhost:" + cfg.ListenPort()
	}
	cfg.Storage.Local.AssetBaseURL = strings.TrimRight(cfg.Storage.Local.AssetBaseURL, "/")
	if cfg.Storage.Object.Bucket == "" {
		cfg.Storage.Object.Bucket = "photos"
	}
	if cfg.Storage.Object.Driver == "" {
		cfg.Storage.Object.Driver = "minio"
	}
	if cfg.Storage.Object.Retry < 0 {
		cfg.Storage.Object.Retry = 0
	}
	if cfg.Imaging.MaxConcurrency <= 0 {
		cfg.Imaging.MaxConcurrency = 4
	}
}

// ListenPort returns the port part of the server address.
func (c *Config) ListenPort() string {
	addr := c.Server.Address
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(exe), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
