package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Data      DataConfig
	OCR       OCRConfig
	Raster    RasterConfig
	Ingest    IngestConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Archive   ArchiveConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the document store backend.
// Driver is one of: sqlite, postgres, mongo, memory.
type StoreConfig struct {
	Driver   string
	URL      string
	Database string
	Timeout  time.Duration
}

type DataConfig struct {
	Dir          string
	DocumentsDir string
	PagesDir     string
}

type OCRConfig struct {
	Language       string
	TessdataPrefix string
}

type RasterConfig struct {
	RegularScale float64
	ZoomScale    float64
	MaxPages     int
	Validate     bool
}

type IngestConfig struct {
	Concurrency    int
	MaxUploadBytes int64
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// ArchiveConfig configures the optional object-storage mirror.
// Backend is one of: "" (disabled), minio, s3.
type ArchiveConfig struct {
	Backend   string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	AccountID string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("STORE_DRIVER", "sqlite")
	viper.SetDefault("STORE_TIMEOUT", 10)
	viper.SetDefault("MONGODB_DATABASE", "ocrsearch")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("OCR_LANGUAGE", "eng")
	viper.SetDefault("RASTER_REGULAR_SCALE", 1.0)
	viper.SetDefault("RASTER_ZOOM_SCALE", 5.0)
	viper.SetDefault("RASTER_MAX_PAGES", 0)
	viper.SetDefault("RASTER_VALIDATE", true)
	viper.SetDefault("INGEST_CONCURRENCY", 2)
	viper.SetDefault("INGEST_MAX_UPLOAD_MB", 100)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("SEARCH_CACHE_TTL", 60)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("ARCHIVE_REGION", "auto")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	dataDir := viper.GetString("DATA_DIR")
	storeURL := viper.GetString("DATABASE_URL")
	driver := strings.ToLower(viper.GetString("STORE_DRIVER"))
	if storeURL == "" && driver == "sqlite" {
		storeURL = filepath.Join(dataDir, "ocrsearch.db")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		Store: StoreConfig{
			Driver:   driver,
			URL:      storeURL,
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("STORE_TIMEOUT")) * time.Second,
		},
		Data: DataConfig{
			Dir:          dataDir,
			DocumentsDir: filepath.Join(dataDir, "docs"),
			PagesDir:     filepath.Join(dataDir, "pages"),
		},
		OCR: OCRConfig{
			Language:       viper.GetString("OCR_LANGUAGE"),
			TessdataPrefix: viper.GetString("OCR_TESSDATA_PREFIX"),
		},
		Raster: RasterConfig{
			RegularScale: viper.GetFloat64("RASTER_REGULAR_SCALE"),
			ZoomScale:    viper.GetFloat64("RASTER_ZOOM_SCALE"),
			MaxPages:     viper.GetInt("RASTER_MAX_PAGES"),
			Validate:     viper.GetBool("RASTER_VALIDATE"),
		},
		Ingest: IngestConfig{
			Concurrency:    viper.GetInt("INGEST_CONCURRENCY"),
			MaxUploadBytes: viper.GetInt64("INGEST_MAX_UPLOAD_MB") << 20,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: time.Duration(viper.GetInt("SEARCH_CACHE_TTL")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Archive: ArchiveConfig{
			Backend:   strings.ToLower(viper.GetString("ARCHIVE_BACKEND")),
			Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
			AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
			Bucket:    viper.GetString("ARCHIVE_BUCKET"),
			UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			Region:    viper.GetString("ARCHIVE_REGION"),
			AccountID: viper.GetString("ARCHIVE_ACCOUNT_ID"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if cfg.Ingest.Concurrency < 1 {
		cfg.Ingest.Concurrency = 1
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
