package storage

import "github.com/gogotex/ocrsearch/internal/config"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func minioConfigFrom(cfg config.ArchiveConfig) *MinIOConfig {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "ocrsearch"
	}
	return &MinIOConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    bucket,
	}
}
