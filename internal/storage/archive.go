package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/gogotex/ocrsearch/internal/config"
)

// Archive mirrors ingested files to object storage so page images can still
// be served after the local copies are gone.
type Archive interface {
	Name() string
	Put(ctx context.Context, key, path string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// ArchiveKey is the object key for a file belonging to a document.
func ArchiveKey(documentID int64, path string) string {
	return fmt.Sprintf("documents/%d/%s", documentID, filepath.Base(path))
}

// NewArchive builds the archive named by cfg.Backend. It returns nil, nil
// when archiving is disabled.
func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "minio":
		return NewMinIOStorage(ctx, minioConfigFrom(cfg))
	case "s3", "r2":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
