package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gogotex/ocrsearch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "documents/7/scan_p001_r.png", ArchiveKey(7, "/data/pages/scan_p001_r.png"))
	assert.Equal(t, "documents/7/scan.pdf", ArchiveKey(7, "scan.pdf"))
}

func TestNewArchiveDisabled(t *testing.T) {
	a, err := NewArchive(context.Background(), config.ArchiveConfig{})
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewArchiveUnknown(t *testing.T) {
	_, err := NewArchive(context.Background(), config.ArchiveConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestNewArchiveMinIORequiresEndpoint(t *testing.T) {
	_, err := NewArchive(context.Background(), config.ArchiveConfig{Backend: "minio"})
	assert.Error(t, err)
}

func TestS3PresignIsOffline(t *testing.T) {
	a, err := NewArchive(context.Background(), config.ArchiveConfig{
		Backend:   "s3",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "pages",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", a.Name())

	raw, err := a.PresignGet(context.Background(), "documents/1/a_p001_r.png", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.True(t, strings.HasSuffix(u.Path, "/pages/documents/1/a_p001_r.png"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(config.ArchiveConfig{})
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeFor("a.png"))
	assert.Equal(t, "application/pdf", contentTypeFor("a.pdf"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("a.unknownext"))
}
