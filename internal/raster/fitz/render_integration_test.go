//go:build integration

package fitz

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePDF builds a PDF with one page per image via pdfcpu.
func makePDF(t *testing.T, dir string, pages int) string {
	t.Helper()
	var imgs []string
	for i := 0; i < pages; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 100, 140))
		for x := 0; x < 100; x++ {
			img.Set(x, 70, color.Black)
		}
		p := filepath.Join(dir, "img"+string(rune('a'+i))+".png")
		f, err := os.Create(p)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
		imgs = append(imgs, p)
	}
	out := filepath.Join(dir, "scan.pdf")
	require.NoError(t, api.ImportImagesFile(imgs, out, nil, nil))
	return out
}

func TestRenderWritesBothRenditions(t *testing.T) {
	dir := t.TempDir()
	pdf := makePDF(t, dir, 3)
	out := filepath.Join(dir, "pages")

	paths, err := New(1, 2, 0, true).Render(context.Background(), pdf, out)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(out, "scan_p001_z.png"), paths[0])
	assert.Equal(t, filepath.Join(out, "scan_p003_z.png"), paths[2])
	for _, name := range []string{"scan_p001_r.png", "scan_p002_r.png", "scan_p003_r.png"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err)
	}
}

func TestRenderPageLimit(t *testing.T) {
	dir := t.TempDir()
	pdf := makePDF(t, dir, 2)
	_, err := New(1, 2, 1, false).Render(context.Background(), pdf, filepath.Join(dir, "pages"))
	assert.ErrorIs(t, err, ErrTooManyPages)
}
