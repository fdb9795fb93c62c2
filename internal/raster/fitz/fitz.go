// Package fitz renders PDF pages with MuPDF.
package fitz

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	gofitz "github.com/gen2brain/go-fitz"
	"github.com/gogotex/ocrsearch/internal/raster"
	"github.com/gogotex/ocrsearch/pkg/logger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// baseDPI is the PDF user-space resolution; scale 1.0 renders at 72 dpi.
const baseDPI = 72.0

var ErrTooManyPages = errors.New("pdf exceeds page limit")

type Renderer struct {
	RegularScale float64
	ZoomScale    float64
	// MaxPages rejects larger documents when > 0.
	MaxPages int
	// Validate runs a relaxed pdfcpu validation before rendering.
	Validate bool
}

func New(regularScale, zoomScale float64, maxPages int, validate bool) *Renderer {
	if regularScale <= 0 {
		regularScale = 1.0
	}
	if zoomScale <= 0 {
		zoomScale = 5.0
	}
	return &Renderer{RegularScale: regularScale, ZoomScale: zoomScale, MaxPages: maxPages, Validate: validate}
}

// Render writes "<stem>_pNNN_r.png" and "<stem>_pNNN_z.png" for every page
// into outDir and returns the zoomed paths in page order. On error the
// files written so far are removed.
func (r *Renderer) Render(ctx context.Context, pdfPath, outDir string) (paths []string, err error) {
	if r.Validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.ValidateFile(pdfPath, conf); err != nil {
			return nil, fmt.Errorf("validate %s: %w", filepath.Base(pdfPath), err)
		}
	}

	doc, err := gofitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(pdfPath), err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if r.MaxPages > 0 && n > r.MaxPages {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPages, n, r.MaxPages)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	var written []string
	defer func() {
		if err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
		}
	}()

	stem := raster.Stem(pdfPath)
	paths = make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i + 1
		regular := filepath.Join(outDir, raster.PageImageName(stem, page, raster.RegularSuffix))
		zoomed := filepath.Join(outDir, raster.PageImageName(stem, page, raster.ZoomedSuffix))

		if err := r.renderPage(doc, i, r.RegularScale, regular); err != nil {
			return nil, err
		}
		written = append(written, regular)
		if err := r.renderPage(doc, i, r.ZoomScale, zoomed); err != nil {
			return nil, err
		}
		written = append(written, zoomed)
		paths = append(paths, zoomed)
	}
	logger.Debugf("rendered %d pages of %s", n, filepath.Base(pdfPath))
	return paths, nil
}

func (r *Renderer) renderPage(doc *gofitz.Document, index int, scale float64, out string) error {
	img, err := doc.ImageDPI(index, baseDPI*scale)
	if err != nil {
		return fmt.Errorf("render page %d: %w", index+1, err)
	}
	return writePNG(out, img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
