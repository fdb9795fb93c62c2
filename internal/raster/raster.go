// Package raster names and produces the two PNG renditions of every PDF page:
// a regular one for display and a zoomed one for recognition.
package raster

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	RegularSuffix = "_r.png"
	ZoomedSuffix  = "_z.png"
)

// Rasterizer renders every page of pdfPath into outDir and returns the
// zoomed rendition paths in page order. A PDF that cannot be opened or
// parsed fails as a whole.
type Rasterizer interface {
	Render(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Stem is the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PageImageName returns "<stem>_p%03d" + suffix for a 1-based page number.
func PageImageName(stem string, page int, suffix string) string {
	return fmt.Sprintf("%s_p%03d%s", stem, page, suffix)
}

// RegularPath derives the regular rendition path from a zoomed one.
func RegularPath(zoomed string) (string, error) {
	if !strings.HasSuffix(zoomed, ZoomedSuffix) {
		return "", fmt.Errorf("not a zoomed rendition: %s", zoomed)
	}
	return strings.TrimSuffix(zoomed, ZoomedSuffix) + RegularSuffix, nil
}

// ZoomedPath is the inverse of RegularPath.
func ZoomedPath(regular string) (string, error) {
	if !strings.HasSuffix(regular, RegularSuffix) {
		return "", fmt.Errorf("not a regular rendition: %s", regular)
	}
	return strings.TrimSuffix(regular, RegularSuffix) + ZoomedSuffix, nil
}
