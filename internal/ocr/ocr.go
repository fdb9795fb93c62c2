// Package ocr defines the text extraction contract and the image and text
// processing shared by recognition engines.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"
)

// Extractor recognizes the text on one rendered page image and returns it
// normalized. An empty string means no text was found.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, imagePath string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, imagePath string) (string, error) {
	return f(ctx, imagePath)
}

// Normalize collapses every whitespace run, newlines included, into one
// space and trims both ends. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ToGray converts img to 8-bit luminance.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// GrayscalePNG loads the image at path and returns it re-encoded as a
// single-channel PNG.
func GrayscalePNG(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, ToGray(img)); err != nil {
		return nil, fmt.Errorf("encode grayscale: %w", err)
	}
	return buf.Bytes(), nil
}
