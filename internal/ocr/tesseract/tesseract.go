// Package tesseract is the Tesseract-backed ocr.Extractor.
package tesseract

import (
	"context"
	"fmt"

	"github.com/gogotex/ocrsearch/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

type Extractor struct {
	Language       string
	TessdataPrefix string

	clientFactory func() *gosseract.Client
}

// New returns an extractor for a single fixed language ("eng" when empty).
func New(language, tessdataPrefix string) *Extractor {
	if language == "" {
		language = "eng"
	}
	return &Extractor{Language: language, TessdataPrefix: tessdataPrefix, clientFactory: gosseract.NewClient}
}

// Extract converts the image to grayscale, recognizes it and normalizes the
// text. A fresh client is used per call; clients are not goroutine-safe.
func (e *Extractor) Extract(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := ocr.GrayscalePNG(imagePath)
	if err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()
	if e.TessdataPrefix != "" {
		c.SetTessdataPrefix(e.TessdataPrefix)
	}
	if err := c.SetLanguage(e.Language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return ocr.Normalize(text), nil
}

// Version reports the linked Tesseract version.
func Version() string {
	c := gosseract.NewClient()
	defer c.Close()
	return c.Version()
}
