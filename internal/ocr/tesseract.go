package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractDetector runs OCR locally through the tesseract C library. Useful
// for development and air-gapped deployments where no remote provider is
// configured.
type TesseractDetector struct {
	languages []string
}

// NewTesseractDetector builds a local detector. Languages default to
// Indonesian plus English when empty.
func NewTesseractDetector(languages ...string) *TesseractDetector {
	if len(languages) == 0 {
		languages = []string{"ind", "eng"}
	}
	return &TesseractDetector{languages: languages}
}

// DetectText runs tesseract over the image bytes. A fresh client per call
// keeps this safe for concurrent jobs; gosseract clients are not goroutine
// safe.
func (d *TesseractDetector) DetectText(ctx context.Context, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", nil
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(d.languages...); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(content); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

var _ TextDetector = (*TesseractDetector)(nil)
