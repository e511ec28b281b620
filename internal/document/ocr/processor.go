//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Processor handles OCR processing
type Processor struct {
	mutex     sync.Mutex
	languages []string
}

// NewProcessor creates a new OCR processor for the given Tesseract languages
func NewProcessor(languages ...string) *Processor {
	return &Processor{languages: languages}
}

// Available reports whether OCR is compiled in
func (p *Processor) Available() bool {
	return true
}

// Process extracts text from an encoded image
func (p *Processor) Process(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Tesseract instances are not safe to drive concurrently
	p.mutex.Lock()
	defer p.mutex.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if len(p.languages) > 0 {
		if err := client.SetLanguage(p.languages...); err != nil {
			return "", fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
