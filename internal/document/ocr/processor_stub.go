//go:build !ocr

package ocr

import "context"

// Processor stands in for the Tesseract-backed processor in default builds
type Processor struct{}

// NewProcessor creates a processor that always reports OCR as unavailable
func NewProcessor(languages ...string) *Processor {
	return &Processor{}
}

// Available reports whether OCR is compiled in
func (p *Processor) Available() bool {
	return false
}

// Process always fails with ErrUnavailable
func (p *Processor) Process(ctx context.Context, data []byte) (string, error) {
	return "", ErrUnavailable
}
