package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
)

// ErrNoODTText is returned when an OpenDocument package holds no text
var ErrNoODTText = errors.New("no text extracted from OpenDocument file")

// ODTExtractor extracts text from OpenDocument text files
type ODTExtractor struct{}

// NewODTExtractor creates a new OpenDocument extractor
func NewODTExtractor() *ODTExtractor {
	return &ODTExtractor{}
}

// Extract reads text:p and text:h elements from content.xml
func (e *ODTExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open OpenDocument package: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "content.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open content.xml: %w", err)
		}
		defer rc.Close()

		text, err := xmlText(ctx, rc, []string{"p", "h"}, "")
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", ErrNoODTText
		}
		return text, nil
	}

	return "", errors.New("content.xml not found")
}
