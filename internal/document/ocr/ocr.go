// Package ocr recognises text in scanned images. Tesseract support is only
// compiled in with the "ocr" build tag.
package ocr

import "errors"

// ErrUnavailable is returned when the binary was built without OCR support
var ErrUnavailable = errors.New("OCR support not compiled in")

// ErrNoText is returned when recognition yields nothing
var ErrNoText = errors.New("no text extracted from image")
