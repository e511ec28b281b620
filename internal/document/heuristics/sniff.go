package heuristics

import (
	"bytes"
	"strings"
)

// Format is the extraction strategy tag chosen for a file
type Format string

const (
	FormatLegacyDoc   Format = "legacy-doc"
	FormatDocx        Format = "docx"
	FormatPDF         Format = "pdf"
	FormatPlainText   Format = "plain-text"
	FormatODT         Format = "odt"
	FormatGoogleDoc   Format = "google-doc"
	FormatHTML        Format = "html"
	FormatImage       Format = "image"
	FormatUnsupported Format = "unsupported"
)

// MIME types the service recognises
const (
	MimeGoogleDoc    = "application/vnd.google-apps.document"
	MimeGoogleFolder = "application/vnd.google-apps.folder"
	MimeDocx         = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeMSWord       = "application/msword"
	MimePDF          = "application/pdf"
	MimeODT          = "application/vnd.oasis.opendocument.text"
	MimePlainText    = "text/plain"
	MimeHTML         = "text/html"
	MimeOctetStream  = "application/octet-stream"
)

// minSniffLength is the shortest buffer that can carry a usable signature
const minSniffLength = 8

var (
	oleSignature    = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	word97Signature = []byte{0xEC, 0xA5, 0xC1, 0x00}
	word6Signature  = []byte{0xDB, 0xA5, 0x2D, 0x00}
	pdfSignature    = []byte("%PDF-")
	zipSignature    = []byte{'P', 'K', 0x03, 0x04}

	// An OpenDocument package stores an uncompressed "mimetype" entry first
	odtMarker = []byte("mimetypeapplication/vnd.oasis.opendocument.text")
)

// Sniff classifies a buffer by its leading bytes only.
// Buffers shorter than 8 bytes are always unsupported.
func Sniff(data []byte) Format {
	if len(data) < minSniffLength {
		return FormatUnsupported
	}

	switch {
	case bytes.HasPrefix(data, oleSignature),
		bytes.HasPrefix(data, word97Signature),
		bytes.HasPrefix(data, word6Signature):
		return FormatLegacyDoc
	case bytes.HasPrefix(data, pdfSignature):
		return FormatPDF
	case bytes.HasPrefix(data, zipSignature):
		head := data
		if len(head) > 128 {
			head = head[:128]
		}
		if bytes.Contains(head, odtMarker) {
			return FormatODT
		}
		return FormatDocx
	}

	return FormatUnsupported
}

// Classify picks a format from the declared MIME type and falls back to the
// byte signature when the declared type is missing or generic.
func Classify(data []byte, declaredMIME string) Format {
	mimeType := strings.ToLower(strings.TrimSpace(declaredMIME))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	switch {
	case mimeType == MimeGoogleDoc:
		return FormatGoogleDoc
	case mimeType == MimeDocx:
		return FormatDocx
	case mimeType == MimeMSWord:
		return FormatLegacyDoc
	case mimeType == MimePDF:
		return FormatPDF
	case mimeType == MimeODT:
		return FormatODT
	case mimeType == MimePlainText:
		return FormatPlainText
	case mimeType == MimeHTML:
		return FormatHTML
	case strings.HasPrefix(mimeType, "image/"):
		return FormatImage
	case mimeType == "" || mimeType == MimeOctetStream:
		return Sniff(data)
	}

	return FormatUnsupported
}
