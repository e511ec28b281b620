package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/unidoc/unioffice/document"
)

// ErrNoWordText is returned when a Word package holds no text
var ErrNoWordText = errors.New("no text extracted from Word document")

// WordExtractor extracts text from Word (.docx) documents
type WordExtractor struct{}

// NewWordExtractor creates a new Word extractor
func NewWordExtractor() *WordExtractor {
	return &WordExtractor{}
}

// Extract reads body paragraphs and table cells with unioffice
func (e *WordExtractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unioffice panic: %v", r)
		}
	}()

	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open Word document: %w", err)
	}

	var lines []string
	for _, para := range doc.Paragraphs() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lines = append(lines, paragraphText(para))
	}

	// Table content is not part of doc.Paragraphs()
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				var parts []string
				for _, para := range cell.Paragraphs() {
					if text := strings.TrimSpace(paragraphText(para)); text != "" {
						parts = append(parts, text)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			lines = append(lines, strings.Join(cells, "\t"))
		}
	}

	text = strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", ErrNoWordText
	}
	return text, nil
}

// ExtractXML walks word/document.xml directly. It serves packages unioffice
// refuses to open.
func (e *WordExtractor) ExtractXML(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open Word package: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()

		text, err := xmlText(ctx, rc, []string{"p"}, "t")
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", ErrNoWordText
		}
		return text, nil
	}

	return "", errors.New("word/document.xml not found")
}

func paragraphText(para document.Paragraph) string {
	var sb strings.Builder
	for _, run := range para.Runs() {
		sb.WriteString(run.Text())
	}
	return sb.String()
}

// xmlText collects character data from an office XML body. Paragraph
// elements end a line. With textElem set, only character data inside that
// element counts; otherwise everything inside a paragraph does.
func xmlText(ctx context.Context, r io.Reader, paraElems []string, textElem string) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	paraDepth, inText := 0, 0

	isPara := func(name string) bool {
		for _, p := range paraElems {
			if p == name {
				return true
			}
		}
		return false
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch {
			case isPara(name):
				paraDepth++
			case name == textElem:
				inText++
			case name == "tab":
				sb.WriteByte('\t')
			case name == "br" || name == "line-break":
				sb.WriteByte('\n')
			case name == "s":
				sb.WriteByte(' ')
			}
		case xml.EndElement:
			name := t.Name.Local
			switch {
			case isPara(name):
				if paraDepth > 0 {
					paraDepth--
				}
				sb.WriteByte('\n')
			case name == textElem && inText > 0:
				inText--
			}
		case xml.CharData:
			if inText > 0 || (textElem == "" && paraDepth > 0) {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
