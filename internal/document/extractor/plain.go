package extractor

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
)

// PlainExtractor extracts text from plain text and HTML documents
type PlainExtractor struct{}

// NewPlainExtractor creates a new plain text extractor
func NewPlainExtractor() *PlainExtractor {
	return &PlainExtractor{}
}

// Extract passes UTF-8 text through, replacing invalid sequences
func (e *PlainExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// blockElements end a line in the extracted HTML text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "section": true, "article": true, "header": true, "footer": true,
}

// ExtractHTML extracts visible text from HTML content
func (e *PlainExtractor) ExtractHTML(ctx context.Context, data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	e.extractTextFromNode(doc, &textBuilder)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(textBuilder.String()), nil
}

// extractTextFromNode recursively extracts text from HTML nodes
func (e *PlainExtractor) extractTextFromNode(n *html.Node, textBuilder *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
		return
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			textBuilder.WriteString(text + " ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.extractTextFromNode(c, textBuilder)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		textBuilder.WriteString("\n")
	}
}
