package combine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sanjeevkumarraob/drive-search-service/internal/document"
)

// Batch and content limits of a combined document
const (
	MaxFiles        = 10
	MaxContentRunes = 10000

	truncatedNote  = "... (content truncated)"
	separatorWidth = 46
	fileNameLimit  = 30
	fallbackName   = "combined_documents"
)

// Separator is the rule printed under the banner
var Separator = strings.Repeat("―", separatorWidth)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Section is one source file in the combined document
type Section struct {
	Title     string
	Lines     []string
	Truncated bool
}

// Document is the layout of a combined export before rendering
type Document struct {
	Query       string
	GeneratedAt time.Time
	Sections    []Section
	// Excluded counts results dropped by the batch cap
	Excluded int
}

// Combine lays out extraction results in order under a query banner
func Combine(results []document.Result, query string, now time.Time) *Document {
	doc := &Document{
		Query:       strings.TrimSpace(query),
		GeneratedAt: now,
	}

	if len(results) > MaxFiles {
		doc.Excluded = len(results) - MaxFiles
		results = results[:MaxFiles]
	}

	for _, res := range results {
		content, truncated := truncate(res.Content, MaxContentRunes)
		if truncated {
			content += truncatedNote
		}
		doc.Sections = append(doc.Sections, Section{
			Title:     res.FileName,
			Lines:     strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n"),
			Truncated: truncated,
		})
	}
	return doc
}

// Banner returns the header lines of the document
func (d *Document) Banner() []string {
	query := d.Query
	if query == "" {
		query = "N/A"
	}
	return []string{
		"Search Query: " + query,
		fmt.Sprintf("Total Files: %d", len(d.Sections)),
		"Date: " + d.GeneratedAt.Format("01/02/2006") + " | Time: " + d.GeneratedAt.Format("03:04:05 PM"),
	}
}

// FileName derives the download name of a combined document
func FileName(query string, now time.Time) string {
	base := nonAlphanumeric.ReplaceAllString(strings.TrimSpace(query), "_")
	if len(base) > fileNameLimit {
		base = base[:fileNameLimit]
	}
	if strings.Trim(base, "_") == "" {
		base = fallbackName
	}
	return base + "_" + now.Format("2006-01-02_15-04-05") + ".docx"
}

func truncate(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
