package heuristics

import (
	"regexp"
	"strings"
)

// Default truncation settings for Normalize
const (
	DefaultMarker     = "reference"
	DefaultLineBudget = 23
)

var (
	lineSplit     = regexp.MustCompile(`[\r\n]+`)
	outsideASCII  = regexp.MustCompile(`[^\x20-\x7E]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeOptions controls where Normalize cuts the text
type NormalizeOptions struct {
	// Marker ends the output at the first line containing it, case-insensitively
	Marker string
	// LineBudget caps the line count when no marker line exists
	LineBudget int
}

// DefaultNormalizeOptions returns the marker and line budget used for letters
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{Marker: DefaultMarker, LineBudget: DefaultLineBudget}
}

// Normalize cleans every line of extracted text, drops empty ones and
// truncates at the marker line (inclusive) or the line budget.
func Normalize(text string, opts NormalizeOptions) string {
	return strings.Join(NormalizeLines(text, opts), "\n")
}

// NormalizeLines is Normalize without the final join
func NormalizeLines(text string, opts NormalizeOptions) []string {
	var lines []string
	for _, line := range lineSplit.Split(text, -1) {
		// tabs separate table cells and must survive as spaces
		line = whitespaceRun.ReplaceAllString(line, " ")
		line = outsideASCII.ReplaceAllString(line, "")
		line = whitespaceRun.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	marker := strings.ToLower(opts.Marker)
	if marker != "" {
		for i, line := range lines {
			if strings.Contains(strings.ToLower(line), marker) {
				return lines[:i+1]
			}
		}
	}

	if opts.LineBudget > 0 && len(lines) > opts.LineBudget {
		return lines[:opts.LineBudget]
	}
	return lines
}
