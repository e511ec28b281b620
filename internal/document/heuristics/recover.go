package heuristics

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// candidate is one decoding the recoverer tries
type candidate struct {
	name     string
	encoding encoding.Encoding
}

// candidates are tried in order; on equal scores the earlier one wins
var candidates = []candidate{
	{name: "utf-8", encoding: unicode.UTF8},
	{name: "utf-16le", encoding: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{name: "utf-16be", encoding: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{name: "latin-1", encoding: charmap.ISO8859_1},
}

var (
	wordNoisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)~!bjbj.*?uDhhCtyG`),
		regexp.MustCompile(`(?s)Root Entry.*?WordDocument`),
		regexp.MustCompile(`(?s)Microsoft Office Word.*?Normal\.dotm`),
	}
	nonPrintableRun = regexp.MustCompile(`[^\x20-\x7E\n\r\t]+`)
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	lineBreak       = regexp.MustCompile(`\r\n?`)
	printableLine   = regexp.MustCompile(`^[\x20-\x7E]+$`)
	letterRun       = regexp.MustCompile(`[a-zA-Z]{3,}`)
)

// letterMarkers flag lines that look like parts of a business letter
var letterMarkers = []string{"Reference:", "Subject:", "Date:", "To:", "From:", "Dear", "Regards", "Sincerely"}

// Decoded is the winning decoding of a byte buffer
type Decoded struct {
	Encoding string
	Text     string
	Score    int
}

// Decode tries every candidate encoding and keeps the one with the most
// printable characters. ok is false when no candidate yields any.
func Decode(data []byte) (Decoded, bool) {
	var best Decoded
	for _, c := range candidates {
		out, err := c.encoding.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(out)
		score := printableScore(text)
		if score > best.Score {
			best = Decoded{Encoding: c.name, Text: text, Score: score}
		}
	}
	return best, best.Score > 0
}

// Recover decodes a buffer of unknown encoding and reduces it to its
// meaningful lines. ok is false when nothing readable survives.
func Recover(data []byte) (string, bool) {
	decoded, ok := Decode(data)
	if !ok {
		return "", false
	}
	return Clean(decoded.Text)
}

// Clean strips Word binary noise and keeps only meaningful lines
func Clean(text string) (string, bool) {
	for _, re := range wordNoisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = nonPrintableRun.ReplaceAllString(text, " ")
	text = lineBreak.ReplaceAllString(text, "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if isMeaningful(line) {
			kept = append(kept, line)
		}
	}

	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, "\n"), true
}

// printableScore counts printable ASCII plus newline, carriage return and
// tab. NULs and replacement characters count against a decoding, otherwise
// UTF-8 ties with UTF-16 on every ASCII-range document.
func printableScore(text string) int {
	score := 0
	for _, r := range text {
		switch {
		case (r >= 0x20 && r <= 0x7E) || r == '\n' || r == '\r' || r == '\t':
			score++
		case r == 0x00 || r == utf8.RuneError:
			score--
		}
	}
	return score
}

func isMeaningful(line string) bool {
	if len(line) < 3 || !printableLine.MatchString(line) {
		return false
	}
	for _, marker := range letterMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return len(line) > 10 && letterRun.MatchString(line)
}
