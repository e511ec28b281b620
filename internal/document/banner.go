package document

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Fallback messages shown in place of extracted text
const (
	msgUnsupported   = "Content extraction is not supported for this file type."
	msgInvalidWord   = "File doesn't appear to be a valid Word document.\nIt may be corrupted or in an unsupported format."
	msgLegacyLimited = "Limited text could be extracted from this .doc file. It may be in an older format or contain mostly images."
	msgLegacyFailed  = "This .doc file could not be processed automatically. It may be in an older format or contain complex formatting. Error: %s"
	msgExtractFailed = "Error extracting text: %s"
	msgNoText        = "No readable text was found in this file."
)

// FileInfo is the remote metadata of a file
type FileInfo struct {
	Name         string
	MimeType     string
	Size         int64
	ModifiedTime time.Time
}

// Banner renders the metadata-only block used when text cannot be extracted
func Banner(info FileInfo, message string) string {
	size := "Unknown"
	if kb := int64(math.Round(float64(info.Size) / 1024)); kb > 0 {
		size = fmt.Sprintf("%dKB", kb)
	}

	modified := "Unknown"
	if !info.ModifiedTime.IsZero() {
		modified = info.ModifiedTime.Format("2006-01-02 15:04:05")
	}

	var sb strings.Builder
	sb.WriteString("[Document Information]\n")
	fmt.Fprintf(&sb, "Name: %s\n", info.Name)
	fmt.Fprintf(&sb, "Type: %s\n", info.MimeType)
	fmt.Fprintf(&sb, "Size: %s\n", size)
	fmt.Fprintf(&sb, "Modified: %s\n", modified)
	sb.WriteString("\n")
	sb.WriteString(message)
	return sb.String()
}

// FailedResult is the result for a file whose bytes could not even be fetched
func FailedResult(info FileInfo, err error) Result {
	return Result{
		FileName: info.Name,
		Content:  fmt.Sprintf("Error extracting content: %v", err),
		Fallback: true,
		Warnings: []string{err.Error()},
	}
}

func (p *Processor) fallback(info FileInfo, message string, cause error) Result {
	p.logger.Printf("Using fallback content for %q (%s): %s", info.Name, info.MimeType, firstLine(message))

	result := Result{
		FileName: info.Name,
		Content:  Banner(info, message),
		Fallback: true,
	}
	if cause != nil {
		result.Warnings = []string{cause.Error()}
	}
	return result
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
