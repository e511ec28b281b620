package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// zipFiles builds an in-memory zip archive with the given entries in order
func zipFiles(t *testing.T, entries [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e[0])
		if err != nil {
			t.Fatalf("zip create %s: %v", e[0], err)
		}
		if _, err := w.Write([]byte(e[1])); err != nil {
			t.Fatalf("zip write %s: %v", e[0], err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestPlainExtractor(t *testing.T) {
	e := NewPlainExtractor()

	got, err := e.Extract(context.Background(), []byte("line one\nline two"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "line one\nline two" {
		t.Errorf("Extract() = %q", got)
	}

	got, err = e.Extract(context.Background(), []byte{'o', 'k', 0xFF})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "ok�" {
		t.Errorf("Extract() invalid UTF-8 = %q", got)
	}
}

func TestPlainExtractorHTML(t *testing.T) {
	page := `<html><head><title>skip</title><style>p{}</style></head>
<body><h1>Quarterly report</h1><p>Revenue <b>grew</b> again.</p><script>var x = 1;</script></body></html>`

	got, err := NewPlainExtractor().ExtractHTML(context.Background(), []byte(page))
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	if !strings.Contains(got, "Quarterly report") || !strings.Contains(got, "Revenue grew again.") {
		t.Errorf("ExtractHTML() = %q", got)
	}
	if strings.Contains(got, "var x") || strings.Contains(got, "skip") {
		t.Errorf("ExtractHTML() leaked script or head content: %q", got)
	}
}

func TestWordExtractorXML(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Dear</w:t></w:r><w:r><w:t xml:space="preserve"> customer</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>para</w:t></w:r></w:p>
</w:body></w:document>`
	data := zipFiles(t, [][2]string{{"[Content_Types].xml", "<Types/>"}, {"word/document.xml", body}})

	got, err := NewWordExtractor().ExtractXML(context.Background(), data)
	if err != nil {
		t.Fatalf("ExtractXML() error = %v", err)
	}
	if got != "Dear customer\nSecond\tpara" {
		t.Errorf("ExtractXML() = %q", got)
	}
}

func TestWordExtractorRejectsNonZip(t *testing.T) {
	e := NewWordExtractor()
	if _, err := e.ExtractXML(context.Background(), []byte("not a zip at all")); err == nil {
		t.Error("ExtractXML() expected error for non-zip input")
	}
	if _, err := e.Extract(context.Background(), []byte("not a zip at all")); err == nil {
		t.Error("Extract() expected error for non-zip input")
	}
}

func TestODTExtractor(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:text>
<text:h>Minutes</text:h>
<text:p>Attendees <text:span>were</text:span><text:s/>present.</text:p>
</office:text></office:body></office:document-content>`
	data := zipFiles(t, [][2]string{{"mimetype", "application/vnd.oasis.opendocument.text"}, {"content.xml", content}})

	got, err := NewODTExtractor().Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "Minutes\nAttendees were present." {
		t.Errorf("Extract() = %q", got)
	}
}

func TestPDFExtractorRejectsCorruptInput(t *testing.T) {
	e := NewPDFExtractor()
	ctx := context.Background()

	if _, err := e.Extract(ctx, []byte("plain text pretending")); err == nil {
		t.Error("Extract() expected error without PDF header")
	}
	if _, err := e.Extract(ctx, []byte("%PDF-1.4\nthis is not a real pdf body")); err == nil {
		t.Error("Extract() expected error for corrupt PDF")
	}
	if _, err := e.ExtractContentStreams(ctx, []byte("%PDF-1.4\nthis is not a real pdf body")); err == nil {
		t.Error("ExtractContentStreams() expected error for corrupt PDF")
	}
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 712 Td\n(Hello \\(PDF\\)) Tj\nT*\n[(Wor) -20 (ld)] TJ\nET\n")

	got := textFromContentStream(stream)
	if got != "Hello (PDF)\nWorld" {
		t.Errorf("textFromContentStream() = %q", got)
	}
}

func TestDecodePDFStringOctal(t *testing.T) {
	if got := decodePDFString([]byte(`A\040B\n`)); got != "A B\n" {
		t.Errorf("decodePDFString() = %q", got)
	}
}

// wordStreams builds a minimal WordDocument stream and table stream holding
// text as one compressed piece.
func wordStreams(text string, flags uint16) (wordDoc, table []byte) {
	const textOffset = 0x400
	wordDoc = make([]byte, textOffset+len(text))
	binary.LittleEndian.PutUint16(wordDoc[fibIdent:], wordIdent)
	binary.LittleEndian.PutUint16(wordDoc[fibFlags:], flags)
	binary.LittleEndian.PutUint32(wordDoc[fibCcpText:], uint32(len(text)))
	copy(wordDoc[textOffset:], text)

	plc := make([]byte, 16)
	binary.LittleEndian.PutUint32(plc[0:], 0)
	binary.LittleEndian.PutUint32(plc[4:], uint32(len(text)))
	binary.LittleEndian.PutUint32(plc[10:], uint32(textOffset*2)|fcCompressed)

	table = append([]byte{0x02, 0, 0, 0, 0}, plc...)
	binary.LittleEndian.PutUint32(table[1:], uint32(len(plc)))

	binary.LittleEndian.PutUint32(wordDoc[fibFcClx:], 0)
	binary.LittleEndian.PutUint32(wordDoc[fibLcbClx:], uint32(len(table)))
	return wordDoc, table
}

func TestPieceTableText(t *testing.T) {
	wordDoc, table := wordStreams("Hello legacy world\rSee \x13 HYPERLINK x \x14here\x15.\r", flagTable1)

	got, err := pieceTableText(wordDoc, nil, table)
	if err != nil {
		t.Fatalf("pieceTableText() error = %v", err)
	}
	if got != "Hello legacy world\nSee here." {
		t.Errorf("pieceTableText() = %q", got)
	}
}

func TestPieceTableTextEncrypted(t *testing.T) {
	wordDoc, table := wordStreams("secret", flagEncrypted)

	if _, err := pieceTableText(wordDoc, table, nil); !errors.Is(err, ErrEncryptedDocument) {
		t.Errorf("pieceTableText() error = %v, want %v", err, ErrEncryptedDocument)
	}
}

func TestLegacyWordExtractorRejectsNonOLE(t *testing.T) {
	_, err := NewLegacyWordExtractor().Extract(context.Background(), []byte("definitely not an OLE file, just text"))
	if !errors.Is(err, ErrNotCompoundFile) {
		t.Errorf("Extract() error = %v, want %v", err, ErrNotCompoundFile)
	}
}

func TestConverterMissingBinary(t *testing.T) {
	workRoot := t.TempDir()
	c := NewConverter("no-such-converter-binary", workRoot, time.Second)

	if _, err := c.ConvertToDocx(context.Background(), []byte("doc")); !errors.Is(err, ErrConverterUnavailable) {
		t.Fatalf("ConvertToDocx() error = %v, want %v", err, ErrConverterUnavailable)
	}
	assertEmptyDir(t, workRoot)
}

func TestConverterCleansUpWorkDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake converter is a shell script")
	}

	binDir := t.TempDir()
	script := filepath.Join(binDir, "fake-soffice")
	// args: --headless --convert-to docx --outdir <dir> <input>
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncp \"$6\" \"$5/input.docx\"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	workRoot := t.TempDir()
	c := NewConverter(script, workRoot, 10*time.Second)

	out, err := c.ConvertToDocx(context.Background(), []byte("converted payload"))
	if err != nil {
		t.Fatalf("ConvertToDocx() error = %v", err)
	}
	if string(out) != "converted payload" {
		t.Errorf("ConvertToDocx() = %q", out)
	}
	assertEmptyDir(t, workRoot)
}

func TestConverterFailureCleansUp(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake converter is a shell script")
	}

	binDir := t.TempDir()
	script := filepath.Join(binDir, "broken-soffice")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	workRoot := t.TempDir()
	_, err := NewConverter(script, workRoot, 10*time.Second).ConvertToDocx(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("ConvertToDocx() error = %v, want stderr in message", err)
	}
	assertEmptyDir(t, workRoot)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%s still holds %d entries", dir, len(entries))
	}
}
