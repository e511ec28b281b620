package extractor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Legacy Word errors
var (
	ErrNotCompoundFile   = errors.New("not an OLE compound file")
	ErrNoWordStream      = errors.New("WordDocument stream not found")
	ErrEncryptedDocument = errors.New("document is encrypted")
)

// maxStreamSize bounds how much of any one OLE stream is read
const maxStreamSize = 32 << 20

// File Information Block offsets in the WordDocument stream
const (
	fibIdent      = 0x00
	fibFlags      = 0x0A
	fibCcpText    = 0x4C
	fibFcClx      = 0x1A2
	fibLcbClx     = 0x1A6
	wordIdent     = 0xA5EC
	flagEncrypted = 0x0100
	flagTable1    = 0x0200
	fcCompressed  = 1 << 30
)

// LegacyWordExtractor reads Word 97-2003 binary documents through their
// piece table
type LegacyWordExtractor struct{}

// NewLegacyWordExtractor creates a new legacy Word extractor
func NewLegacyWordExtractor() *LegacyWordExtractor {
	return &LegacyWordExtractor{}
}

// Extract opens the compound file and decodes the main document text
func (e *LegacyWordExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	streams, err := e.readStreams(data)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wordDoc, ok := streams["WordDocument"]
	if !ok {
		return "", ErrNoWordStream
	}
	return pieceTableText(wordDoc, streams["0Table"], streams["1Table"])
}

// readStreams collects the streams needed to rebuild the text
func (e *LegacyWordExtractor) readStreams(data []byte) (map[string][]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCompoundFile, err)
	}

	streams := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch entry.Name {
		case "WordDocument", "0Table", "1Table":
			buf, err := io.ReadAll(io.LimitReader(entry, maxStreamSize))
			if err != nil {
				return nil, fmt.Errorf("failed to read %s stream: %w", entry.Name, err)
			}
			streams[entry.Name] = buf
		}
	}
	return streams, nil
}

// pieceTableText follows the Clx piece descriptors of the FIB and decodes
// each piece as Windows-1252 or UTF-16LE.
func pieceTableText(wordDoc, table0, table1 []byte) (string, error) {
	if len(wordDoc) < fibLcbClx+4 {
		return "", errors.New("WordDocument stream too short")
	}
	if binary.LittleEndian.Uint16(wordDoc[fibIdent:]) != wordIdent {
		return "", errors.New("unexpected FIB identifier")
	}

	flags := binary.LittleEndian.Uint16(wordDoc[fibFlags:])
	if flags&flagEncrypted != 0 {
		return "", ErrEncryptedDocument
	}

	table := table0
	if flags&flagTable1 != 0 {
		table = table1
	}
	if table == nil {
		return "", errors.New("table stream not found")
	}

	ccpText := int(binary.LittleEndian.Uint32(wordDoc[fibCcpText:]))
	fcClx := int(binary.LittleEndian.Uint32(wordDoc[fibFcClx:]))
	lcbClx := int(binary.LittleEndian.Uint32(wordDoc[fibLcbClx:]))
	if fcClx < 0 || lcbClx <= 0 || fcClx+lcbClx > len(table) {
		return "", errors.New("piece table out of range")
	}

	pcdt, err := findPcdt(table[fcClx : fcClx+lcbClx])
	if err != nil {
		return "", err
	}

	pieces := (len(pcdt) - 4) / 12
	if pieces <= 0 {
		return "", errors.New("empty piece table")
	}

	cp1252 := charmap.Windows1252.NewDecoder()
	utf16le := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

	var sb strings.Builder
	remaining := ccpText
	for i := 0; i < pieces && remaining > 0; i++ {
		cpStart := int(binary.LittleEndian.Uint32(pcdt[i*4:]))
		cpEnd := int(binary.LittleEndian.Uint32(pcdt[(i+1)*4:]))
		pcd := pcdt[(pieces+1)*4+i*8:]
		fc := binary.LittleEndian.Uint32(pcd[2:])

		chars := cpEnd - cpStart
		if chars <= 0 {
			continue
		}
		if chars > remaining {
			chars = remaining
		}
		remaining -= chars

		var raw []byte
		var decoded []byte
		if fc&fcCompressed != 0 {
			offset := int(fc&^fcCompressed) / 2
			if offset+chars > len(wordDoc) {
				return "", errors.New("piece outside WordDocument stream")
			}
			raw = wordDoc[offset : offset+chars]
			decoded, err = cp1252.Bytes(raw)
		} else {
			offset := int(fc)
			if offset+chars*2 > len(wordDoc) {
				return "", errors.New("piece outside WordDocument stream")
			}
			raw = wordDoc[offset : offset+chars*2]
			decoded, err = utf16le.Bytes(raw)
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode piece %d: %w", i, err)
		}
		sb.Write(decoded)
	}

	text := strings.TrimSpace(stripWordControls(sb.String()))
	if text == "" {
		return "", ErrNoWordText
	}
	return text, nil
}

// findPcdt skips Prc entries in a Clx and returns the PlcPcd payload
func findPcdt(clx []byte) ([]byte, error) {
	for i := 0; i < len(clx); {
		switch clx[i] {
		case 0x01:
			if i+3 > len(clx) {
				return nil, errors.New("truncated Prc")
			}
			size := int(int16(binary.LittleEndian.Uint16(clx[i+1:])))
			if size < 0 {
				return nil, errors.New("invalid Prc size")
			}
			i += 3 + size
		case 0x02:
			if i+5 > len(clx) {
				return nil, errors.New("truncated Pcdt")
			}
			lcb := int(binary.LittleEndian.Uint32(clx[i+1:]))
			if i+5+lcb > len(clx) {
				return nil, errors.New("Pcdt out of range")
			}
			return clx[i+5 : i+5+lcb], nil
		default:
			return nil, fmt.Errorf("unexpected Clx entry 0x%02x", clx[i])
		}
	}
	return nil, errors.New("Pcdt not found")
}

// stripWordControls maps Word's in-band control characters to plain text.
// Field instructions between 0x13 and 0x14 are dropped, the field result kept.
func stripWordControls(text string) string {
	var sb strings.Builder
	inFieldCode := 0

	for _, r := range text {
		switch r {
		case 0x13:
			inFieldCode++
			continue
		case 0x14, 0x15:
			if inFieldCode > 0 {
				inFieldCode--
			}
			continue
		}
		if inFieldCode > 0 {
			continue
		}

		switch {
		case r == '\r', r == 0x0B, r == 0x0C:
			sb.WriteByte('\n')
		case r == 0x07, r == '\t':
			sb.WriteByte('\t')
		case r < 0x20:
			// other control marks carry no text
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
