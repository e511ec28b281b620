package stream

import (
	"bytes"
	"errors"
	"io"
)

// ErrTooLarge is returned when a stream exceeds the allowed size
var ErrTooLarge = errors.New("stream exceeds maximum allowed size")

// DefaultChunkSize is used when a non-positive chunk size is given
const DefaultChunkSize = 64 * 1024

// ChunkedReader reads a stream in fixed-size chunks
type ChunkedReader struct {
	reader    io.Reader
	chunkSize int
	buffer    []byte
	eof       bool
}

// NewChunkedReader creates a new chunked reader
func NewChunkedReader(reader io.Reader, chunkSize int) *ChunkedReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkedReader{
		reader:    reader,
		chunkSize: chunkSize,
		buffer:    make([]byte, chunkSize),
	}
}

// NextChunk reads up to one chunk. The returned slice is only valid until
// the next call. io.EOF is returned once the stream is drained.
func (cr *ChunkedReader) NextChunk() ([]byte, error) {
	if cr.eof {
		return nil, io.EOF
	}

	n, err := io.ReadFull(cr.reader, cr.buffer)
	switch {
	case errors.Is(err, io.EOF):
		cr.eof = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		cr.eof = true
		return cr.buffer[:n], nil
	case err != nil:
		return nil, err
	}
	return cr.buffer[:n], nil
}

// ReadAll reads chunks until EOF and fails with ErrTooLarge as soon as more
// than maxBytes have been read. A non-positive maxBytes means no limit.
func (cr *ChunkedReader) ReadAll(maxBytes int64) ([]byte, error) {
	var out bytes.Buffer
	for {
		chunk, err := cr.NextChunk()
		if errors.Is(err, io.EOF) {
			return out.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}

		if maxBytes > 0 && int64(out.Len()+len(chunk)) > maxBytes {
			return nil, ErrTooLarge
		}
		out.Write(chunk)
	}
}

// ReadLimited reads r completely, failing with ErrTooLarge past maxBytes
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	return NewChunkedReader(r, DefaultChunkSize).ReadAll(maxBytes)
}
