package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compressor wraps archive streams in zlib (DEFLATE) framing
type Compressor struct {
	level int
}

// NewCompressor creates a new compressor. Levels 1-4 trade speed for ratio.
func NewCompressor(level int) (*Compressor, error) {
	encLevel := zlib.DefaultCompression
	switch level {
	case 1:
		encLevel = zlib.BestSpeed
	case 2:
		encLevel = zlib.DefaultCompression
	case 3:
		encLevel = 7
	case 4:
		encLevel = zlib.BestCompression
	}

	// Probe the level once so stream creation cannot fail later
	if _, err := zlib.NewWriterLevel(io.Discard, encLevel); err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	return &Compressor{level: encLevel}, nil
}

// NewWriter returns a writer that compresses into w. Close flushes the
// stream but leaves w open.
func (c *Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	if c == nil {
		return nopWriteCloser{w}, nil
	}
	zw, err := zlib.NewWriterLevel(w, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	return zw, nil
}

// NewReader returns a reader that decompresses r
func (c *Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	if c == nil {
		return io.NopCloser(r), nil
	}
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	return zr, nil
}

// Compress compresses a whole buffer
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w, err := c.NewWriter(buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return out, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
