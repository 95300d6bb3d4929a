package writer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding"

	"csvsplit/internal/textenc"
)

// ChunkInfo describes a closed chunk file.
type ChunkInfo struct {
	Path  string `json:"path" yaml:"path"`
	Block int    `json:"block" yaml:"block"`
	Rows  int    `json:"rows" yaml:"rows"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
	// Checksum is the hex xxh3-64 of the file's bytes.
	Checksum string `json:"checksum" yaml:"checksum"`
}

// tally forwards writes and keeps a running size and xxh3 digest of the
// bytes that reached the file.
type tally struct {
	w io.Writer
	h *xxh3.Hasher
	n int64
}

func (t *tally) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	_, _ = t.h.Write(p[:n])
	t.n += int64(n)
	return n, err
}

// Chunk is one open output file. Rows flow through
//
//	Formatter -> MarkerStrip -> encoder -> tally -> bufio -> file
//
// so the header line loses its dedup suffixes before it is encoded.
type Chunk struct {
	info   ChunkInfo
	file   *os.File
	buf    *bufio.Writer
	sum    *tally
	enc    io.WriteCloser
	strip  *MarkerStrip
	format *Formatter
	closed bool
}

// OpenChunk creates (or truncates) path and writes header as its first line.
func OpenChunk(path string, block int, header []string, enc encoding.Encoding, quoteAll bool) (*Chunk, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", err)
	}
	c := &Chunk{info: ChunkInfo{Path: path, Block: block}, file: f}
	c.buf = bufio.NewWriterSize(f, 64*1024)
	c.sum = &tally{w: c.buf, h: xxh3.New()}
	c.enc = textenc.NewEncoder(c.sum, enc)
	c.strip = NewMarkerStrip(c.enc)
	c.format = NewFormatter(c.strip, quoteAll)

	if err := c.format.WriteRecord(header); err != nil {
		_, _ = c.Close()
		return nil, fmt.Errorf("write chunk header %s: %w", path, err)
	}
	return c, nil
}

// Write appends one data row.
func (c *Chunk) Write(fields []string) error {
	if c.closed {
		return fmt.Errorf("write to closed chunk %s", c.info.Path)
	}
	if err := c.format.WriteRecord(fields); err != nil {
		return fmt.Errorf("write chunk %s: %w", c.info.Path, err)
	}
	c.info.Rows++
	return nil
}

// Close flushes every stage in order and closes the file. Calling Close
// again returns the same info and a nil error.
func (c *Chunk) Close() (ChunkInfo, error) {
	if c.closed {
		return c.info, nil
	}
	c.closed = true

	errs := []error{
		c.format.Flush(),
		c.strip.Flush(),
		c.enc.Close(),
		c.buf.Flush(),
		c.file.Close(),
	}
	c.info.Bytes = c.sum.n
	c.info.Checksum = fmt.Sprintf("%016x", c.sum.h.Sum64())
	if err := errors.Join(errs...); err != nil {
		return c.info, fmt.Errorf("close chunk %s: %w", c.info.Path, err)
	}
	return c.info, nil
}
