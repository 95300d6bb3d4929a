// Package writer owns the output side of a run: it decides where chunk
// boundaries fall and streams each chunk through formatting, header
// marker stripping and encoding into its file.
//
// A ChunkWriter runs one of two policies, fixed for the whole run:
//
//   - ModeSimple counts physical rows and closes a chunk after every Limit
//     rows. Rows are independent, so any row boundary is a valid cut.
//   - ModeTable counts table starts (rows whose marker column equals the
//     start value) and only rotates in front of a table start, so a logical
//     table never spans two files. Each chunk holds Limit tables.
//
// At most one chunk is open at a time and a closed chunk is never reopened.
package writer

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/encoding"

	"csvsplit/pkg/records"
)

// Mode selects the chunk rotation policy.
type Mode int

const (
	ModeSimple Mode = iota
	ModeTable
)

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeTable:
		return "table"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options configures a ChunkWriter.
type Options struct {
	// BasePath is the output path ending in .csv; chunks get "_N" inserted.
	BasePath string
	Limit    int
	Encoding encoding.Encoding
	QuoteAll bool

	// TableMarker and TableStart select ModeTable when the header has a
	// TableMarker key; see ModeFor.
	TableMarker string
	TableStart  string

	Logger *slog.Logger
}

// ModeFor returns ModeTable when marker is a key of h.
func ModeFor(h *records.HeaderMap, marker string) Mode {
	if marker != "" && h.Has(marker) {
		return ModeTable
	}
	return ModeSimple
}

// ChunkWriter is the chunking state for one run. The pipeline owns it and
// hands it every row in input order.
type ChunkWriter struct {
	opt     Options
	mode    Mode
	headers *records.HeaderMap
	header  []string

	// count is the rotation counter: rows written (simple) or table starts
	// seen (table). It only grows.
	count  int
	rows   int
	cur    *Chunk
	chunks []ChunkInfo
	closed bool
}

// New returns a ChunkWriter for rows keyed by h.
func New(h *records.HeaderMap, opt Options) (*ChunkWriter, error) {
	if opt.Limit <= 0 {
		return nil, fmt.Errorf("writer: limit must be > 0, got %d", opt.Limit)
	}
	if opt.Encoding == nil {
		return nil, errors.New("writer: output encoding is required")
	}
	if _, err := ChunkPath(opt.BasePath, 1); err != nil {
		return nil, err
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &ChunkWriter{
		opt:     opt,
		mode:    ModeFor(h, opt.TableMarker),
		headers: h,
		header:  h.Keys(),
	}, nil
}

// Mode returns the policy selected from the header.
func (w *ChunkWriter) Mode() Mode { return w.mode }

// Count returns rows written in ModeSimple or table starts seen in ModeTable.
func (w *ChunkWriter) Count() int { return w.count }

// RowsWritten returns the number of data rows written across all chunks.
func (w *ChunkWriter) RowsWritten() int { return w.rows }

// Chunks returns the chunks closed so far, in block order.
func (w *ChunkWriter) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, len(w.chunks))
	copy(out, w.chunks)
	return out
}

// WriteRow routes row to the open chunk, rotating first when the policy
// requires it.
func (w *ChunkWriter) WriteRow(row records.Row) error {
	if w.closed {
		return errors.New("writer: write after close")
	}
	if w.mode == ModeTable {
		return w.writeTableRow(row)
	}
	return w.writeSimpleRow(row)
}

func (w *ChunkWriter) writeSimpleRow(row records.Row) error {
	if w.cur == nil {
		if err := w.open(BlockFor(w.count, w.opt.Limit)); err != nil {
			return err
		}
	}
	if err := w.write(row); err != nil {
		return err
	}
	w.count++
	if w.count%w.opt.Limit == 0 {
		return w.closeCurrent()
	}
	return nil
}

func (w *ChunkWriter) writeTableRow(row records.Row) error {
	if w.cur == nil {
		if err := w.open(BlockFor(w.count, w.opt.Limit)); err != nil {
			return err
		}
	}
	if row[w.opt.TableMarker] == w.opt.TableStart {
		w.count++
		// The first table start never rotates: chunk 1 is already open and
		// may hold rows that precede it.
		if w.count > 1 && (w.count-1)%w.opt.Limit == 0 {
			if err := w.closeCurrent(); err != nil {
				return err
			}
			// count-1 tables precede this one, all in earlier chunks.
			if err := w.open(BlockFor(w.count-1, w.opt.Limit)); err != nil {
				return err
			}
		}
	}
	return w.write(row)
}

func (w *ChunkWriter) write(row records.Row) error {
	if err := w.cur.Write(w.headers.Values(row)); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *ChunkWriter) open(block int) error {
	path, err := ChunkPath(w.opt.BasePath, block)
	if err != nil {
		return err
	}
	c, err := OpenChunk(path, block, w.header, w.opt.Encoding, w.opt.QuoteAll)
	if err != nil {
		return err
	}
	w.cur = c
	w.opt.Logger.Debug("chunk opened", "path", path, "block", block, "mode", w.mode.String())
	return nil
}

func (w *ChunkWriter) closeCurrent() error {
	c := w.cur
	w.cur = nil
	info, err := c.Close()
	w.chunks = append(w.chunks, info)
	if err != nil {
		return err
	}
	w.opt.Logger.Info("chunk closed",
		"path", info.Path,
		"block", info.Block,
		"rows", info.Rows,
		"bytes", info.Bytes,
		"xxh3", info.Checksum,
	)
	return nil
}

// Close flushes and closes the open chunk, if any. It is safe to call more
// than once.
func (w *ChunkWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.cur == nil {
		return nil
	}
	return w.closeCurrent()
}
