// Package csv reads decoded CSV text for the pipeline's two source passes:
// a headerless read of the first record (to resolve column keys) and a
// streaming pass that maps every following record onto those keys.
//
// Both passes sit on encoding/csv and never buffer more than one record.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"csvsplit/internal/config"
	"csvsplit/pkg/records"
)

// ErrTooManyFields reports a record wider than the header row.
var ErrTooManyFields = errors.New("csv: record has more fields than the header")

// Options configures the underlying csv.Reader.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// LazyQuotes tolerates stray quotes inside unquoted fields.
	LazyQuotes bool
}

// OptionsFrom reads parser options from a config options bag.
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		LazyQuotes: o.Bool("lazy_quotes", false),
	}
}

func newReader(r io.Reader, opt Options) *csv.Reader {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is enforced against the header by StreamRows.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// ReadFirstRecord reads exactly one record from r without treating it as a
// header. A leading UTF-8 BOM is stripped from the first cell. An empty
// input yields a nil record and no error.
func ReadFirstRecord(r io.Reader, opt Options) ([]string, error) {
	cr := newReader(r, opt)
	cr.ReuseRecord = false
	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return StripHeaderBOM(rec), nil
}

// RowFunc receives each data row with the 1-based physical line it started
// on. Returning an error stops the stream and StreamRows returns it.
type RowFunc func(line int, row records.Row) error

// StreamRows skips the physical header record of r and calls fn once per
// remaining record, in order, with fields keyed by h. Records shorter than
// the header leave the trailing keys absent; wider records fail with
// ErrTooManyFields. Parse errors are fatal. The context is checked between
// records.
//
// Returns the number of data records handed to fn.
func StreamRows(ctx context.Context, r io.Reader, h *records.HeaderMap, opt Options, fn RowFunc) (int, error) {
	cr := newReader(r, opt)
	keys := h.Keys()

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("parse: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(keys) {
			return n, fmt.Errorf("line %d: %w: expected %d, got %d", line, ErrTooManyFields, len(keys), len(rec))
		}

		row := make(records.Row, len(keys))
		for i, v := range rec {
			row[keys[i]] = v
		}
		n++
		if err := fn(line, row); err != nil {
			return n, err
		}
	}
}
