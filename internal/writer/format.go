package writer

import (
	"bytes"
	"encoding/csv"
	"io"
)

// Formatter renders records as CSV lines terminated by '\n'.
//
// With quoteAll every field is wrapped in double quotes (embedded quotes
// doubled), which encoding/csv cannot be told to do; otherwise fields are
// quoted only when needed, via encoding/csv.
type Formatter struct {
	quoteAll bool
	w        io.Writer
	line     bytes.Buffer
	cw       *csv.Writer
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer, quoteAll bool) *Formatter {
	f := &Formatter{quoteAll: quoteAll, w: w}
	if !quoteAll {
		f.cw = csv.NewWriter(w)
	}
	return f
}

// WriteRecord writes one record.
func (f *Formatter) WriteRecord(fields []string) error {
	if f.cw != nil {
		return f.cw.Write(fields)
	}
	f.line.Reset()
	for i, v := range fields {
		if i > 0 {
			f.line.WriteByte(',')
		}
		f.line.WriteByte('"')
		for j := 0; j < len(v); j++ {
			if v[j] == '"' {
				f.line.WriteByte('"')
			}
			f.line.WriteByte(v[j])
		}
		f.line.WriteByte('"')
	}
	f.line.WriteByte('\n')
	_, err := f.w.Write(f.line.Bytes())
	return err
}

// Flush pushes any buffered output to the underlying writer.
func (f *Formatter) Flush() error {
	if f.cw != nil {
		f.cw.Flush()
		return f.cw.Error()
	}
	return nil
}
