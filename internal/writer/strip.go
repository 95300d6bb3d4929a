package writer

import (
	"bytes"
	"io"
	"regexp"
)

// markerPattern matches the bracketed index suffixes added to repeated
// column names, e.g. "[0]" in "name[0]".
var markerPattern = regexp.MustCompile(`\[\d+\]`)

// MarkerStrip is a pass-through writer that removes every markerPattern
// match from the first line written through it and forwards all later bytes
// untouched. It buffers only until the first '\n'. One MarkerStrip serves
// one chunk.
type MarkerStrip struct {
	w       io.Writer
	pending []byte
	done    bool
}

// NewMarkerStrip returns a MarkerStrip writing to w.
func NewMarkerStrip(w io.Writer) *MarkerStrip {
	return &MarkerStrip{w: w}
}

func (m *MarkerStrip) Write(p []byte) (int, error) {
	if m.done {
		return m.w.Write(p)
	}
	i := bytes.IndexByte(p, '\n')
	if i < 0 {
		m.pending = append(m.pending, p...)
		return len(p), nil
	}
	m.pending = append(m.pending, p[:i+1]...)
	if err := m.emitFirstLine(); err != nil {
		return 0, err
	}
	if rest := p[i+1:]; len(rest) > 0 {
		n, err := m.w.Write(rest)
		return i + 1 + n, err
	}
	return len(p), nil
}

// Flush emits a first line that was never terminated by '\n'.
func (m *MarkerStrip) Flush() error {
	if m.done {
		return nil
	}
	return m.emitFirstLine()
}

func (m *MarkerStrip) emitFirstLine() error {
	line := markerPattern.ReplaceAll(m.pending, nil)
	m.pending = nil
	m.done = true
	if len(line) == 0 {
		return nil
	}
	_, err := m.w.Write(line)
	return err
}
