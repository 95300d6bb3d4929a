// Package records holds the row model shared by the parse, transform and
// write stages.
package records

// Row maps an output column key to its decoded field text. A key that is
// absent is written as an empty field.
type Row map[string]string

// Column pairs a unique output key with the source column name it came from.
type Column struct {
	Key  string
	Name string
}

// HeaderMap is the ordered, collision-free column mapping built once per run
// from the source header row. It is immutable after construction.
type HeaderMap struct {
	cols  []Column
	index map[string]int
}

// NewHeaderMap builds a HeaderMap from cols in order. It panics on a
// repeated key; callers are expected to have made keys unique.
func NewHeaderMap(cols []Column) *HeaderMap {
	h := &HeaderMap{
		cols:  make([]Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	copy(h.cols, cols)
	for i, c := range h.cols {
		if _, dup := h.index[c.Key]; dup {
			panic("records: duplicate header key " + c.Key)
		}
		h.index[c.Key] = i
	}
	return h
}

// Len returns the number of columns.
func (h *HeaderMap) Len() int { return len(h.cols) }

// Keys returns the output keys in source column order.
func (h *HeaderMap) Keys() []string {
	keys := make([]string, len(h.cols))
	for i, c := range h.cols {
		keys[i] = c.Key
	}
	return keys
}

// Columns returns a copy of the key/name pairs in source column order.
func (h *HeaderMap) Columns() []Column {
	out := make([]Column, len(h.cols))
	copy(out, h.cols)
	return out
}

// Has reports whether key is one of the output keys.
func (h *HeaderMap) Has(key string) bool {
	_, ok := h.index[key]
	return ok
}

// Name returns the source column name for key.
func (h *HeaderMap) Name(key string) (string, bool) {
	i, ok := h.index[key]
	if !ok {
		return "", false
	}
	return h.cols[i].Name, true
}

// Values returns row's fields in column order; absent keys yield "".
func (h *HeaderMap) Values(row Row) []string {
	out := make([]string, len(h.cols))
	for i, c := range h.cols {
		out[i] = row[c.Key]
	}
	return out
}
