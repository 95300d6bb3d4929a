package builtin

import (
	"strings"
	"unicode/utf8"

	"csvsplit/pkg/records"
)

// PadLeft left-pads a non-empty Field with Pad up to Width characters.
// Values already Width characters or longer are left alone; this is string
// padding, so "99999" stays "99999" for Width 4.
type PadLeft struct {
	Field string
	Width int
	Pad   rune
}

func (p PadLeft) Apply(r records.Row) records.Row {
	v, ok := r[p.Field]
	if !ok || v == "" {
		return r
	}
	if n := utf8.RuneCountInString(v); n < p.Width {
		r[p.Field] = strings.Repeat(string(p.Pad), p.Width-n) + v
	}
	return r
}
