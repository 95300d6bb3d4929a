package csv

import (
	"fmt"

	"csvsplit/pkg/records"
)

// DedupKey returns the output key for the index-th occurrence of a repeated
// column name. The suffix is a bracketed decimal index, the exact shape the
// writer's MarkerStrip removes from chunk headers.
func DedupKey(name string, index int) string {
	return fmt.Sprintf("%s[%d]", name, index)
}

// ResolveHeaders builds the HeaderMap for a source header row.
//
// Names that occur once keep key == name. A name that occurs N > 1 times
// yields keys name[0]..name[N-1] in column order, each mapping back to name.
// An index whose key would collide with another column's key (e.g. a
// literal "A[0]" column next to two "A" columns) is skipped, so keys are
// always pairwise unique. An empty row yields an empty map.
func ResolveHeaders(row []string) *records.HeaderMap {
	counts := make(map[string]int, len(row))
	for _, name := range row {
		counts[name]++
	}

	used := make(map[string]bool, len(row))
	for _, name := range row {
		if counts[name] == 1 {
			used[name] = true
		}
	}

	next := make(map[string]int)
	cols := make([]records.Column, 0, len(row))
	for _, name := range row {
		if counts[name] == 1 {
			cols = append(cols, records.Column{Key: name, Name: name})
			continue
		}
		i := next[name]
		key := DedupKey(name, i)
		for used[key] {
			i++
			key = DedupKey(name, i)
		}
		next[name] = i + 1
		used[key] = true
		cols = append(cols, records.Column{Key: key, Name: name})
	}
	return records.NewHeaderMap(cols)
}
