// Package dates parses the free-form date strings found in source rows.
//
// Parse tries a fixed list of layouts in order and returns the first match;
// it does not guess between day-first and month-first forms, so the order
// below is the whole convention: year-first forms, then US month-first
// slashed forms, then RFC 3339 timestamps.
package dates

import (
	"errors"
	"strings"
	"time"
)

// ErrUnparsable is returned when no layout matches.
var ErrUnparsable = errors.New("dates: unparsable date")

// layouts are tried in order. Single-digit month/day verbs accept both
// padded and unpadded values ("2019/7/5" and "2019/07/05").
var layouts = []string{
	// year-first dates
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"20060102",
	// year-first timestamps
	"2006-1-2 15:04",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
	"2006-1-2 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	// month-first
	"1/2/2006",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Parse returns the calendar date in s, interpreted in UTC when s carries no
// zone.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparsable
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparsable
}
