package builtin

import (
	"time"

	"csvsplit/pkg/records"
)

// ClearOnMonth empties TargetField when DateField holds a date in Month.
//
// A DateField that fails to parse leaves the row untouched; the failure is
// reported to OnError (when set) and never stops the run.
type ClearOnMonth struct {
	DateField   string
	TargetField string
	Month       time.Month
	Parse       func(string) (time.Time, error)
	OnError     func(value string, err error)
}

func (c ClearOnMonth) Apply(r records.Row) records.Row {
	v, ok := r[c.DateField]
	if !ok || v == "" {
		return r
	}
	d, err := c.Parse(v)
	if err != nil {
		if c.OnError != nil {
			c.OnError(v, err)
		}
		return r
	}
	if d.Month() == c.Month {
		r[c.TargetField] = ""
	}
	return r
}
