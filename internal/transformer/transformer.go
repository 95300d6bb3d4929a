// Package transformer applies field-level business rules to one row at a
// time. Rules mutate the row in place and perform no I/O.
package transformer

import (
	"time"

	"csvsplit/internal/config"
	"csvsplit/internal/dates"
	"csvsplit/internal/transformer/builtin"
	"csvsplit/pkg/records"
)

type Transformer interface{ Apply(records.Row) records.Row }

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in records.Row) records.Row {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// FromRules builds the rule chain for a run: store-id padding, then the
// order-date month rule. Empty field names disable a rule. onDateError, if
// non-nil, is told about every order date that failed to parse.
func FromRules(r config.Rules, onDateError func(value string, err error)) Chain {
	var c Chain
	if r.StoreID != "" && r.StoreIDWidth > 0 {
		c = append(c, builtin.PadLeft{Field: r.StoreID, Width: r.StoreIDWidth, Pad: '0'})
	}
	if r.OrderDate != "" && r.Invoice != "" {
		c = append(c, builtin.ClearOnMonth{
			DateField:   r.OrderDate,
			TargetField: r.Invoice,
			Month:       time.Month(r.ClearMonth),
			Parse:       dates.Parse,
			OnError:     onDateError,
		})
	}
	return c
}
