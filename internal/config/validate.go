package config

import (
	"fmt"
	"strings"

	"csvsplit/internal/textenc"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "output.path",
// "chunking.limit"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// touch the filesystem; existence of the source is checked by the caller.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be labeled with an empty job",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateChunking(p.Chunking)...)
	issues = append(issues, validateRules(p.Rules)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Path) == "" {
		issues = append(issues, Issue{SeverityError, "source.path", "source path is required"})
	}
	if !textenc.IsAuto(s.Encoding) {
		if _, err := textenc.Lookup(s.Encoding); err != nil {
			issues = append(issues, Issue{SeverityError, "source.encoding", err.Error()})
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	switch {
	case strings.TrimSpace(o.Path) == "":
		issues = append(issues, Issue{SeverityError, "output.path", "output path is required"})
	case !strings.HasSuffix(o.Path, ".csv"):
		issues = append(issues, Issue{SeverityError, "output.path", fmt.Sprintf("output path %q must end in .csv", o.Path)})
	}
	if _, err := textenc.Lookup(o.Encoding); err != nil {
		issues = append(issues, Issue{SeverityError, "output.encoding", err.Error()})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	switch c := p.Options.Rune("comma", ','); c {
	case '"', '\r', '\n', 0xFFFD:
		return []Issue{{SeverityError, "parser.options.comma", fmt.Sprintf("invalid delimiter %q", c)}}
	}
	return nil
}

func validateChunking(c Chunking) []Issue {
	var issues []Issue
	if c.Limit <= 0 {
		issues = append(issues, Issue{SeverityError, "chunking.limit", fmt.Sprintf("limit must be > 0, got %d", c.Limit)})
	}
	if c.TableMarker != "" && c.TableStart == "" {
		issues = append(issues, Issue{SeverityError, "chunking.table_start", "table_start is required when table_marker is set"})
	}
	return issues
}

func validateRules(r Rules) []Issue {
	var issues []Issue
	if r.StoreIDWidth < 0 {
		issues = append(issues, Issue{SeverityError, "rules.store_id_width", "width must not be negative"})
	}
	if r.OrderDate != "" && (r.ClearMonth < 1 || r.ClearMonth > 12) {
		issues = append(issues, Issue{SeverityError, "rules.clear_month", fmt.Sprintf("month must be 1-12, got %d", r.ClearMonth)})
	}
	if r.OrderDate != "" && r.Invoice == "" {
		issues = append(issues, Issue{SeverityWarning, "rules.invoice", "order_date is set but invoice is empty; the month rule is a no-op"})
	}
	return issues
}
