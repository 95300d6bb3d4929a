// Package config defines the configuration model for a csvsplit run. A run is
// fully described by a Pipeline value: where the source lives and how it is
// encoded, where chunks are written, how rows are chunked, and which business
// fields the row rules touch.
//
// Every field has a default (see Default) that reproduces the fixed behavior
// of the legacy converter, so a run needs nothing beyond the two paths.
//
// Example (trimmed, YAML):
//
//	job: store-orders
//	source:   { path: in.csv, encoding: Shift_JIS }
//	output:   { path: out.csv, encoding: Shift_JIS, quote_all: true }
//	chunking: { limit: 10000, table_marker: レコードの開始行, table_start: "*" }
package config

import "encoding/json"

// Reference constants of the legacy converter.
const (
	DefaultJob            = "csvsplit"
	DefaultEncoding       = "Shift_JIS"
	DefaultLimit          = 10000
	DefaultTableMarker    = "レコードの開始行"
	DefaultTableStart     = "*"
	DefaultStoreIDField   = "店舗ID"
	DefaultStoreIDWidth   = 4
	DefaultOrderDateField = "本部発注日"
	DefaultInvoiceField   = "請求書"
	DefaultClearMonth     = 7
)

// Pipeline describes a full conversion run.
type Pipeline struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job" yaml:"job" mapstructure:"job"`

	Source   Source        `json:"source" yaml:"source" mapstructure:"source"`
	Output   Output        `json:"output" yaml:"output" mapstructure:"output"`
	Parser   Parser        `json:"parser" yaml:"parser" mapstructure:"parser"`
	Chunking Chunking      `json:"chunking" yaml:"chunking" mapstructure:"chunking"`
	Rules    Rules         `json:"rules" yaml:"rules" mapstructure:"rules"`
	Runtime  RuntimeConfig `json:"runtime" yaml:"runtime" mapstructure:"runtime"`
}

// Source identifies the input file.
type Source struct {
	// Path is the local filesystem path to the input CSV.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Encoding is a WHATWG/IANA label (e.g. "Shift_JIS", "EUC-JP", "UTF-8")
	// or "auto" to sniff the encoding from the head of the file.
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`

	// Strict makes undecodable source bytes a fatal error instead of
	// silently decoding them to U+FFFD. A literal U+FFFD is only accepted
	// from UTF-8 sources; in UTF-16 it cannot be told apart from a decode
	// failure and is rejected.
	Strict bool `json:"strict" yaml:"strict" mapstructure:"strict"`
}

// Output identifies the chunk files. Path must end in ".csv"; chunk N is
// written to Path with "_N" inserted before the suffix.
type Output struct {
	Path     string `json:"path" yaml:"path" mapstructure:"path"`
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`

	// QuoteAll quotes every field, headers included.
	QuoteAll bool `json:"quote_all" yaml:"quote_all" mapstructure:"quote_all"`
}

// Parser carries reader options. Recognized keys:
//
//	comma (string), lazy_quotes (bool)
type Parser struct {
	Options Options `json:"options" yaml:"options" mapstructure:"options"`
}

// Chunking controls chunk rotation.
type Chunking struct {
	// Limit is the number of rows (simple mode) or tables (table mode) per chunk.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// TableMarker names the column whose presence switches the run into
	// table mode.
	TableMarker string `json:"table_marker" yaml:"table_marker" mapstructure:"table_marker"`

	// TableStart is the marker value that opens a new logical table.
	TableStart string `json:"table_start" yaml:"table_start" mapstructure:"table_start"`
}

// Rules names the business fields touched by the row transformer.
type Rules struct {
	StoreID      string `json:"store_id" yaml:"store_id" mapstructure:"store_id"`
	StoreIDWidth int    `json:"store_id_width" yaml:"store_id_width" mapstructure:"store_id_width"`
	OrderDate    string `json:"order_date" yaml:"order_date" mapstructure:"order_date"`
	Invoice      string `json:"invoice" yaml:"invoice" mapstructure:"invoice"`

	// ClearMonth is the calendar month (1-12) of OrderDate that clears Invoice.
	ClearMonth int `json:"clear_month" yaml:"clear_month" mapstructure:"clear_month"`
}

// RuntimeConfig holds knobs that do not change the produced chunks.
type RuntimeConfig struct {
	// ReportPath, when set, receives the run report (YAML for .yaml/.yml,
	// JSON otherwise).
	ReportPath string `json:"report_path" yaml:"report_path" mapstructure:"report_path"`
}

// Default returns the reference configuration with empty paths.
func Default() Pipeline {
	return Pipeline{
		Job:    DefaultJob,
		Source: Source{Encoding: DefaultEncoding, Strict: true},
		Output: Output{Encoding: DefaultEncoding, QuoteAll: true},
		Parser: Parser{Options: Options{"comma": ","}},
		Chunking: Chunking{
			Limit:       DefaultLimit,
			TableMarker: DefaultTableMarker,
			TableStart:  DefaultTableStart,
		},
		Rules: Rules{
			StoreID:      DefaultStoreIDField,
			StoreIDWidth: DefaultStoreIDWidth,
			OrderDate:    DefaultOrderDateField,
			Invoice:      DefaultInvoiceField,
			ClearMonth:   DefaultClearMonth,
		},
	}
}

// Options is a small helper to fetch typed values from a free-form map. It
// performs only minimal coercion and returns the provided default when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def. Env and flag layers deliver
// booleans as strings, so "true"/"false" are accepted too.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			switch b {
			case "true":
				return true
			case "false":
				return false
			}
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
