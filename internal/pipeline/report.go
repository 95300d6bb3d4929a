package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"csvsplit/internal/writer"
)

// Report summarizes one run. RowsWritten and Tables are the row and table
// counts the run actually produced.
type Report struct {
	Job            string `json:"job" yaml:"job"`
	Input          string `json:"input" yaml:"input"`
	Output         string `json:"output" yaml:"output"`
	SourceEncoding string `json:"source_encoding" yaml:"source_encoding"`
	OutputEncoding string `json:"output_encoding" yaml:"output_encoding"`
	Mode           string `json:"mode" yaml:"mode"`
	Limit          int    `json:"limit" yaml:"limit"`
	Columns        int    `json:"columns" yaml:"columns"`

	RowsRead    int `json:"rows_read" yaml:"rows_read"`
	RowsWritten int `json:"rows_written" yaml:"rows_written"`
	// Tables counts table starts; always zero in simple mode.
	Tables int                `json:"tables" yaml:"tables"`
	Chunks []writer.ChunkInfo `json:"chunks" yaml:"chunks"`

	DateParseFailures int           `json:"date_parse_failures" yaml:"date_parse_failures"`
	DateParseSamples  []DateFailure `json:"date_parse_samples,omitempty" yaml:"date_parse_samples,omitempty"`

	ElapsedSeconds float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Duration       time.Duration `json:"-" yaml:"-"`
}

// DateFailure is an order date the rule chain could not parse.
type DateFailure struct {
	Line  int    `json:"line" yaml:"line"`
	Value string `json:"value" yaml:"value"`
}

func (r *Report) addDateFailure(line int, value string) {
	r.DateParseFailures++
	if len(r.DateParseSamples) < maxDateSamples {
		r.DateParseSamples = append(r.DateParseSamples, DateFailure{Line: line, Value: value})
	}
}

// Marshal renders r as YAML for ".yaml"/".yml" paths and as indented JSON
// otherwise.
func (r *Report) Marshal(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(r)
	default:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
}

// WriteFile writes r to path in the format Marshal picks.
func (r *Report) WriteFile(path string) error {
	b, err := r.Marshal(path)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
