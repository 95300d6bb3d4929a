package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// CSVSPLIT_CHUNKING_LIMIT=500.
const EnvPrefix = "CSVSPLIT"

// SetDefaults registers Default() on v so that env overrides are visible to
// Unmarshal and unset keys fall back to the reference values.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("job", d.Job)
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("source.encoding", d.Source.Encoding)
	v.SetDefault("source.strict", d.Source.Strict)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.encoding", d.Output.Encoding)
	v.SetDefault("output.quote_all", d.Output.QuoteAll)
	v.SetDefault("parser.options", map[string]any(d.Parser.Options))
	v.SetDefault("chunking.limit", d.Chunking.Limit)
	v.SetDefault("chunking.table_marker", d.Chunking.TableMarker)
	v.SetDefault("chunking.table_start", d.Chunking.TableStart)
	v.SetDefault("rules.store_id", d.Rules.StoreID)
	v.SetDefault("rules.store_id_width", d.Rules.StoreIDWidth)
	v.SetDefault("rules.order_date", d.Rules.OrderDate)
	v.SetDefault("rules.invoice", d.Rules.Invoice)
	v.SetDefault("rules.clear_month", d.Rules.ClearMonth)
	v.SetDefault("runtime.report_path", d.Runtime.ReportPath)
}

// NewViper returns a viper instance with defaults and env overrides wired.
// When cfgFile is non-empty it is read (yaml or json by extension).
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

// Load decodes the layered settings held by v into a Pipeline.
func Load(v *viper.Viper) (Pipeline, error) {
	p := Default()
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("config load: %w", err)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}
