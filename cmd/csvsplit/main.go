// Command csvsplit re-encodes a delimited text file and splits it into
// numbered chunk files.
//
//	csvsplit [flags] <inputPath> <outputPath>
//
// outputPath must end in ".csv"; chunk N is written to outputPath with "_N"
// inserted before the suffix. Settings layer as flags over CSVSPLIT_* env
// vars over an optional --config file over built-in defaults.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"csvsplit/internal/config"
	"csvsplit/internal/datasource/file"
	"csvsplit/internal/logging"
	"csvsplit/internal/pipeline"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// exitError carries a process exit code out of cobra's RunE. A nil err means
// the message was already printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// flagKeys maps flags that override a config key onto that key.
var flagKeys = map[string]string{
	"job":             "job",
	"source-encoding": "source.encoding",
	"strict":          "source.strict",
	"output-encoding": "output.encoding",
	"quote-all":       "output.quote_all",
	"limit":           "chunking.limit",
	"report":          "runtime.report_path",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics-backend": "metrics.backend",
	"pushgateway-url": "metrics.pushgateway_url",
	"statsd-addr":     "metrics.statsd_addr",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "csvsplit: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "csvsplit: %v\n", err)
	return exitFail
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "csvsplit [flags] <inputPath> <outputPath>",
		Short: "Re-encode a CSV file and split it into numbered chunks",
		Long: `csvsplit reads a CSV file in a legacy encoding (Shift_JIS by default),
de-duplicates repeated header names, pads store IDs and clears July invoices,
then writes the rows into outputPath_1.csv, outputPath_2.csv, ...

When the header has the table marker column, chunks rotate only in front of a
table start row, so a table never spans two files.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintln(stderr, c.UsageString())
		return &exitError{code: exitUsage, err: err}
	})

	f := cmd.Flags()
	f.String("config", "", "optional config file (yaml or json)")
	f.String("job", d.Job, "job name used to label metrics and logs")
	f.String("source-encoding", d.Source.Encoding, `source encoding label, or "auto" to detect`)
	f.Bool("strict", d.Source.Strict, "fail on bytes that are invalid in the source encoding")
	f.String("output-encoding", d.Output.Encoding, "encoding of the chunk files")
	f.Bool("quote-all", d.Output.QuoteAll, "quote every output field")
	f.Int("limit", d.Chunking.Limit, "rows (or tables, in table mode) per chunk")
	f.String("report", "", "write a run report to this path (.yaml/.yml for YAML, JSON otherwise)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")
	f.String("metrics-backend", "none", "metrics backend: none, pushgateway or datadog")
	f.String("pushgateway-url", "http://localhost:9091", "Pushgateway base URL")
	f.String("statsd-addr", "127.0.0.1:8125", "DogStatsD address")
	f.Bool("soft-arg-errors", false, "exit 0 after reporting argument errors")
	f.Bool("validate", false, "validate the configuration and exit")
	return cmd
}

func runConvert(cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	flags := cmd.Flags()
	soft, _ := flags.GetBool("soft-arg-errors")

	in, out, err := checkArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "csvsplit: %v\n", err)
		fmt.Fprintf(stderr, "usage: %s\n", cmd.UseLine())
		if soft {
			return nil
		}
		return &exitError{code: exitFail}
	}

	cfgFile, _ := flags.GetString("config")
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return &exitError{code: exitFail, err: err}
	}
	if err := bindFlags(v, flags); err != nil {
		return &exitError{code: exitFail, err: err}
	}
	v.Set("source.path", in)
	v.Set("output.path", out)

	log := logging.Setup(v.GetString("log.level"), v.GetString("log.format"), stderr)

	p, err := config.Load(v)
	if err != nil {
		return &exitError{code: exitFail, err: err}
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return &exitError{code: exitFail, err: errors.New("configuration is invalid")}
	}
	if validate, _ := flags.GetBool("validate"); validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return nil
	}

	flush := setupMetrics(v, p.Job, log)
	defer flush()

	log.Info("run started",
		"job", p.Job,
		"input", p.Source.Path,
		"output", p.Output.Path,
		"limit", p.Chunking.Limit,
	)

	ctx := logging.WithLogger(cmd.Context(), log)
	rep, err := pipeline.Run(ctx, p, pipeline.Options{})
	if path := p.Runtime.ReportPath; path != "" && rep != nil {
		if werr := rep.WriteFile(path); werr != nil {
			log.Error("report not written", "path", path, "err", werr)
		}
	}
	if err != nil {
		return &exitError{code: exitFail, err: err}
	}

	for _, c := range rep.Chunks {
		fmt.Fprintln(stdout, c.Path)
	}
	return nil
}

// checkArgs validates the two positional paths. The input must exist as a
// regular file.
func checkArgs(args []string) (in, out string, err error) {
	if len(args) < 1 || args[0] == "" {
		return "", "", errors.New("input path is required")
	}
	if !file.Exists(args[0]) {
		return "", "", fmt.Errorf("input file does not exist: %s", args[0])
	}
	if len(args) < 2 || args[1] == "" {
		return "", "", errors.New("output path is required")
	}
	if len(args) > 2 {
		return "", "", fmt.Errorf("unexpected arguments: %v", args[2:])
	}
	return args[0], args[1], nil
}

// bindFlags overlays flags onto v. Unchanged flags only supply defaults, so
// env vars and the config file still win over them.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		fl := fs.Lookup(name)
		if fl == nil {
			return fmt.Errorf("flag --%s is not defined", name)
		}
		if err := v.BindPFlag(key, fl); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}
