// Package pipeline drives one conversion run end to end.
//
// A run makes two passes over the source. The header scan decodes the file
// and reads only its first record to resolve column keys and pick the
// chunking mode. The convert pass reopens the source, streams every data
// row through the rule chain and hands it to the ChunkWriter. Nothing is
// buffered beyond the row in flight and the open chunk's write buffers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/text/encoding"

	"csvsplit/internal/config"
	"csvsplit/internal/datasource"
	"csvsplit/internal/datasource/file"
	"csvsplit/internal/logging"
	"csvsplit/internal/metrics"
	csvparser "csvsplit/internal/parser/csv"
	"csvsplit/internal/textenc"
	"csvsplit/internal/transformer"
	"csvsplit/internal/writer"
	"csvsplit/pkg/records"
)

// maxDateSamples caps the date failures kept verbatim in the report.
const maxDateSamples = 10

// Options carries run collaborators. The zero value reads cfg.Source.Path
// from disk and logs through the logger stored in ctx by
// logging.WithLogger.
type Options struct {
	Logger *slog.Logger
	Source datasource.Source
}

// Run converts cfg.Source into chunk files next to cfg.Output.Path.
//
// The returned Report is never nil; on failure it describes the work done
// before the error, including chunks already closed.
func Run(ctx context.Context, cfg config.Pipeline, opt Options) (*Report, error) {
	log := opt.Logger
	if log == nil {
		log = logging.WithFields(ctx, "job", cfg.Job)
	}
	src := opt.Source
	if src == nil {
		src = file.NewLocal(cfg.Source.Path)
	}

	start := time.Now()
	rep := &Report{
		Job:    cfg.Job,
		Input:  cfg.Source.Path,
		Output: cfg.Output.Path,
		Limit:  cfg.Chunking.Limit,
	}
	defer func() {
		rep.Duration = time.Since(start)
		rep.ElapsedSeconds = rep.Duration.Seconds()
	}()

	popt := csvparser.OptionsFrom(cfg.Parser.Options)

	t0 := time.Now()
	hdr, srcEnc, err := scanHeader(ctx, src, cfg.Source, popt)
	metrics.RecordStep(cfg.Job, metrics.StepHeaderScan, err, time.Since(t0))
	if err != nil {
		return rep, fmt.Errorf("header scan: %w", err)
	}
	rep.SourceEncoding = textenc.Name(srcEnc)

	outEnc, err := textenc.Lookup(cfg.Output.Encoding)
	if err != nil {
		return rep, fmt.Errorf("output encoding: %w", err)
	}
	rep.OutputEncoding = textenc.Name(outEnc)

	mode := writer.ModeFor(hdr, cfg.Chunking.TableMarker)
	rep.Mode = mode.String()
	rep.Columns = hdr.Len()
	log.Info("header resolved",
		"columns", hdr.Len(),
		"duplicates", duplicateColumns(hdr),
		"mode", rep.Mode,
		"source_encoding", rep.SourceEncoding,
	)
	if hdr.Len() == 0 {
		log.Warn("source is empty; no chunks written", "input", cfg.Source.Path)
		return rep, nil
	}

	t0 = time.Now()
	err = convert(ctx, src, cfg, popt, hdr, srcEnc, outEnc, log, rep)
	metrics.RecordStep(cfg.Job, metrics.StepConvert, err, time.Since(t0))

	metrics.RecordRow(cfg.Job, metrics.KindRead, int64(rep.RowsRead))
	metrics.RecordRow(cfg.Job, metrics.KindWritten, int64(rep.RowsWritten))
	metrics.RecordRow(cfg.Job, metrics.KindDateParseFailed, int64(rep.DateParseFailures))
	metrics.RecordChunks(cfg.Job, rep.Mode, int64(len(rep.Chunks)))
	if err != nil {
		return rep, fmt.Errorf("convert: %w", err)
	}

	log.Info("run complete",
		"mode", rep.Mode,
		"rows_read", rep.RowsRead,
		"rows_written", rep.RowsWritten,
		"tables", rep.Tables,
		"chunks", len(rep.Chunks),
		"date_parse_failures", rep.DateParseFailures,
		"duration", time.Since(start),
	)
	return rep, nil
}

// scanHeader opens src, resolves the source encoding and reads the first
// record. The stream is closed before returning.
func scanHeader(ctx context.Context, src datasource.Source, sc config.Source, popt csvparser.Options) (*records.HeaderMap, encoding.Encoding, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	var (
		raw io.Reader = rc
		enc encoding.Encoding
	)
	if textenc.IsAuto(sc.Encoding) {
		br := textenc.NewSniffReader(rc)
		if enc, err = textenc.Sniff(br); err != nil {
			return nil, nil, err
		}
		raw = br
	} else if enc, err = textenc.Lookup(sc.Encoding); err != nil {
		return nil, nil, err
	}

	first, err := csvparser.ReadFirstRecord(textenc.NewDecoder(raw, enc, sc.Strict), popt)
	if err != nil {
		return nil, nil, err
	}
	return csvparser.ResolveHeaders(first), enc, nil
}

// convert is the second pass. It always closes the ChunkWriter, so a failed
// run still leaves every chunk it touched flushed and closed.
func convert(
	ctx context.Context,
	src datasource.Source,
	cfg config.Pipeline,
	popt csvparser.Options,
	hdr *records.HeaderMap,
	srcEnc, outEnc encoding.Encoding,
	log *slog.Logger,
	rep *Report,
) (err error) {
	cw, err := writer.New(hdr, writer.Options{
		BasePath:    cfg.Output.Path,
		Limit:       cfg.Chunking.Limit,
		Encoding:    outEnc,
		QuoteAll:    cfg.Output.QuoteAll,
		TableMarker: cfg.Chunking.TableMarker,
		TableStart:  cfg.Chunking.TableStart,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, cw.Close())
		rep.RowsWritten = cw.RowsWritten()
		rep.Chunks = cw.Chunks()
		if cw.Mode() == writer.ModeTable {
			rep.Tables = cw.Count()
		}
	}()

	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	var line int
	chain := transformer.FromRules(cfg.Rules, func(value string, perr error) {
		rep.addDateFailure(line, value)
		log.Debug("date parse failed", "line", line, "field", cfg.Rules.OrderDate, "value", value, "err", perr)
	})

	n, err := csvparser.StreamRows(ctx, textenc.NewDecoder(rc, srcEnc, cfg.Source.Strict), hdr, popt,
		func(ln int, row records.Row) error {
			line = ln
			return cw.WriteRow(chain.Apply(row))
		})
	rep.RowsRead = n
	return err
}

func duplicateColumns(h *records.HeaderMap) int {
	n := 0
	for _, c := range h.Columns() {
		if c.Key != c.Name {
			n++
		}
	}
	return n
}
