// Package ingest loads an input file into a row store.
//
// Load runs a reader goroutine and a loader goroutine joined by a bounded
// channel: the reader streams parsed rows, the first rows are held back for
// type inference, and the loader copies batches into the store. A cell that
// does not fit its inferred type is stored as NULL and counted.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"rowkit/internal/config"
	"rowkit/internal/datasource"
	"rowkit/internal/errs"
	"rowkit/internal/format"
	"rowkit/internal/metrics"
	"rowkit/internal/parser"
	csvparser "rowkit/internal/parser/csv"
	jsonparser "rowkit/internal/parser/json"
	parquetparser "rowkit/internal/parser/parquet"
	xlsxparser "rowkit/internal/parser/xlsx"
	"rowkit/internal/rowstore"
)

// Registrar is the part of *rowstore.Store used for loading.
type Registrar interface {
	Register(ctx context.Context, cols []rowstore.Column, in <-chan []any, batchSize int) (rowstore.View, int64, error)
}

// Options tunes a load.
type Options struct {
	BatchSize     int
	ChannelBuffer int
	// SampleRows is how many leading rows feed type inference.
	SampleRows int
	// Reader is passed to the format reader (comma, sheet, ...).
	Reader config.Options
	Logger log.Logger
	Job    string
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5_000
	}
	if o.ChannelBuffer <= 0 {
		o.ChannelBuffer = 1_000
	}
	if o.SampleRows <= 0 {
		o.SampleRows = 1_000
	}
	if o.Reader == nil {
		o.Reader = config.Options{}
	}
	if o.Logger == nil {
		o.Logger = log.NewNopLogger()
	}
	return o
}

// Result describes a completed load.
type Result struct {
	View    rowstore.View
	Columns []rowstore.Column
	Rows    int64
	// Nulled counts cells that did not fit their column type.
	Nulled int64
}

// Open parses f as the given format.
func Open(f datasource.File, ft format.Format, opt config.Options) (parser.Table, error) {
	switch ft {
	case format.CSV:
		return csvparser.Open(f, opt)
	case format.JSON, format.NDJSON:
		return jsonparser.Open(f, opt)
	case format.Parquet:
		return parquetparser.Open(f, opt)
	case format.XLSX:
		return xlsxparser.Open(f, opt)
	}
	return parser.Table{}, errs.UnsupportedFormat(string(ft))
}

// Load parses f and registers its rows with store.
func Load(ctx context.Context, store Registrar, f datasource.File, ft format.Format, opt Options) (Result, error) {
	opt = opt.withDefaults()
	start := time.Now()

	tbl, err := Open(f, ft, opt.Reader)
	if err != nil {
		metrics.RecordStep(opt.Job, "load", err, time.Since(start))
		return Result{}, err
	}
	res, err := LoadTable(ctx, store, tbl, opt)
	metrics.RecordStep(opt.Job, "load", err, time.Since(start))
	if err != nil {
		return Result{}, err
	}
	level.Info(opt.Logger).Log("msg", "loaded input", "format", ft, "rows", humanize.Comma(res.Rows),
		"columns", len(res.Columns), "nulled", res.Nulled, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// LoadTable registers an already opened table with store.
func LoadTable(ctx context.Context, store Registrar, tbl parser.Table, opt Options) (Result, error) {
	opt = opt.withDefaults()
	names := UniqueNames(tbl.Columns)

	g, gctx := errgroup.WithContext(ctx)
	raw := make(chan []any, opt.ChannelBuffer)
	g.Go(func() error {
		defer close(raw)
		return tbl.Stream(gctx, raw)
	})

	// Hold back the leading rows for inference.
	var sample [][]any
	for len(sample) < opt.SampleRows {
		row, ok := <-raw
		if !ok {
			break
		}
		sample = append(sample, row)
	}

	types := tbl.Types
	if len(types) != len(names) {
		types = InferTypes(len(names), sample)
	}
	cols := make([]rowstore.Column, len(names))
	for i, n := range names {
		cols[i] = rowstore.Column{Name: n, Type: types[i]}
		level.Debug(opt.Logger).Log("msg", "column", "name", n, "type", types[i])
	}

	var nulled int64
	typed := make(chan []any, opt.ChannelBuffer)
	g.Go(func() error {
		defer close(typed)
		send := func(row []any) error {
			nulled += coerceRow(row, cols)
			return parser.Send(gctx, typed, row)
		}
		for _, row := range sample {
			if err := send(row); err != nil {
				return err
			}
		}
		for row := range raw {
			if err := send(row); err != nil {
				return err
			}
		}
		return nil
	})

	var (
		view rowstore.View
		rows int64
	)
	g.Go(func() error {
		var err error
		view, rows, err = store.Register(gctx, cols, typed, opt.BatchSize)
		return err
	})

	if err := g.Wait(); err != nil {
		// Unblock the reader if it is still sending.
		for range raw {
		}
		return Result{}, fmt.Errorf("ingest: %w", err)
	}
	metrics.RecordRow(opt.Job, "loaded", rows)
	if nulled > 0 {
		metrics.RecordRow(opt.Job, "coerce_null", nulled)
		level.Warn(opt.Logger).Log("msg", "cells did not match their column type and were loaded as NULL", "cells", nulled)
	}
	return Result{View: view, Columns: cols, Rows: rows, Nulled: nulled}, nil
}

// coerceRow converts row in place to the column types and returns how many
// cells became NULL.
func coerceRow(row []any, cols []rowstore.Column) int64 {
	var nulled int64
	for i := range cols {
		if i >= len(row) || row[i] == nil {
			continue
		}
		v, err := rowstore.Normalize(row[i], cols[i].Type)
		if err != nil {
			v = nil
			nulled++
		}
		row[i] = v
	}
	return nulled
}

// UniqueNames fills empty header cells with column_N and suffixes
// duplicates (compared case-insensitively) with _2, _3 and so on. Names
// starting with the store's reserved prefix are prefixed with "c".
func UniqueNames(in []string) []string {
	fold := cases.Fold()
	out := make([]string, len(in))
	seen := make(map[string]int, len(in))
	for i, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		if strings.HasPrefix(strings.ToLower(n), "__rk_") {
			n = "c" + n
		}
		base := n
		for k := 2; ; k++ {
			key := fold.String(n)
			if seen[key] == 0 {
				seen[key] = 1
				break
			}
			n = fmt.Sprintf("%s_%d", base, k)
		}
		out[i] = n
	}
	return out
}
