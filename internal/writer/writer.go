// Package writer renders row store views as files.
//
// Every format streams rows through Source.Each, so nothing larger than one
// batch is held in memory. A view with no rows still produces a valid file
// carrying the column names (or schema).
package writer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rowkit/internal/errs"
	"rowkit/internal/format"
	"rowkit/internal/metrics"
	"rowkit/internal/rowstore"
)

// Source is the part of *rowstore.Store a writer reads from.
type Source interface {
	Columns() []rowstore.Column
	Each(ctx context.Context, v rowstore.View, fn func(row []any) error) (int64, error)
}

// Writer writes views in one format.
type Writer struct {
	src    Source
	logger log.Logger
	job    string
}

// New returns a Writer reading from src. job labels metrics.
func New(src Source, logger log.Logger, job string) *Writer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Writer{src: src, logger: logger, job: job}
}

// Write encodes v to w as ft and returns the number of rows written.
func (wr *Writer) Write(ctx context.Context, v rowstore.View, w io.Writer, ft format.Format) (int64, error) {
	cols := wr.src.Columns()
	switch ft {
	case format.CSV:
		return writeCSV(ctx, wr.src, v, cols, w)
	case format.JSON:
		return writeJSON(ctx, wr.src, v, cols, w, false)
	case format.NDJSON:
		return writeJSON(ctx, wr.src, v, cols, w, true)
	case format.Parquet:
		return writeParquet(ctx, wr.src, v, cols, w)
	case format.XLSX:
		return writeXLSX(ctx, wr.src, v, cols, w)
	}
	return 0, errs.UnsupportedFormat(string(ft))
}

// WriteFile writes v to path, creating parent directories. The file is
// removed again when writing fails.
func (wr *Writer) WriteFile(ctx context.Context, v rowstore.View, path string, ft format.Format) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(wr.job, "write", err, time.Since(start)) }()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("writer: create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("writer: create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<16)
	n, err = wr.Write(ctx, v, bw, ft)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, fmt.Errorf("writer: %s: %w", path, err)
	}
	metrics.RecordRow(wr.job, "written", n)
	level.Info(wr.logger).Log("msg", "wrote output", "path", path, "format", ft, "rows", humanize.Comma(n),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return n, nil
}

// text renders a normalized cell for text formats. NULL is the empty string.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
