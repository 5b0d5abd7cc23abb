// Package csv reads delimited text into a parser.Table.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"rowkit/internal/config"
	"rowkit/internal/parser"
)

// Open reads the header from r and returns a Table streaming the remaining
// records.
//
// Options (all optional):
//   - comma (string; first rune used; default ',')
//   - has_header (bool; default true). Without a header, columns are named
//     column_1..column_N after the width of the first record.
//   - trim_space (bool; default true)
//   - lazy_quotes (bool; default false)
//
// Records wider or narrower than the header are truncated or padded with
// NULLs. Empty cells are NULL.
func Open(r io.Reader, opt config.Options) (parser.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	trim := opt.Bool("trim_space", true)

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return parser.Table{}, fmt.Errorf("csv: empty input")
	}
	if err != nil {
		return parser.Table{}, fmt.Errorf("csv: read header: %w", err)
	}
	first = append([]string(nil), first...)
	first = StripHeaderBOM(first)

	var (
		columns []string
		pending []string
	)
	if opt.Bool("has_header", true) {
		columns = make([]string, len(first))
		for i, h := range first {
			columns[i] = strings.TrimSpace(h)
		}
	} else {
		columns = make([]string, len(first))
		for i := range first {
			columns[i] = fmt.Sprintf("column_%d", i+1)
		}
		pending = first
	}

	toRow := func(rec []string) []any {
		row := make([]any, len(columns))
		for i := range columns {
			if i >= len(rec) {
				continue
			}
			v := rec[i]
			if trim {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row[i] = v
			}
		}
		return row
	}

	stream := func(ctx context.Context, out chan<- []any) error {
		if pending != nil {
			if err := parser.Send(ctx, out, toRow(pending)); err != nil {
				return err
			}
		}
		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("csv: %w", err)
			}
			if err := parser.Send(ctx, out, toRow(rec)); err != nil {
				return err
			}
		}
	}
	return parser.Table{Columns: columns, Stream: stream}, nil
}
