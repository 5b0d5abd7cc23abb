// Package xlsx reads one worksheet of an Excel workbook into a parser.Table.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"rowkit/internal/config"
	"rowkit/internal/parser"
)

// Open loads the workbook from r and returns a Table over one sheet. The
// first row is the header. Cells are read as displayed text; empty cells are
// NULL.
//
// Options: sheet (string; default the first sheet).
func Open(r io.Reader, opt config.Options) (parser.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return parser.Table{}, fmt.Errorf("xlsx: open: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return parser.Table{}, fmt.Errorf("xlsx: workbook has no sheets")
	}
	sheet := opt.String("sheet", sheets[0])

	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return parser.Table{}, fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
	}
	if !rows.Next() {
		_ = rows.Close()
		_ = f.Close()
		return parser.Table{}, fmt.Errorf("xlsx: sheet %q is empty", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return parser.Table{}, fmt.Errorf("xlsx: read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	stream := func(ctx context.Context, out chan<- []any) error {
		defer f.Close()
		defer rows.Close()

		for rows.Next() {
			cells, err := rows.Columns()
			if err != nil {
				return fmt.Errorf("xlsx: read row: %w", err)
			}
			row := make([]any, len(columns))
			empty := true
			for i := range columns {
				if i < len(cells) {
					if v := strings.TrimSpace(cells[i]); v != "" {
						row[i] = v
						empty = false
					}
				}
			}
			if empty {
				continue
			}
			if err := parser.Send(ctx, out, row); err != nil {
				return err
			}
		}
		return rows.Error()
	}
	return parser.Table{Columns: columns, Stream: stream}, nil
}
