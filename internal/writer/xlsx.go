package writer

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"rowkit/internal/rowstore"
)

const xlsxSheet = "Sheet1"

func writeXLSX(ctx context.Context, src Source, v rowstore.View, cols []rowstore.Column, w io.Writer) (int64, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return 0, err
	}
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, err
	}

	line := 1
	n, err := src.Each(ctx, v, func(row []any) error {
		line++
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		// SetRow keeps the slice; row is reused by Each.
		return sw.SetRow(cell, append([]any(nil), row...))
	})
	if err != nil {
		return n, err
	}
	if err := sw.Flush(); err != nil {
		return n, err
	}
	_, err = f.WriteTo(w)
	return n, err
}
