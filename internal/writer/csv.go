package writer

import (
	"context"
	"encoding/csv"
	"io"

	"rowkit/internal/rowstore"
)

func writeCSV(ctx context.Context, src Source, v rowstore.View, cols []rowstore.Column, w io.Writer) (int64, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(rowstore.ColumnNames(cols)); err != nil {
		return 0, err
	}
	rec := make([]string, len(cols))
	n, err := src.Each(ctx, v, func(row []any) error {
		for i, c := range row {
			rec[i] = text(c)
		}
		return cw.Write(rec)
	})
	if err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}
