package writer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"rowkit/internal/rowstore"
)

// Display prints v as an aligned text table followed by a row count.
// NULL cells print as "null".
func (wr *Writer) Display(ctx context.Context, v rowstore.View, w io.Writer) (int64, error) {
	cols := wr.src.Columns()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	names := rowstore.ColumnNames(cols)
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	rule := make([]string, len(names))
	for i, n := range names {
		rule[i] = strings.Repeat("-", max(len(n), 4))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	flatten := strings.NewReplacer("\t", " ", "\n", " ")
	cells := make([]string, len(cols))
	n, err := wr.src.Each(ctx, v, func(row []any) error {
		for i, c := range row {
			if c == nil {
				cells[i] = "null"
				continue
			}
			cells[i] = flatten.Replace(text(c))
		}
		_, err := fmt.Fprintln(tw, strings.Join(cells, "\t"))
		return err
	})
	if err != nil {
		return n, err
	}
	if err := tw.Flush(); err != nil {
		return n, err
	}
	noun := "rows"
	if n == 1 {
		noun = "row"
	}
	_, err = fmt.Fprintf(w, "(%d %s)\n", n, noun)
	return n, err
}
