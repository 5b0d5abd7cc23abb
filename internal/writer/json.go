package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"

	"rowkit/internal/rowstore"
)

// writeJSON writes one object per row with keys in column order, either as
// a top-level array or as newline-delimited objects.
func writeJSON(ctx context.Context, src Source, v rowstore.View, cols []rowstore.Column, w io.Writer, lines bool) (int64, error) {
	keys := make([][]byte, len(cols))
	for i, c := range cols {
		b, err := json.Marshal(c.Name)
		if err != nil {
			return 0, err
		}
		keys[i] = b
	}

	var buf bytes.Buffer
	if !lines {
		buf.WriteByte('[')
	}
	first := true
	n, err := src.Each(ctx, v, func(row []any) error {
		if !lines && !first {
			buf.WriteByte(',')
		}
		first = false
		if !lines {
			buf.WriteByte('\n')
		}
		buf.WriteByte('{')
		for i, c := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			if f, ok := c.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				c = nil
			}
			vb, err := json.Marshal(c)
			if err != nil {
				return err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		if lines {
			buf.WriteByte('\n')
		}
		if buf.Len() >= 1<<16 {
			if _, err := w.Write(buf.Bytes()); err != nil {
				return err
			}
			buf.Reset()
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	if !lines {
		if !first {
			buf.WriteByte('\n')
		}
		buf.WriteString("]\n")
	}
	_, err = w.Write(buf.Bytes())
	return n, err
}
