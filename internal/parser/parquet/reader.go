// Package parquet reads Parquet files into a parser.Table through Arrow.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"rowkit/internal/config"
	"rowkit/internal/parser"
	"rowkit/internal/rowstore"
)

const defaultBatchSize = 8_192

// Open reads the Parquet footer from r. Column types come from the file
// schema. The returned Table reads record batches on demand and must be
// streamed at most once.
//
// Options: batch_size (int; rows per Arrow record, default 8192).
func Open(r pq.ReaderAtSeeker, opt config.Options) (parser.Table, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return parser.Table{}, fmt.Errorf("parquet: open: %w", err)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{
		BatchSize: int64(opt.Int("batch_size", defaultBatchSize)),
	}, memory.DefaultAllocator)
	if err != nil {
		_ = pf.Close()
		return parser.Table{}, fmt.Errorf("parquet: arrow reader: %w", err)
	}
	schema, err := fr.Schema()
	if err != nil {
		_ = pf.Close()
		return parser.Table{}, fmt.Errorf("parquet: schema: %w", err)
	}

	columns := make([]string, schema.NumFields())
	types := make([]rowstore.Type, schema.NumFields())
	for i, f := range schema.Fields() {
		columns[i] = f.Name
		types[i] = TypeOf(f.Type)
	}

	stream := func(ctx context.Context, out chan<- []any) error {
		defer pf.Close()

		rr, err := fr.GetRecordReader(ctx, nil, nil)
		if err != nil {
			return fmt.Errorf("parquet: record reader: %w", err)
		}
		defer rr.Release()

		for rr.Next() {
			rec := rr.Record()
			for row := 0; row < int(rec.NumRows()); row++ {
				cells := make([]any, rec.NumCols())
				for c := range cells {
					cells[c] = Value(rec.Column(c), row)
				}
				if err := parser.Send(ctx, out, cells); err != nil {
					return err
				}
			}
		}
		if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parquet: read: %w", err)
		}
		return nil
	}
	return parser.Table{Columns: columns, Types: types, Stream: stream}, nil
}

// TypeOf maps an Arrow type onto the row store's logical types. Anything
// without a numeric or boolean reading (dates, timestamps, nested) is Text.
func TypeOf(dt arrow.DataType) rowstore.Type {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return rowstore.Integer
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return rowstore.Real
	case arrow.BOOL:
		return rowstore.Boolean
	default:
		return rowstore.Text
	}
}

// Value returns row i of col as int64, float64, bool, string or nil.
func Value(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch a := col.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return string(a.Value(i))
	default:
		return col.ValueStr(i)
	}
}
