package writer

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"rowkit/internal/rowstore"
)

// parquetBatchRows is the number of rows per Arrow record (and row group
// chunk) handed to the Parquet writer.
const parquetBatchRows = 64 * 1024

// ArrowSchema maps row store columns onto a nullable Arrow schema.
func ArrowSchema(cols []rowstore.Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		var dt arrow.DataType
		switch c.Type {
		case rowstore.Integer:
			dt = arrow.PrimitiveTypes.Int64
		case rowstore.Real:
			dt = arrow.PrimitiveTypes.Float64
		case rowstore.Boolean:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func writeParquet(ctx context.Context, src Source, v rowstore.View, cols []rowstore.Column, w io.Writer) (int64, error) {
	schema := ArrowSchema(cols)
	mem := memory.NewGoAllocator()
	fw, err := pqarrow.NewFileWriter(schema, w,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)),
	)
	if err != nil {
		return 0, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		rec := b.NewRecord()
		defer rec.Release()
		pending = 0
		return fw.Write(rec)
	}

	n, err := src.Each(ctx, v, func(row []any) error {
		for i, c := range row {
			appendCell(b.Field(i), c)
		}
		pending++
		if pending >= parquetBatchRows {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if cerr := fw.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func appendCell(fb array.Builder, v any) {
	if v == nil {
		fb.AppendNull()
		return
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Float64Builder:
		b.Append(v.(float64))
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.StringBuilder:
		b.Append(text(v))
	default:
		fb.AppendNull()
	}
}
