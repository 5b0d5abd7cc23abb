// Package parser defines the contract shared by the input readers.
//
// A reader turns an input file into a Table: the column names known up front
// and a Stream function that sends one []any per row, aligned to Columns.
// Cells are nil for missing values; otherwise string, int64, float64 or bool.
package parser

import (
	"context"

	"rowkit/internal/rowstore"
)

// Table is a parsed input.
type Table struct {
	Columns []string

	// Types, when set, are authoritative and skip inference. Readers of
	// self-describing formats (Parquet) fill it; text formats leave it nil.
	Types []rowstore.Type

	// Stream sends every row to out and returns when the input is exhausted,
	// ctx is done or reading fails. It does not close out.
	Stream func(ctx context.Context, out chan<- []any) error
}

// Send delivers row to out unless ctx is done first.
func Send(ctx context.Context, out chan<- []any, row []any) error {
	select {
	case out <- row:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FromRows returns a Table streaming rows held in memory.
func FromRows(columns []string, types []rowstore.Type, rows [][]any) Table {
	return Table{
		Columns: columns,
		Types:   types,
		Stream: func(ctx context.Context, out chan<- []any) error {
			for _, r := range rows {
				if err := Send(ctx, out, r); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
