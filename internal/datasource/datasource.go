// Package datasource abstracts where input bytes come from.
package datasource

import (
	"context"
	"io"
)

// File is an opened input. Text formats read it sequentially; Parquet needs
// random access to its footer.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// Source opens an input.
type Source interface {
	Open(ctx context.Context) (File, error)
}
