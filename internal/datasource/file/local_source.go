// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"rowkit/internal/datasource"
	"rowkit/internal/errs"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - A context that is already done returns its error without touching the
//     filesystem.
//   - A missing path returns errs.ErrFileNotFound, still matching
//     os.ErrNotExist.
//   - Directories are rejected.
//   - On Linux the kernel is advised that the file will be read sequentially.
func (l *Local) Open(ctx context.Context) (datasource.File, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.FileNotFound(l.path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", l.path)
	}
	adviseSequential(f, st.Size())
	return f, nil
}
