// Package errs defines the error kinds surfaced by rowkit commands.
//
// Each kind is a sentinel matched with errors.Is. Concrete failures are
// reported as *Error values that carry a kind, a human-readable message and
// an optional underlying cause.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrColumnNotFound    = errors.New("column not found")
	ErrNoCategories      = errors.New("no categories found")
	ErrStatistics        = errors.New("statistics error")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileNotFound      = errors.New("file not found")
)

// Error is a classified failure. Both Kind and Err match through errors.Is.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidArgument reports a bad user-supplied value.
func InvalidArgument(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// ColumnNotFound reports a column missing from the schema together with the
// columns that do exist.
func ColumnNotFound(name string, available []string) error {
	return &Error{
		Kind: ErrColumnNotFound,
		Msg:  fmt.Sprintf("Column '%s' not found. Available columns: %s", name, strings.Join(available, ", ")),
	}
}

// NoCategories reports a stratification column without any non-null value.
func NoCategories(column string) error {
	return &Error{
		Kind: ErrNoCategories,
		Msg:  fmt.Sprintf("No categories found in column '%s'", column),
	}
}

// Statistics wraps a failed distinct/count query.
func Statistics(column string, err error) error {
	return &Error{
		Kind: ErrStatistics,
		Msg:  fmt.Sprintf("Failed to compute category counts for column '%s'", column),
		Err:  err,
	}
}

// UnsupportedFormat reports an input or output format rowkit cannot handle.
func UnsupportedFormat(format string) error {
	return &Error{Kind: ErrUnsupportedFormat, Msg: fmt.Sprintf("Unsupported format: %s", format)}
}

// FileNotFound reports a missing input path.
func FileNotFound(path string, err error) error {
	return &Error{Kind: ErrFileNotFound, Msg: path, Err: err}
}

// KindOf returns the sentinel kind of err, or nil when err is unclassified.
func KindOf(err error) error {
	for _, k := range []error{
		ErrInvalidArgument, ErrColumnNotFound, ErrNoCategories,
		ErrStatistics, ErrUnsupportedFormat, ErrFileNotFound,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
