// Package logging builds the process logger.
package logging

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New returns a logfmt logger writing to w with ts and caller fields. Debug
// lines are kept only when verbose is set.
func New(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.Caller(5))
	lvl := level.AllowInfo()
	if verbose {
		lvl = level.AllowDebug()
	}
	return level.NewFilter(logger, lvl)
}

// With returns logger annotated with a component name.
func With(logger log.Logger, component string) log.Logger {
	if logger == nil {
		return log.NewNopLogger()
	}
	return log.With(logger, "component", component)
}
