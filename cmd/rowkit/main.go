// Command rowkit samples, shuffles and splits tabular files.
//
//	rowkit [global flags] sample  <input> [-n N] [--method M] [--stratify-by COL] [--random SEED] [-o OUT] [-f FORMAT]
//	rowkit [global flags] shuffle <input> [--random SEED] [-o OUT] [-f FORMAT]
//	rowkit [global flags] split   <input> --ratio R1,R2[,...] [--names N1,...] [--splits-prefix P] [--output-dir DIR] [--stratified-by COL] [--random SEED] [-f FORMAT]
//
// Rows are loaded into a SQL row store (in-memory SQLite unless --engine says
// otherwise) and every selection is expressed as a query over that store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	// register all row store backends; the run config picks one.
	_ "rowkit/internal/rowstore/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	if inv.help {
		return 0
	}
	if err := execute(ctx, inv, stdout, stderr); err != nil {
		return fail(stderr, err)
	}
	return 0
}

// fail prints err the way every rowkit error is reported and returns 1.
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
