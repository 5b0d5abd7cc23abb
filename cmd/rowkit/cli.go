package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"rowkit/internal/errs"
	"rowkit/internal/seed"
)

// globalFlags are accepted before or after the command name.
type globalFlags struct {
	verbose        bool
	jobs           int
	configPath     string
	engine         string
	dsn            string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
}

// invocation is one parsed command line.
type invocation struct {
	command string
	input   string
	global  globalFlags
	help    bool
	// changed reports whether a flag was given explicitly.
	changed func(name string) bool

	seed   seed.Seed
	output string
	format string

	// sample
	n          int
	method     string
	stratifyBy string

	// split
	ratio     string
	names     string
	prefix    string
	outputDir string
}

const (
	cmdSample  = "sample"
	cmdShuffle = "shuffle"
	cmdSplit   = "split"
)

func newGlobalFlags(g *globalFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("rowkit", pflag.ContinueOnError)
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	fs.IntVarP(&g.jobs, "jobs", "j", 0, "engine parallelism (overrides env ROWKIT_JOBS)")
	fs.StringVar(&g.configPath, "config", "", "JSON or YAML run config path")
	fs.StringVar(&g.engine, "engine", "", "row store engine: sqlite, postgres, mssql, mysql (overrides env ROWKIT_ENGINE)")
	fs.StringVar(&g.dsn, "dsn", "", "engine DSN; sqlite defaults to :memory: (overrides env ROWKIT_DSN)")
	fs.StringVar(&g.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	fs.StringVar(&g.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&g.statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env DD_AGENT_HOST)")
	return fs
}

// parseArgs splits args into global flags, a command, its flags and the
// input path. Usage and flag errors are written to stderr.
func parseArgs(args []string, stderr io.Writer) (invocation, error) {
	var inv invocation

	global := newGlobalFlags(&inv.global)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			inv.help = true
			return inv, nil
		}
		return inv, errs.InvalidArgument("%v", err)
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return inv, errs.InvalidArgument("missing command (sample, shuffle or split)")
	}
	inv.command = rest[0]

	fs := pflag.NewFlagSet("rowkit "+inv.command, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.AddFlagSet(global)

	var randomSeed uint64
	fs.Uint64Var(&randomSeed, "random", 0, "seed for reproducible results")
	switch inv.command {
	case cmdSample:
		fs.IntVarP(&inv.n, "number", "n", 10, "number of rows to sample")
		fs.StringVar(&inv.method, "method", "random", "sampling method: random, stratified, first, last")
		fs.StringVar(&inv.stratifyBy, "stratify-by", "", "column to stratify by (method stratified)")
		fs.StringVarP(&inv.output, "output", "o", "", "output file (prints to the console when empty)")
		fs.StringVarP(&inv.format, "format", "f", "", "output format: csv, json, ndjson, parquet, xlsx, text")
	case cmdShuffle:
		fs.StringVarP(&inv.output, "output", "o", "", "output file (prints to the console when empty)")
		fs.StringVarP(&inv.format, "format", "f", "", "output format: csv, json, ndjson, parquet, xlsx, text")
	case cmdSplit:
		fs.StringVar(&inv.ratio, "ratio", "", "comma-separated split ratios summing to 1.0 or 100")
		fs.StringVar(&inv.names, "names", "", "comma-separated output file names, one per ratio")
		fs.StringVar(&inv.prefix, "splits-prefix", "split", "prefix for generated split names")
		fs.StringVar(&inv.outputDir, "output-dir", ".", "directory the splits are written to")
		fs.StringVar(&inv.stratifyBy, "stratified-by", "", "column to stratify the split by")
		fs.StringVarP(&inv.format, "format", "f", "", "output format (defaults to the input format)")
	default:
		usage(stderr, global)
		return inv, errs.InvalidArgument("unknown command %q (want sample, shuffle or split)", inv.command)
	}
	if err := fs.Parse(rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			inv.help = true
			return inv, nil
		}
		return inv, errs.InvalidArgument("%v", err)
	}
	if fs.NArg() != 1 {
		return inv, errs.InvalidArgument("%s takes exactly one input file, got %d arguments", inv.command, fs.NArg())
	}
	inv.input = fs.Arg(0)
	inv.changed = fs.Changed
	if fs.Changed("random") {
		inv.seed = seed.Some(randomSeed)
	}
	return inv, nil
}

func usage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: rowkit [global flags] <sample|shuffle|split> <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, global.FlagUsages())
}
