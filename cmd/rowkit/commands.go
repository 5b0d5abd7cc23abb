package main

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rowkit/internal/config"
	"rowkit/internal/datasource/file"
	"rowkit/internal/errs"
	"rowkit/internal/format"
	"rowkit/internal/ingest"
	"rowkit/internal/logging"
	"rowkit/internal/rowstore"
	"rowkit/internal/sampling"
	"rowkit/internal/shuffle"
	"rowkit/internal/writer"
)

// target is where a sample or shuffle result goes. An empty path means
// stdout; an empty format on stdout means the text table.
type target struct {
	path   string
	format format.Format
}

// plan holds everything checked before the input is loaded.
type plan struct {
	inputFormat format.Format
	out         target
	request     sampling.Request
	spec        sampling.SplitSpec
	splitFormat format.Format
}

// session is an open store with the input loaded into it.
type session struct {
	logger   log.Logger
	job      string
	store    *rowstore.Store
	view     rowstore.View
	shuffler *shuffle.Strategy
	writer   *writer.Writer
}

func execute(ctx context.Context, inv invocation, stdout, stderr io.Writer) error {
	logger := logging.New(stderr, inv.global.verbose)

	cfg, err := resolveConfig(inv, stderr)
	if err != nil {
		return err
	}
	flush := setupMetrics(cfg.Metrics, logger)
	defer flush()

	p, err := makePlan(inv)
	if err != nil {
		return err
	}

	src := file.NewLocal(inv.input)
	f, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.store.Close(context.Background()); err != nil {
			level.Warn(logger).Log("msg", "closing row store", "err", err)
		}
	}()

	res, err := ingest.Load(ctx, s.store, f, p.inputFormat, ingest.Options{
		BatchSize:     cfg.Runtime.LoadBatchSize,
		ChannelBuffer: cfg.Runtime.ChannelBuffer,
		SampleRows:    cfg.Runtime.InferSampleRows,
		Reader:        cfg.Input.Options,
		Logger:        logging.With(logger, "ingest"),
		Job:           s.job,
	})
	if err != nil {
		return err
	}
	s.view = res.View

	switch inv.command {
	case cmdSample:
		err = s.sample(ctx, p, stdout)
	case cmdShuffle:
		err = s.shuffle(ctx, inv, p, stdout)
	case cmdSplit:
		err = s.split(ctx, inv, p)
	}
	if err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "completed", "command", inv.command, "elapsed", time.Since(start).Truncate(time.Millisecond))
	return nil
}

func openSession(ctx context.Context, cfg config.Run, logger log.Logger) (*session, error) {
	store, err := rowstore.Open(ctx, rowstore.Config{
		Kind:   cfg.Engine.Kind,
		DSN:    cfg.Engine.DSN,
		Jobs:   cfg.Runtime.Jobs,
		Logger: logging.With(logger, "rowstore"),
	})
	if err != nil {
		return nil, err
	}
	job := cfg.Metrics.Job
	limits := shuffle.Limits{
		InlineLimit:         cfg.Runtime.InlineLimit,
		LargeScaleThreshold: cfg.Runtime.LargeScaleThreshold,
		MappingBatchSize:    cfg.Runtime.MappingBatchSize,
	}
	return &session{
		logger:   logger,
		job:      job,
		store:    store,
		shuffler: shuffle.New(store, limits, logging.With(logger, "shuffle"), job),
		writer:   writer.New(store, logging.With(logger, "writer"), job),
	}, nil
}

// makePlan validates formats, ratios, names and the sampling request.
func makePlan(inv invocation) (plan, error) {
	var (
		p   plan
		err error
	)
	if p.inputFormat, err = format.Detect(inv.input); err != nil {
		return p, err
	}
	switch inv.command {
	case cmdSample:
		method, err := sampling.ParseMethod(inv.method)
		if err != nil {
			return p, err
		}
		p.request = sampling.Request{N: inv.n, Method: method, StratifyBy: inv.stratifyBy, Seed: inv.seed}
		if err := p.request.Validate(); err != nil {
			return p, err
		}
		p.out, err = outputTarget(inv.output, inv.format)
		return p, err

	case cmdShuffle:
		p.out, err = outputTarget(inv.output, inv.format)
		return p, err

	case cmdSplit:
		if strings.TrimSpace(inv.ratio) == "" {
			return p, errs.InvalidArgument("split requires --ratio")
		}
		ratios, err := sampling.ParseRatios(inv.ratio)
		if err != nil {
			return p, err
		}
		if p.splitFormat, err = splitFormat(inv.format, p.inputFormat); err != nil {
			return p, err
		}
		names, err := splitNames(inv.names, inv.prefix, len(ratios), p.splitFormat)
		if err != nil {
			return p, err
		}
		for i, n := range names {
			names[i] = filepath.Join(inv.outputDir, n)
		}
		p.spec, err = sampling.NewSplitSpec(ratios, names)
		return p, err
	}
	return p, errs.InvalidArgument("unknown command %q", inv.command)
}

// outputTarget resolves -o and -f. With a path the format comes from -f or
// the extension; without one, -f picks a stdout encoding and the default is
// the text table.
func outputTarget(path, flagFormat string) (target, error) {
	text := strings.EqualFold(strings.TrimSpace(flagFormat), "text")
	if path == "" {
		if flagFormat == "" || text {
			return target{}, nil
		}
		ft, err := format.Parse(flagFormat)
		return target{format: ft}, err
	}
	if text {
		return target{}, errs.InvalidArgument("text output can only be printed to the console, drop -o or pick a file format")
	}
	if flagFormat != "" {
		ft, err := format.Parse(flagFormat)
		return target{path: path, format: ft}, err
	}
	ft, err := format.Detect(path)
	return target{path: path, format: ft}, err
}

// splitFormat applies the split format precedence: -f, then the input
// format, then Parquet.
func splitFormat(flagFormat string, input format.Format) (format.Format, error) {
	if flagFormat != "" {
		return format.Parse(flagFormat)
	}
	if input != "" {
		return input, nil
	}
	return format.Parquet, nil
}

// splitNames returns one file name per ratio. Generated names are
// <prefix>_<i>.<ext>; given names without an extension receive one.
func splitNames(list, prefix string, k int, ft format.Format) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		if prefix == "" {
			prefix = "split"
		}
		out := make([]string, k)
		for i := range out {
			out[i] = prefix + "_" + strconv.Itoa(i+1) + "." + ft.Ext()
		}
		return out, nil
	}
	parts := strings.Split(list, ",")
	if len(parts) != k {
		return nil, errs.InvalidArgument("Number of ratios (%d) must match number of names (%d)", k, len(parts))
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errs.InvalidArgument("Split name %d is empty", i+1)
		}
		if filepath.Ext(p) == "" {
			p += "." + ft.Ext()
		}
		out[i] = p
	}
	return out, nil
}

func (s *session) sample(ctx context.Context, p plan, stdout io.Writer) error {
	sampler := sampling.NewSampler(s.store, s.shuffler, logging.With(s.logger, "sample"), s.job)
	v, err := sampler.Sample(ctx, s.view, p.request)
	if err != nil {
		return err
	}
	return s.emit(ctx, v, p.out, stdout)
}

func (s *session) shuffle(ctx context.Context, inv invocation, p plan, stdout io.Writer) error {
	n, err := s.store.Count(ctx, s.view)
	if err != nil {
		return err
	}
	v, tier, err := s.shuffler.Shuffle(ctx, s.view, n, inv.seed)
	if err != nil {
		return err
	}
	level.Debug(s.logger).Log("msg", "shuffled", "rows", humanize.Comma(int64(n)), "tier", tier, "seed", inv.seed)
	return s.emit(ctx, v, p.out, stdout)
}

func (s *session) split(ctx context.Context, inv invocation, p plan) error {
	part := sampling.NewPartitioner(s.store, s.shuffler, logging.With(s.logger, "split"), s.job)
	splits, err := part.Split(ctx, s.view, p.spec, inv.stratifyBy, inv.seed)
	if err != nil {
		return err
	}
	// Splits already written stay on disk when a later one fails.
	for _, sp := range splits {
		if _, err := s.writer.WriteFile(ctx, sp.View, sp.Destination, p.splitFormat); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) emit(ctx context.Context, v rowstore.View, t target, stdout io.Writer) error {
	if t.path != "" {
		_, err := s.writer.WriteFile(ctx, v, t.path, t.format)
		return err
	}
	bw := bufio.NewWriter(stdout)
	var err error
	if t.format == "" {
		_, err = s.writer.Display(ctx, v, bw)
	} else {
		_, err = s.writer.Write(ctx, v, bw, t.format)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}
