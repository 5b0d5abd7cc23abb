package sampling

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rowkit/internal/errs"
	"rowkit/internal/metrics"
	"rowkit/internal/rowstore"
	"rowkit/internal/seed"
)

// ratioTolerance bounds how far ratios may sum from 1.0 (or 100).
const ratioTolerance = 0.001

// ParseRatios parses a comma-separated ratio list. Ratios must be positive
// and sum to 1.0 or to 100; percentages are normalized to fractions.
func ParseRatios(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	ratios := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		r, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, errs.InvalidArgument("Invalid ratio: %s", p)
		}
		if r <= 0 {
			return nil, errs.InvalidArgument("Ratio must be positive: %v", r)
		}
		ratios = append(ratios, r)
	}

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	switch {
	case math.Abs(sum-1) < ratioTolerance:
		return ratios, nil
	case math.Abs(sum-100) < ratioTolerance:
		for i := range ratios {
			ratios[i] /= 100
		}
		return ratios, nil
	}
	return nil, errs.InvalidArgument("Ratios must sum to 1.0 or 100.0, got: %v", sum)
}

// Part is one (ratio, destination) pair of a SplitSpec.
type Part struct {
	Ratio       float64
	Destination string
}

// SplitSpec is an ordered, validated list of parts.
type SplitSpec struct {
	parts []Part
}

// NewSplitSpec pairs ratios with destinations. Ratios are validated the same
// way ParseRatios validates them.
func NewSplitSpec(ratios []float64, destinations []string) (SplitSpec, error) {
	if len(ratios) != len(destinations) {
		return SplitSpec{}, errs.InvalidArgument("Number of ratios (%d) must match number of names (%d)", len(ratios), len(destinations))
	}
	if len(ratios) == 0 {
		return SplitSpec{}, errs.InvalidArgument("At least one ratio is required")
	}
	var sum float64
	for _, r := range ratios {
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return SplitSpec{}, errs.InvalidArgument("Ratio must be positive: %v", r)
		}
		sum += r
	}
	scale := 1.0
	switch {
	case math.Abs(sum-1) < ratioTolerance:
	case math.Abs(sum-100) < ratioTolerance:
		scale = 100
	default:
		return SplitSpec{}, errs.InvalidArgument("Ratios must sum to 1.0 or 100.0, got: %v", sum)
	}
	parts := make([]Part, len(ratios))
	for i, r := range ratios {
		parts[i] = Part{Ratio: r / scale, Destination: destinations[i]}
	}
	return SplitSpec{parts: parts}, nil
}

// Parts returns a copy of the spec's parts.
func (s SplitSpec) Parts() []Part { return append([]Part(nil), s.parts...) }

// Len is the number of parts.
func (s SplitSpec) Len() int { return len(s.parts) }

func (s SplitSpec) ratios() []float64 {
	out := make([]float64, len(s.parts))
	for i, p := range s.parts {
		out[i] = p.Ratio
	}
	return out
}

// SplitSizes divides total rows by ratios. Every size but the last is the
// rounded share capped at what is left; the last takes the rest, so the sizes
// always sum to total.
func SplitSizes(total int, ratios []float64) []int {
	sizes := make([]int, len(ratios))
	remaining := total
	for i, r := range ratios {
		if i == len(ratios)-1 {
			sizes[i] = remaining
			break
		}
		n := min(int(math.Round(float64(total)*r)), remaining)
		sizes[i] = n
		remaining -= n
	}
	return sizes
}

// Split is one output of Partitioner.Split.
type Split struct {
	Destination string
	View        rowstore.View
	Rows        int
}

// Partitioner divides views into ratio-sized parts.
type Partitioner struct {
	store    RowStore
	shuffler Shuffler
	logger   log.Logger
	job      string
}

// NewPartitioner returns a Partitioner. job labels metrics.
func NewPartitioner(store RowStore, shuffler Shuffler, logger log.Logger, job string) *Partitioner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Partitioner{store: store, shuffler: shuffler, logger: logger, job: job}
}

// Split divides v according to spec. With a stratifyBy column each category
// is shuffled and split on its own and the pieces are recombined by index;
// rows whose category is NULL are left out. Every part of spec yields a
// Split, empty ones included.
func (p *Partitioner) Split(ctx context.Context, v rowstore.View, spec SplitSpec, stratifyBy string, sd seed.Seed) (out []Split, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(p.job, "split", err, time.Since(start)) }()

	if spec.Len() == 0 {
		return nil, errs.InvalidArgument("At least one ratio is required")
	}
	if strings.TrimSpace(stratifyBy) != "" {
		var column string
		if column, err = ResolveColumn(rowstore.ColumnNames(p.store.Columns()), stratifyBy); err != nil {
			return nil, err
		}
		out, err = p.stratified(ctx, v, spec, column, sd)
	} else {
		out, err = p.random(ctx, v, spec, sd)
	}
	if err != nil {
		return nil, err
	}
	for i, s := range out {
		level.Debug(p.logger).Log("msg", "split", "index", i+1, "rows", humanize.Comma(int64(s.Rows)), "destination", s.Destination)
	}
	return out, nil
}

func (p *Partitioner) random(ctx context.Context, v rowstore.View, spec SplitSpec, sd seed.Seed) ([]Split, error) {
	total, err := p.store.Count(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("split: count rows: %w", err)
	}
	shuffled, err := p.shuffleStable(ctx, v, total, sd)
	if err != nil {
		return nil, err
	}

	parts := spec.Parts()
	sizes := SplitSizes(total, spec.ratios())
	out := make([]Split, len(parts))
	offset := 0
	for i, part := range parts {
		out[i] = Split{
			Destination: part.Destination,
			View:        p.store.Limit(shuffled, offset, sizes[i]),
			Rows:        sizes[i],
		}
		offset += sizes[i]
	}
	return out, nil
}

func (p *Partitioner) stratified(ctx context.Context, v rowstore.View, spec SplitSpec, column string, sd seed.Seed) ([]Split, error) {
	counts, err := p.store.CategoryCounts(ctx, v, column)
	if err != nil {
		return nil, errs.Statistics(column, err)
	}
	if len(counts) == 0 {
		return nil, errs.NoCategories(column)
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := spec.Parts()
	ratios := spec.ratios()
	windows := make([][]rowstore.View, len(parts))
	rows := make([]int, len(parts))

	for _, key := range keys {
		n := counts[key]
		category := p.store.Filter(v, rowstore.Equals(column, key))
		shuffled, err := p.shuffleStable(ctx, category, n, seed.Derive(sd, key))
		if err != nil {
			return nil, fmt.Errorf("split: category %q: %w", key, err)
		}
		sizes := SplitSizes(n, ratios)
		level.Debug(p.logger).Log("msg", "category split", "column", column, "category", key, "rows", n, "sizes", fmt.Sprint(sizes))
		offset := 0
		for i, size := range sizes {
			if size > 0 {
				windows[i] = append(windows[i], p.store.Limit(shuffled, offset, size))
				rows[i] += size
			}
			offset += size
		}
	}

	out := make([]Split, len(parts))
	for i, part := range parts {
		view := p.store.Empty(v)
		if len(windows[i]) > 0 {
			view = p.store.Union(windows[i][0], windows[i][1:]...)
		} else {
			level.Warn(p.logger).Log("msg", "split is empty", "index", i+1, "destination", part.Destination)
		}
		out[i] = Split{Destination: part.Destination, View: view, Rows: rows[i]}
	}
	return out, nil
}

// shuffleStable shuffles v and materializes the result when it would
// otherwise be re-evaluated differently by each window.
func (p *Partitioner) shuffleStable(ctx context.Context, v rowstore.View, n int, sd seed.Seed) (rowstore.View, error) {
	shuffled, _, err := p.shuffler.Shuffle(ctx, v, n, sd)
	if err != nil {
		return rowstore.View{}, err
	}
	return p.store.Stabilize(ctx, shuffled)
}
