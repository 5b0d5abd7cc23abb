package sampling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rowkit/internal/allocate"
	"rowkit/internal/errs"
	"rowkit/internal/metrics"
	"rowkit/internal/rowstore"
	"rowkit/internal/seed"
	"rowkit/internal/shuffle"
)

// RowStore is the subset of *rowstore.Store used by sampling.
type RowStore interface {
	Count(ctx context.Context, v rowstore.View) (int, error)
	Filter(v rowstore.View, p rowstore.Predicate) rowstore.View
	Limit(v rowstore.View, offset, count int) rowstore.View
	Empty(v rowstore.View) rowstore.View
	Union(first rowstore.View, rest ...rowstore.View) rowstore.View
	Stabilize(ctx context.Context, v rowstore.View) (rowstore.View, error)
	CategoryCounts(ctx context.Context, v rowstore.View, column string) (map[string]int, error)
	Columns() []rowstore.Column
}

// Shuffler reorders a view of n rows under a seed.
type Shuffler interface {
	Shuffle(ctx context.Context, v rowstore.View, n int, sd seed.Seed) (rowstore.View, shuffle.Tier, error)
}

// Method selects how Sample picks rows.
type Method string

const (
	MethodRandom     Method = "random"
	MethodStratified Method = "stratified"
	MethodFirst      Method = "first"
	MethodLast       Method = "last"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodRandom, MethodStratified, MethodFirst, MethodLast:
		return m, nil
	}
	return "", errs.InvalidArgument("Unknown sampling method: %s (want random, stratified, first or last)", s)
}

// Request describes one sample.
type Request struct {
	N          int
	Method     Method
	StratifyBy string
	Seed       seed.Seed
}

// Validate checks the request without touching the store.
func (r Request) Validate() error {
	if r.N < 0 {
		return errs.InvalidArgument("Sample size must not be negative: %d", r.N)
	}
	if _, err := ParseMethod(string(r.Method)); err != nil {
		return err
	}
	if r.Method == MethodStratified && strings.TrimSpace(r.StratifyBy) == "" {
		return errs.InvalidArgument("Stratified sampling requires --stratify-by")
	}
	return nil
}

// Sampler draws samples from views.
type Sampler struct {
	store    RowStore
	shuffler Shuffler
	logger   log.Logger
	job      string
}

// NewSampler returns a Sampler. job labels metrics.
func NewSampler(store RowStore, shuffler Shuffler, logger log.Logger, job string) *Sampler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Sampler{store: store, shuffler: shuffler, logger: logger, job: job}
}

// Sample returns req.N rows of v chosen by req.Method. When req.N is at least
// the row count, v is returned unchanged.
func (s *Sampler) Sample(ctx context.Context, v rowstore.View, req Request) (out rowstore.View, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(s.job, "sample", err, time.Since(start)) }()

	if err := req.Validate(); err != nil {
		return rowstore.View{}, err
	}
	var column string
	if req.Method == MethodStratified {
		if column, err = ResolveColumn(rowstore.ColumnNames(s.store.Columns()), req.StratifyBy); err != nil {
			return rowstore.View{}, err
		}
	}

	total, err := s.store.Count(ctx, v)
	if err != nil {
		return rowstore.View{}, fmt.Errorf("sample: count rows: %w", err)
	}
	if req.N >= total {
		level.Info(s.logger).Log("msg", "requested sample covers the whole dataset", "requested", req.N, "rows", total)
		return v, nil
	}

	switch req.Method {
	case MethodFirst:
		return s.store.Limit(v, 0, req.N), nil
	case MethodLast:
		return s.store.Limit(v, max(total-req.N, 0), req.N), nil
	case MethodRandom:
		shuffled, _, err := s.shuffler.Shuffle(ctx, v, total, req.Seed)
		if err != nil {
			return rowstore.View{}, err
		}
		return s.store.Limit(shuffled, 0, req.N), nil
	default:
		return s.stratified(ctx, v, total, column, req)
	}
}

// stratified takes each category's allocation as the first rows of that
// category, then tops up any remainder with a random draw from the entire
// view. Neither step excludes rows already taken by the other, so the
// remainder can repeat a row, and rows inside a category are not shuffled.
// Both behaviors are kept as is and logged.
func (s *Sampler) stratified(ctx context.Context, v rowstore.View, total int, column string, req Request) (rowstore.View, error) {
	counts, err := s.store.CategoryCounts(ctx, v, column)
	if err != nil {
		return rowstore.View{}, errs.Statistics(column, err)
	}
	plan, err := allocate.Allocate(counts, req.N)
	if errors.Is(err, errs.ErrNoCategories) {
		return rowstore.View{}, errs.NoCategories(column)
	}
	if err != nil {
		return rowstore.View{}, err
	}

	level.Warn(s.logger).Log("msg", "stratified sample takes the first rows of each category; rows within a category are not shuffled", "column", column)

	var parts []rowstore.View
	for _, e := range plan.Entries() {
		level.Debug(s.logger).Log("msg", "category allocation", "column", column, "category", e.Key, "population", e.Population, "allocated", e.Count)
		if e.Count == 0 {
			continue
		}
		parts = append(parts, s.store.Limit(s.store.Filter(v, rowstore.Equals(column, e.Key)), 0, e.Count))
	}

	if rem := plan.Remainder(); rem > 0 {
		level.Warn(s.logger).Log("msg", "filling stratified remainder from the entire dataset; rows may be selected twice", "remainder", rem)
		shuffled, _, err := s.shuffler.Shuffle(ctx, v, total, req.Seed)
		if err != nil {
			return rowstore.View{}, err
		}
		parts = append(parts, s.store.Limit(shuffled, 0, rem))
	}

	if len(parts) == 0 {
		return s.store.Empty(v), nil
	}
	return s.store.Union(parts[0], parts[1:]...), nil
}
