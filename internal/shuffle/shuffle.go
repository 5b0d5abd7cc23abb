package shuffle

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rowkit/internal/metrics"
	"rowkit/internal/permute"
	"rowkit/internal/rowstore"
	"rowkit/internal/seed"
)

// Store is the subset of *rowstore.Store a Strategy needs.
type Store interface {
	OrderByRowNumbers(v rowstore.View, order []int) rowstore.View
	OrderByMapping(ctx context.Context, v rowstore.View, order []int, batchSize int) (rowstore.View, error)
	OrderByHash(v rowstore.View, seed uint64) rowstore.View
	OrderRandom(v rowstore.View) rowstore.View
}

// Strategy shuffles views through the tier chosen by SelectTier.
type Strategy struct {
	store  Store
	limits Limits
	logger log.Logger
	job    string
}

// New returns a Strategy. Zero fields of limits take their defaults. job
// labels metrics.
func New(store Store, limits Limits, logger log.Logger, job string) *Strategy {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Strategy{store: store, limits: limits.withDefaults(), logger: logger, job: job}
}

// Limits returns the effective limits.
func (s *Strategy) Limits() Limits { return s.limits }

// Shuffle returns v (holding n rows) in random order and the tier used.
// Views with fewer than two rows are returned unchanged.
func (s *Strategy) Shuffle(ctx context.Context, v rowstore.View, n int, sd seed.Seed) (rowstore.View, Tier, error) {
	tier := SelectTier(n, sd.IsSet(), s.limits)
	if n < 2 {
		return v, tier, nil
	}

	start := time.Now()
	out, err := s.apply(ctx, v, n, sd, tier)
	metrics.RecordStep(s.job, "shuffle", err, time.Since(start))
	if err != nil {
		return rowstore.View{}, tier, fmt.Errorf("shuffle %s rows (tier %s): %w", humanize.Comma(int64(n)), tier, err)
	}
	metrics.RecordTier(s.job, tier.String())

	lg := level.Debug(s.logger)
	if !tier.Uniform() && tier.Reproducible() {
		lg = level.Info(s.logger)
	}
	lg.Log("msg", "shuffled", "rows", humanize.Comma(int64(n)), "tier", tier, "uniform", tier.Uniform(), "seed", sd)
	return out, tier, nil
}

func (s *Strategy) apply(ctx context.Context, v rowstore.View, n int, sd seed.Seed, tier Tier) (rowstore.View, error) {
	switch tier {
	case TierNative:
		return s.store.OrderRandom(v), nil
	case TierHash:
		val, _ := sd.Value()
		return s.store.OrderByHash(v, val), nil
	}

	perm := permute.Permute(n, seed.New(sd))
	if tier == TierDirect {
		return s.store.OrderByRowNumbers(v, perm), nil
	}
	return s.store.OrderByMapping(ctx, v, perm, s.limits.MappingBatchSize)
}
