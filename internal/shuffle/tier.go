// Package shuffle reorders a view into a random order, picking the execution
// tier from the row count.
//
// Seeded shuffles of small views (tier A) inline the full permutation in the
// query. Larger views (tier B) stage the permutation in a scratch table in
// bounded batches. At or above the large-scale threshold (tier C) no
// permutation is built at all: rows are ordered by a hash of (row number,
// seed). Tier C is reproducible but is NOT a uniformly random permutation.
// Unseeded shuffles always use the engine's native random ordering.
package shuffle

// Tier is the execution strategy of one shuffle.
type Tier int

const (
	// TierNative orders by the engine's random function; used when no seed is given.
	TierNative Tier = iota
	// TierDirect joins an inline permutation (tier A).
	TierDirect
	// TierChunked joins a permutation staged in a scratch table (tier B).
	TierChunked
	// TierHash orders by hash(row number, seed) (tier C).
	TierHash
)

func (t Tier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierDirect:
		return "direct"
	case TierChunked:
		return "chunked"
	case TierHash:
		return "hash"
	default:
		return "unknown"
	}
}

// Uniform reports whether the tier yields a uniformly random permutation
// under a seed.
func (t Tier) Uniform() bool { return t == TierDirect || t == TierChunked }

// Reproducible reports whether the same seed always yields the same order.
func (t Tier) Reproducible() bool { return t != TierNative }

const (
	DefaultInlineLimit         = 10_000
	DefaultLargeScaleThreshold = 1_000_000
	DefaultMappingBatchSize    = 5_000
)

// Limits are the tunable tier boundaries.
type Limits struct {
	// InlineLimit is the largest row count handled by tier A.
	InlineLimit int
	// LargeScaleThreshold is the smallest row count handled by tier C.
	LargeScaleThreshold int
	// MappingBatchSize bounds each tier-B insert batch.
	MappingBatchSize int
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		InlineLimit:         DefaultInlineLimit,
		LargeScaleThreshold: DefaultLargeScaleThreshold,
		MappingBatchSize:    DefaultMappingBatchSize,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.InlineLimit <= 0 {
		l.InlineLimit = d.InlineLimit
	}
	if l.LargeScaleThreshold <= 0 {
		l.LargeScaleThreshold = d.LargeScaleThreshold
	}
	if l.MappingBatchSize <= 0 {
		l.MappingBatchSize = d.MappingBatchSize
	}
	return l
}

// SelectTier picks the tier for n rows.
func SelectTier(n int, seeded bool, l Limits) Tier {
	l = l.withDefaults()
	switch {
	case !seeded:
		return TierNative
	case n >= l.LargeScaleThreshold:
		return TierHash
	case n <= l.InlineLimit:
		return TierDirect
	default:
		return TierChunked
	}
}
