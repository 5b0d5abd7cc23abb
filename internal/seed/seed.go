// Package seed turns an optional 64-bit seed into a pseudorandom stream.
//
// A Seed either carries a value, in which case every stream built from it is
// deterministic, or is empty, in which case streams draw from runtime entropy.
package seed

import (
	"math/rand/v2"
	"strconv"

	"github.com/zeebo/xxh3"
)

// golden is the 64-bit golden-ratio increment used by SplitMix64.
const golden = 0x9E3779B97F4A7C15

// Seed is an optional 64-bit seed. The zero value is None.
type Seed struct {
	v  uint64
	ok bool
}

// Some returns a seed carrying v.
func Some(v uint64) Seed { return Seed{v: v, ok: true} }

// None returns the empty seed.
func None() Seed { return Seed{} }

// Value returns the seed value and whether one is present.
func (s Seed) Value() (uint64, bool) { return s.v, s.ok }

// IsSet reports whether the seed carries a value.
func (s Seed) IsSet() bool { return s.ok }

func (s Seed) String() string {
	if !s.ok {
		return "none"
	}
	return strconv.FormatUint(s.v, 10)
}

// New returns a stream for s. Two streams built from the same Some(v) yield
// identical sequences when consumed in the same order.
func New(s Seed) *rand.Rand {
	if !s.ok {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(s.v, s.v^golden))
}

// Derive mixes key into s so that independent consumers (one per category)
// get unrelated streams from a single user seed. None stays None.
func Derive(s Seed, key string) Seed {
	if !s.ok {
		return s
	}
	return Some(splitmix64(s.v ^ xxh3.HashString(key)))
}

func splitmix64(x uint64) uint64 {
	z := x + golden
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
