// Package permute builds uniformly random permutations of row positions.
package permute

import "math/rand/v2"

// Permutation maps a new position to the old position it takes its row from:
// p[new] == old.
type Permutation []int

// Pair is one (old, new) entry of a permutation.
type Pair struct {
	Old int
	New int
}

// Permute returns a Fisher-Yates shuffle of [0, n) drawn from r. It consumes
// exactly n-1 values from r for n >= 1.
func Permute(n int, r *rand.Rand) Permutation {
	if n <= 0 {
		return Permutation{}
	}
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Len returns the number of positions.
func (p Permutation) Len() int { return len(p) }

// Pairs yields the (old, new) pairs in new-position order.
func (p Permutation) Pairs() []Pair {
	out := make([]Pair, len(p))
	for newPos, oldPos := range p {
		out[newPos] = Pair{Old: oldPos, New: newPos}
	}
	return out
}

// Valid reports whether p is a bijection on [0, len(p)).
func (p Permutation) Valid() bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
