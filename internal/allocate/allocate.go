// Package allocate computes proportional per-category sample sizes.
package allocate

import (
	"math"
	"sort"

	"rowkit/internal/errs"
)

// Entry is the allocation for one category.
type Entry struct {
	Key        string
	Count      int
	Population int
}

// Plan is an immutable allocation. Entries are sorted by key, every Count is
// at most its Population, and the counts sum to at most the requested size.
type Plan struct {
	entries   []Entry
	requested int
}

// Allocate splits requested across categories in proportion to their
// populations. Each category receives round(requested*pop/total), rounded
// half away from zero and capped by its population. When rounding overshoots
// the requested size, the categories that were rounded up the most give back
// one row each, ties going to the lexically smallest key.
//
// Allocate fails with errs.ErrNoCategories when populations is empty or sums
// to zero.
func Allocate(populations map[string]int, requested int) (Plan, error) {
	total := 0
	for _, p := range populations {
		if p > 0 {
			total += p
		}
	}
	if len(populations) == 0 || total == 0 {
		return Plan{}, errs.NoCategories("")
	}
	if requested < 0 {
		requested = 0
	}

	keys := make([]string, 0, len(populations))
	for k := range populations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, len(keys))
	excess := make([]float64, len(keys))
	sum := 0
	for i, k := range keys {
		pop := populations[k]
		if pop < 0 {
			pop = 0
		}
		raw := float64(requested) * float64(pop) / float64(total)
		count := int(math.Round(raw))
		if count > pop {
			count = pop
		}
		entries[i] = Entry{Key: k, Count: count, Population: pop}
		excess[i] = float64(count) - raw
		sum += count
	}

	for sum > requested {
		best := -1
		for i := range entries {
			if entries[i].Count == 0 {
				continue
			}
			if best < 0 || excess[i] > excess[best] {
				best = i
			}
		}
		entries[best].Count--
		excess[best]--
		sum--
	}

	return Plan{entries: entries, requested: requested}, nil
}

// Entries returns a copy of the plan's entries in key order.
func (p Plan) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of categories.
func (p Plan) Len() int { return len(p.entries) }

// Count returns the allocation for key, or 0 when key is unknown.
func (p Plan) Count(key string) int {
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].Key >= key })
	if i < len(p.entries) && p.entries[i].Key == key {
		return p.entries[i].Count
	}
	return 0
}

// Total returns the sum of all allocations.
func (p Plan) Total() int {
	n := 0
	for _, e := range p.entries {
		n += e.Count
	}
	return n
}

// Requested returns the sample size the plan was built for.
func (p Plan) Requested() int { return p.requested }

// Remainder is the number of rows the caller still has to draw to reach the
// requested size.
func (p Plan) Remainder() int {
	if r := p.requested - p.Total(); r > 0 {
		return r
	}
	return 0
}
