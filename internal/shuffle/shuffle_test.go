package shuffle

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rowkit/internal/rowstore"
	_ "rowkit/internal/rowstore/sqlite"
	"rowkit/internal/seed"
)

var smallLimits = Limits{InlineLimit: 4, LargeScaleThreshold: 10, MappingBatchSize: 3}

// TestSelectTier checks the boundaries of the pure tier function.
func TestSelectTier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n      int
		seeded bool
		want   Tier
	}{
		{0, true, TierDirect},
		{4, true, TierDirect},
		{5, true, TierChunked},
		{9, true, TierChunked},
		{10, true, TierHash},
		{1_000_000, false, TierNative},
		{3, false, TierNative},
	}
	for _, tc := range cases {
		if got := SelectTier(tc.n, tc.seeded, smallLimits); got != tc.want {
			t.Fatalf("SelectTier(%d, %v) = %s, want %s", tc.n, tc.seeded, got, tc.want)
		}
	}

	if got := SelectTier(DefaultInlineLimit+1, true, Limits{}); got != TierChunked {
		t.Fatalf("zero Limits should take defaults, got %s", got)
	}
	if got := SelectTier(DefaultLargeScaleThreshold, true, Limits{}); got != TierHash {
		t.Fatalf("default threshold: got %s, want hash", got)
	}
}

// TestTierGuarantees distinguishes the approximate tier from exact ones.
func TestTierGuarantees(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tier                  Tier
		name                  string
		uniform, reproducible bool
	}{
		{TierNative, "native", false, false},
		{TierDirect, "direct", true, true},
		{TierChunked, "chunked", true, true},
		{TierHash, "hash", false, true},
	}
	for _, tc := range cases {
		if tc.tier.String() != tc.name || tc.tier.Uniform() != tc.uniform || tc.tier.Reproducible() != tc.reproducible {
			t.Fatalf("%s: String=%s Uniform=%v Reproducible=%v", tc.name, tc.tier, tc.tier.Uniform(), tc.tier.Reproducible())
		}
	}
}

// openView loads ids 0..n-1 into a fresh SQLite store.
func openView(t *testing.T, n int) (*rowstore.Store, rowstore.View) {
	t.Helper()

	ctx := context.Background()
	s, err := rowstore.Open(ctx, rowstore.Config{Kind: "sqlite"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	in := make(chan []any, n)
	for i := 0; i < n; i++ {
		in <- []any{int64(i)}
	}
	close(in)
	v, _, err := s.Register(ctx, []rowstore.Column{{Name: "id", Type: rowstore.Integer}}, in, 16)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return s, v
}

func ids(t *testing.T, s *rowstore.Store, v rowstore.View) []int64 {
	t.Helper()

	var out []int64
	if _, err := s.Each(context.Background(), v, func(row []any) error {
		out = append(out, row[0].(int64))
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	return out
}

func isPermutation(got []int64, n int) bool {
	if len(got) != n {
		return false
	}
	s := append([]int64(nil), got...)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	for i, v := range s {
		if v != int64(i) {
			return false
		}
	}
	return true
}

// TestShuffleTiers runs every tier against SQLite and checks the tier
// reported, row preservation and reproducibility.
func TestShuffleTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		n    int
		sd   seed.Seed
		want Tier
	}{
		{"direct", 4, seed.Some(123), TierDirect},
		{"chunked", 8, seed.Some(123), TierChunked},
		{"hash", 12, seed.Some(123), TierHash},
		{"native", 8, seed.None(), TierNative},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s, v := openView(t, tc.n)
			st := New(s, smallLimits, nil, "test")

			a, tier, err := st.Shuffle(ctx, v, tc.n, tc.sd)
			if err != nil {
				t.Fatalf("Shuffle() error = %v", err)
			}
			if tier != tc.want {
				t.Fatalf("tier = %s, want %s", tier, tc.want)
			}
			first := ids(t, s, a)
			if !isPermutation(first, tc.n) {
				t.Fatalf("shuffle lost or duplicated rows: %v", first)
			}
			if !tier.Reproducible() {
				return
			}
			b, _, err := st.Shuffle(ctx, v, tc.n, tc.sd)
			if err != nil {
				t.Fatalf("second Shuffle() error = %v", err)
			}
			if diff := cmp.Diff(first, ids(t, s, b)); diff != "" {
				t.Fatalf("same seed, different order (-first +second):\n%s", diff)
			}
		})
	}
}

// TestDirectAndChunkedAgree verifies tiers A and B apply the same
// permutation for the same seed, so the tier boundary never changes output.
func TestDirectAndChunkedAgree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, v := openView(t, 8)

	direct, tier, err := New(s, Limits{InlineLimit: 100, LargeScaleThreshold: 1000}, nil, "test").Shuffle(ctx, v, 8, seed.Some(5))
	if err != nil || tier != TierDirect {
		t.Fatalf("direct Shuffle() = %s, %v", tier, err)
	}
	chunked, tier, err := New(s, smallLimits, nil, "test").Shuffle(ctx, v, 8, seed.Some(5))
	if err != nil || tier != TierChunked {
		t.Fatalf("chunked Shuffle() = %s, %v", tier, err)
	}
	if diff := cmp.Diff(ids(t, s, direct), ids(t, s, chunked)); diff != "" {
		t.Fatalf("tiers disagree (-direct +chunked):\n%s", diff)
	}
}

// TestShuffleTinyViewUnchanged returns views with fewer than two rows as is.
func TestShuffleTinyViewUnchanged(t *testing.T) {
	t.Parallel()

	s, v := openView(t, 1)
	out, _, err := New(s, smallLimits, nil, "test").Shuffle(context.Background(), v, 1, seed.Some(1))
	if err != nil {
		t.Fatalf("Shuffle() error = %v", err)
	}
	if out.SQL() != v.SQL() {
		t.Fatalf("single-row view was rewritten")
	}
}
