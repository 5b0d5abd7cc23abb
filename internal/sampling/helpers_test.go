package sampling

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"rowkit/internal/rowstore"
	_ "rowkit/internal/rowstore/sqlite"
	"rowkit/internal/shuffle"
)

var testCols = []rowstore.Column{
	{Name: "id", Type: rowstore.Integer},
	{Name: "Category", Type: rowstore.Text},
}

var testLimits = shuffle.Limits{InlineLimit: 8, LargeScaleThreshold: 1_000, MappingBatchSize: 4}

// fixture is an in-memory store holding one registered dataset.
type fixture struct {
	store    *rowstore.Store
	base     rowstore.View
	shuffler *shuffle.Strategy
}

// newFixture loads rows (id, category) where category is produced by cat.
func newFixture(t *testing.T, n int, cat func(i int) any) fixture {
	t.Helper()

	ctx := context.Background()
	s, err := rowstore.Open(ctx, rowstore.Config{Kind: "sqlite"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	in := make(chan []any, n)
	for i := 0; i < n; i++ {
		in <- []any{int64(i), cat(i)}
	}
	close(in)
	v, _, err := s.Register(ctx, testCols, in, 16)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return fixture{store: s, base: v, shuffler: shuffle.New(s, testLimits, nil, "test")}
}

func twoCategories(i int) any {
	if i%2 == 0 {
		return "even"
	}
	return "odd"
}

// rows reads (id, category) pairs of v in order.
func (f fixture) rows(t *testing.T, v rowstore.View) [][2]string {
	t.Helper()

	var out [][2]string
	if _, err := f.store.Each(context.Background(), v, func(row []any) error {
		out = append(out, [2]string{fmt.Sprint(row[0]), fmt.Sprint(row[1])})
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	return out
}

// ids reads the id column of v in order.
func (f fixture) ids(t *testing.T, v rowstore.View) []int64 {
	t.Helper()

	var out []int64
	if _, err := f.store.Each(context.Background(), v, func(row []any) error {
		out = append(out, row[0].(int64))
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	return out
}

func sorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func seq(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

// failingCounts is a RowStore whose category statistics query fails.
type failingCounts struct {
	RowStore
}

func (failingCounts) CategoryCounts(context.Context, rowstore.View, string) (map[string]int, error) {
	return nil, fmt.Errorf("engine unavailable")
}
