package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rowkit/internal/datasource/file"
	"rowkit/internal/errs"
	"rowkit/internal/format"
	"rowkit/internal/parser"
	"rowkit/internal/rowstore"
	_ "rowkit/internal/rowstore/sqlite"
)

// openStore opens an in-memory SQLite store and closes it with the test.
func openStore(t *testing.T) *rowstore.Store {
	t.Helper()

	ctx := context.Background()
	s, err := rowstore.Open(ctx, rowstore.Config{Kind: "sqlite"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

// readAll returns every row of v.
func readAll(t *testing.T, s *rowstore.Store, v rowstore.View) [][]any {
	t.Helper()

	var rows [][]any
	if _, err := s.Each(context.Background(), v, func(row []any) error {
		rows = append(rows, append([]any(nil), row...))
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	return rows
}

/*
TestLoad_CSV infers types from a CSV file and stores typed values, turning
cells that do not fit into NULL.
*/
func TestLoad_CSV(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "in.csv")
	data := "id,label,ok,score\n1,a,yes,0.5\n2,,no,1\n3,c,,2.25\n4,d,y,oops\n"
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := file.NewLocal(p).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	s := openStore(t)
	// Inference sees only the first three rows, so "oops" arrives later.
	res, err := Load(context.Background(), s, f, format.CSV, Options{BatchSize: 2, SampleRows: 3})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantCols := []rowstore.Column{
		{Name: "id", Type: rowstore.Integer},
		{Name: "label", Type: rowstore.Text},
		{Name: "ok", Type: rowstore.Boolean},
		{Name: "score", Type: rowstore.Real},
	}
	if diff := cmp.Diff(wantCols, res.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	if res.Rows != 4 || res.Nulled != 1 {
		t.Fatalf("rows=%d nulled=%d, want 4 and 1", res.Rows, res.Nulled)
	}
	want := [][]any{
		{int64(1), "a", true, 0.5},
		{int64(2), nil, false, 1.0},
		{int64(3), "c", nil, 2.25},
		{int64(4), "d", true, nil},
	}
	if diff := cmp.Diff(want, readAll(t, s, res.View)); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

/*
TestLoadTable_DeclaredTypes keeps types supplied by the reader.
*/
func TestLoadTable_DeclaredTypes(t *testing.T) {
	t.Parallel()

	tbl := parser.FromRows(
		[]string{"code", "code"},
		[]rowstore.Type{rowstore.Text, rowstore.Integer},
		[][]any{{"007", int64(1)}, {"010", int64(2)}},
	)
	s := openStore(t)
	res, err := LoadTable(context.Background(), s, tbl, Options{})
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if got := rowstore.ColumnNames(res.Columns); !cmp.Equal(got, []string{"code", "code_2"}) {
		t.Fatalf("names = %v", got)
	}
	want := [][]any{{"007", int64(1)}, {"010", int64(2)}}
	if diff := cmp.Diff(want, readAll(t, s, res.View)); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

/*
TestLoad_Errors surfaces reader failures and unknown formats.
*/
func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,\"open\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := file.NewLocal(p).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	s := openStore(t)
	if _, err := Load(context.Background(), s, f, format.CSV, Options{}); err == nil || !strings.Contains(err.Error(), "csv") {
		t.Fatalf("expected csv error, got %v", err)
	}
	if _, err := Load(context.Background(), s, f, format.Format("avro"), Options{}); !errors.Is(err, errs.ErrUnsupportedFormat) {
		t.Fatalf("want ErrUnsupportedFormat, got %v", err)
	}
}

/*
TestLoadTable_Canceled returns the context error.
*/
func TestLoadTable_Canceled(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 100)
	for i := range rows {
		rows[i] = []any{int64(i)}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadTable(ctx, openStore(t), parser.FromRows([]string{"n"}, nil, rows), Options{ChannelBuffer: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
