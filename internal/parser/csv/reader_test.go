package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rowkit/internal/config"
)

/*
makeCSV builds a CSV document in-memory with the given header and rows.
It uses encoding/csv to ensure proper quoting and escaping.
*/
func makeCSV(delim rune, header []string, rows [][]string) []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	w.Comma = delim
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.Bytes()
}

// drain runs the table's stream and returns every row.
func drain(t *testing.T, stream func(context.Context, chan<- []any) error) [][]any {
	t.Helper()

	out := make(chan []any, 64)
	errc := make(chan error, 1)
	go func() {
		errc <- stream(context.Background(), out)
		close(out)
	}()
	var rows [][]any
	for r := range out {
		rows = append(rows, r)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	return rows
}

/*
TestOpen_HeaderAndRows verifies header handling (BOM, trimming), NULL for
empty cells, and padding/truncation of ragged records.
*/
func TestOpen_HeaderAndRows(t *testing.T) {
	t.Parallel()

	data := "\uFEFFid, name ,score\n1,alice,3.5\n2,,\n3,bob\n4,carol,1,extra\n"
	tbl, err := Open(strings.NewReader(data), config.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if diff := cmp.Diff([]string{"id", "name", "score"}, tbl.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	if tbl.Types != nil {
		t.Fatalf("csv must leave types to inference, got %v", tbl.Types)
	}

	want := [][]any{
		{"1", "alice", "3.5"},
		{"2", nil, nil},
		{"3", "bob", nil},
		{"4", "carol", "1"},
	}
	if diff := cmp.Diff(want, drain(t, tbl.Stream)); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

/*
TestOpen_Options covers delimiter, headerless input and quoting.
*/
func TestOpen_Options(t *testing.T) {
	t.Parallel()

	data := makeCSV(';', nil, [][]string{{"a;1", " x "}, {"b", "y"}})
	tbl, err := Open(bytes.NewReader(data), config.Options{
		"comma": ";", "has_header": false, "trim_space": false,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if diff := cmp.Diff([]string{"column_1", "column_2"}, tbl.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	want := [][]any{{"a;1", " x "}, {"b", "y"}}
	if diff := cmp.Diff(want, drain(t, tbl.Stream)); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

/*
TestOpen_Errors covers empty input and malformed quoting.
*/
func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Open(strings.NewReader(""), config.Options{}); err == nil {
		t.Fatalf("expected error for empty input")
	}

	tbl, err := Open(strings.NewReader("a,b\n1,\"unterminated\n"), config.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	out := make(chan []any, 4)
	if err := tbl.Stream(context.Background(), out); err == nil {
		t.Fatalf("expected stream error for bad quoting")
	}
}

/*
TestOpen_Canceled stops streaming when the context is done.
*/
func TestOpen_Canceled(t *testing.T) {
	t.Parallel()

	tbl, err := Open(bytes.NewReader(makeCSV(',', []string{"a"}, [][]string{{"1"}, {"2"}})), config.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tbl.Stream(ctx, make(chan []any)); err == nil {
		t.Fatalf("expected context error")
	}
}

/*
TestStripHeaderBOM only touches the first cell.
*/
func TestStripHeaderBOM(t *testing.T) {
	t.Parallel()

	got := StripHeaderBOM([]string{"\uFEFFa", "\uFEFFb"})
	if diff := cmp.Diff([]string{"a", "\uFEFFb"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if got := StripHeaderBOM(nil); got != nil {
		t.Fatalf("nil in, got %v", got)
	}
}
