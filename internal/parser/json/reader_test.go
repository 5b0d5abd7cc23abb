package json

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rowkit/internal/config"
)

// drain runs the table's stream and returns every row.
func drain(t *testing.T, stream func(context.Context, chan<- []any) error) [][]any {
	t.Helper()

	out := make(chan []any, 64)
	if err := stream(context.Background(), out); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	close(out)
	var rows [][]any
	for r := range out {
		rows = append(rows, r)
	}
	return rows
}

/*
TestOpen_Shapes checks that every accepted input shape yields the same table.
*/
func TestOpen_Shapes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"array":    `[{"id": 1, "name": "a"}, {"id": 2, "name": "b", "ok": true}]`,
		"envelope": `{"meta": {"n": 2}, "records": [{"id": 1, "name": "a"}, {"id": 2, "name": "b", "ok": true}]}`,
		"ndjson":   "{\"id\": 1, \"name\": \"a\"}\n{\"id\": 2, \"name\": \"b\", \"ok\": true}\n",
	}
	wantCols := []string{"id", "name", "ok"}
	wantRows := [][]any{
		{"1", "a", nil},
		{"2", "b", true},
	}
	for name, in := range cases {
		tbl, err := Open(strings.NewReader(in), config.Options{})
		if err != nil {
			t.Fatalf("%s: Open() error = %v", name, err)
		}
		if diff := cmp.Diff(wantCols, tbl.Columns); diff != "" {
			t.Fatalf("%s: columns (-want +got):\n%s", name, diff)
		}
		if diff := cmp.Diff(wantRows, drain(t, tbl.Stream)); diff != "" {
			t.Fatalf("%s: rows (-want +got):\n%s", name, diff)
		}
	}
}

/*
TestOpen_FlattensNested turns nested objects into dotted columns and keeps
arrays as JSON text.
*/
func TestOpen_FlattensNested(t *testing.T) {
	t.Parallel()

	in := `{"user": {"id": 7, "tags": ["x", "y"]}, "score": 1.5, "note": ""}`
	tbl, err := Open(strings.NewReader(in), config.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if diff := cmp.Diff([]string{"note", "score", "user.id", "user.tags"}, tbl.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	want := [][]any{{nil, "1.5", "7", `["x","y"]`}}
	if diff := cmp.Diff(want, drain(t, tbl.Stream)); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

/*
TestOpen_Errors rejects inputs without records or with non-object elements.
*/
func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"empty":         "",
		"empty array":   "[]",
		"scalar root":   "42",
		"mixed array":   `[{"a": 1}, 2]`,
		"broken ndjson": "{\"a\": 1}\n{\"a\": \n",
	} {
		if _, err := Open(strings.NewReader(in), config.Options{}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
