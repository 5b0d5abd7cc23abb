package format

import (
	"errors"
	"testing"

	"rowkit/internal/errs"
)

// TestParse covers names and aliases.
func TestParse(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{
		"csv": CSV, "JSON": JSON, "jsonl": NDJSON, "ndjson": NDJSON,
		"parquet": Parquet, " Excel ": XLSX, "xlsx": XLSX,
	} {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := Parse("avro"); !errors.Is(err, errs.ErrUnsupportedFormat) {
		t.Fatalf("want ErrUnsupportedFormat, got %v", err)
	}
}

// TestDetect reads the extension.
func TestDetect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want Format
		ok   bool
	}{
		{"data/train.parquet", Parquet, true},
		{"x.CSV", CSV, true},
		{"events.jsonl", NDJSON, true},
		{"book.xlsx", XLSX, true},
		{"noext", "", false},
		{"a.txt", "", false},
	}
	for _, tc := range cases {
		got, err := Detect(tc.path)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("Detect(%q) = %q, %v; want %q ok=%v", tc.path, got, err, tc.want, tc.ok)
		}
	}
}
