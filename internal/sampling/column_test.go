package sampling

import (
	"errors"
	"strings"
	"testing"

	"rowkit/internal/errs"
)

// TestResolveColumn covers quoting and case-insensitive lookup.
func TestResolveColumn(t *testing.T) {
	t.Parallel()

	cols := []string{"id", "Category", "STRASSE", "category_2"}
	cases := []struct {
		in, want string
	}{
		{"id", "id"},
		{"ID", "id"},
		{"category", "Category"},
		{`"Category"`, "Category"},
		{` "CATEGORY" `, "Category"},
		{"category_2", "category_2"},
		{"strasse", "STRASSE"},
	}
	for _, tc := range cases {
		got, err := ResolveColumn(cols, tc.in)
		if err != nil {
			t.Fatalf("ResolveColumn(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveColumn(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestResolveColumnExactWins prefers an exact match over a folded one.
func TestResolveColumnExactWins(t *testing.T) {
	t.Parallel()

	got, err := ResolveColumn([]string{"Name", "name"}, "name")
	if err != nil || got != "name" {
		t.Fatalf("ResolveColumn() = %q, %v; want name", got, err)
	}
}

// TestResolveColumnMissing lists available columns in the error.
func TestResolveColumnMissing(t *testing.T) {
	t.Parallel()

	_, err := ResolveColumn([]string{"id", "label"}, `"nope"`)
	if !errors.Is(err, errs.ErrColumnNotFound) {
		t.Fatalf("want ErrColumnNotFound, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"Column 'nope' not found", "Available columns: id, label"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not contain %q", msg, want)
		}
	}
}
