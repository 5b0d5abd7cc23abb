// Package sampling implements sampling and splitting of row store views.
//
// Sampler draws a subset (random, stratified, first-K or last-K); Partitioner
// divides a view into K parts by ratio, optionally per category. Both rely on
// shuffle.Strategy for every random ordering, so a seed fully determines the
// result.
package sampling

import (
	"strings"

	"golang.org/x/text/cases"

	"rowkit/internal/errs"
)

// ResolveColumn finds name among columns. Surrounding double quotes are
// stripped and the comparison is case-insensitive (Unicode case folding);
// an exact match wins over a folded one. The error lists every available
// column.
func ResolveColumn(columns []string, name string) (string, error) {
	clean := strings.TrimSpace(name)
	if len(clean) > 1 && strings.HasPrefix(clean, `"`) && strings.HasSuffix(clean, `"`) {
		clean = clean[1 : len(clean)-1]
	}
	for _, c := range columns {
		if c == clean {
			return c, nil
		}
	}
	fold := cases.Fold()
	want := fold.String(clean)
	for _, c := range columns {
		if fold.String(c) == want {
			return c, nil
		}
	}
	return "", errs.ColumnNotFound(clean, columns)
}
