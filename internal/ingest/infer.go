package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"rowkit/internal/rowstore"
)

// InferTypes returns one type per column from sampled rows. A column takes
// the narrowest type every non-empty sample satisfies, in the order integer,
// boolean, real, text. Columns with no non-empty sample are text.
func InferTypes(width int, rows [][]any) []rowstore.Type {
	types := make([]rowstore.Type, width)
	vals := make([]string, 0, len(rows))
	for c := 0; c < width; c++ {
		vals = vals[:0]
		for _, r := range rows {
			if c >= len(r) || r[c] == nil {
				continue
			}
			if s := strings.TrimSpace(cellText(r[c])); s != "" {
				vals = append(vals, s)
			}
		}
		types[c] = inferColumn(vals)
	}
	return types
}

func inferColumn(vals []string) rowstore.Type {
	switch {
	case len(vals) == 0:
		return rowstore.Text
	case allMatch(vals, isInt):
		return rowstore.Integer
	case allMatch(vals, isBool):
		return rowstore.Boolean
	case allMatch(vals, isFloat):
		return rowstore.Real
	default:
		return rowstore.Text
	}
}

// allMatch reports whether every value satisfies fn.
func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts common textual booleans. 1 and 0 are left to integers.
func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n":
		return true
	default:
		return false
	}
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation floats, integers included.
func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
