package rowstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the logical type of a column.
type Type string

const (
	Integer Type = "integer"
	Real    Type = "real"
	Boolean Type = "boolean"
	Text    Type = "text"
)

// ParseType maps a loosely spelled type name onto a Type. Unknown names fall
// back to Text.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "bigint", "int64":
		return Integer
	case "real", "float", "double", "float64", "numeric":
		return Real
	case "bool", "boolean":
		return Boolean
	default:
		return Text
	}
}

// Column is a named, typed column of a registered dataset.
type Column struct {
	Name string
	Type Type
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Normalize converts a driver value into the Go representation of t:
// int64, float64, bool, string or nil. Drivers disagree on what they hand
// back (MySQL returns []byte for everything, SQLite stores booleans as
// integers), so every value read from an engine goes through here.
func Normalize(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch t {
	case Integer:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int32:
			return int64(x), nil
		case int:
			return int64(x), nil
		case float64:
			return int64(x), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("normalize %q as integer: %w", x, err)
			}
			return n, nil
		}
	case Real:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("normalize %q as real: %w", x, err)
			}
			return f, nil
		}
	case Boolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case int32:
			return x != 0, nil
		case string:
			b, ok := ParseBool(x)
			if !ok {
				return nil, fmt.Errorf("normalize %q as boolean", x)
			}
			return b, nil
		}
	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		default:
			return fmt.Sprint(x), nil
		}
	}
	return nil, fmt.Errorf("normalize %T as %s: unsupported value", v, t)
}

// ParseBool accepts the boolean spellings understood by type inference.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

func asInt64(v any) (int64, error) {
	n, err := Normalize(v, Integer)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, nil
	}
	return n.(int64), nil
}

func asString(v any) string {
	s, err := Normalize(v, Text)
	if err != nil || s == nil {
		return ""
	}
	return s.(string)
}
