// Package json reads JSON and NDJSON records into a parser.Table.
//
// Accepted shapes:
//   - a root array of objects: [ {...}, {...} ]
//   - a root object wrapping the records in an array-of-object field:
//     { "records": [ {...} ], "meta": {...} }
//   - a single object, treated as one record
//   - a stream of objects, one per line (NDJSON/JSONL)
//
// Nested objects are flattened into dotted column names ("user.id"); arrays
// are kept as their JSON text. Columns are the union of keys across all
// records, sorted.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"rowkit/internal/config"
	"rowkit/internal/parser"
)

// Open decodes every record from r. JSON inputs are held in memory; the
// returned Table streams from that copy.
func Open(r io.Reader, _ config.Options) (parser.Table, error) {
	recs, err := DecodeAll(r)
	if err != nil {
		return parser.Table{}, err
	}
	if len(recs) == 0 {
		return parser.Table{}, fmt.Errorf("json: no records found")
	}

	flat := make([]map[string]any, len(recs))
	keys := make(map[string]struct{})
	for i, rec := range recs {
		f := make(map[string]any, len(rec))
		flattenRecord("", rec, f)
		for k := range f {
			keys[k] = struct{}{}
		}
		flat[i] = f
	}
	columns := make([]string, 0, len(keys))
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	stream := func(ctx context.Context, out chan<- []any) error {
		for _, f := range flat {
			row := make([]any, len(columns))
			for i, c := range columns {
				v, err := cell(f[c])
				if err != nil {
					return fmt.Errorf("json: column %s: %w", c, err)
				}
				row[i] = v
			}
			if err := parser.Send(ctx, out, row); err != nil {
				return err
			}
		}
		return nil
	}
	return parser.Table{Columns: columns, Stream: stream}, nil
}

// DecodeAll reads all records from r in any of the accepted shapes.
func DecodeAll(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("json: decode root: %w", err)
	}

	var out []map[string]any
	switch v := root.(type) {
	case []any:
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("json: array element %d is not an object (got %T)", i, elem)
			}
			out = append(out, obj)
		}
	case map[string]any:
		if slice := findObjectSlice(v); slice != nil {
			out = append(out, slice...)
		} else {
			out = append(out, v)
		}
	default:
		return nil, fmt.Errorf("json: unsupported root type %T (want object or array)", v)
	}

	// Further top-level values make the input NDJSON.
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("json: record %d: %w", len(out)+1, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// findObjectSlice returns the largest array-of-object field of root, or nil.
func findObjectSlice(root map[string]any) []map[string]any {
	var best []map[string]any
	for _, v := range root {
		raw, ok := v.([]any)
		if !ok || len(raw) == 0 {
			continue
		}
		objects := make([]map[string]any, 0, len(raw))
		for _, elem := range raw {
			m, ok := elem.(map[string]any)
			if !ok {
				objects = nil
				break
			}
			objects = append(objects, m)
		}
		if len(objects) > len(best) {
			best = objects
		}
	}
	return best
}

func flattenRecord(prefix string, in, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flattenRecord(key, m, out)
			continue
		}
		out[key] = v
	}
}

// cell converts a decoded JSON value to a row cell.
func cell(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return x.String(), nil
	case string:
		if x == "" {
			return nil, nil
		}
		return x, nil
	case bool:
		return x, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}
