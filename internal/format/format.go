// Package format names the file formats rowkit reads and writes.
package format

import (
	"path/filepath"
	"strings"

	"rowkit/internal/errs"
)

// Format is a tabular file format.
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	NDJSON  Format = "ndjson"
	Parquet Format = "parquet"
	XLSX    Format = "xlsx"
)

// Parse maps a user-supplied format name, aliases included, onto a Format.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "ndjson", "jsonl":
		return NDJSON, nil
	case "parquet", "pq":
		return Parquet, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", errs.UnsupportedFormat(s)
}

// Detect returns the format implied by path's extension.
func Detect(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errs.UnsupportedFormat(path)
	}
	return Parse(ext)
}

// Ext is the file extension written for f, without the dot.
func (f Format) Ext() string { return string(f) }
