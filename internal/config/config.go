// Package config defines the run configuration for rowkit.
//
// A run file is JSON or YAML; the decoder is chosen by extension. Field names
// in Go mirror the file keys:
//
//	engine:
//	  kind: postgres
//	  dsn: postgres://user@localhost/db
//	runtime:
//	  jobs: 4
//	  inline_limit: 10000
//	  large_scale_threshold: 1000000
//	input:
//	  options: { comma: ";" }
//	metrics:
//	  backend: pushgateway
//	  pushgateway_url: http://localhost:9091
//
// Flags and environment variables override file values; cmd/rowkit owns
// that precedence.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Run is the top-level object decoded from a run file.
type Run struct {
	Engine  Engine  `json:"engine" yaml:"engine"`
	Runtime Runtime `json:"runtime" yaml:"runtime"`
	Input   Input   `json:"input" yaml:"input"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Engine selects the row store backend.
type Engine struct {
	// Kind is one of the registered rowstore kinds (sqlite, postgres, mssql,
	// mysql).
	Kind string `json:"kind" yaml:"kind"`

	// DSN is passed to the backend as is. Empty means the backend default,
	// which only sqlite has.
	DSN string `json:"dsn" yaml:"dsn"`
}

// Runtime controls parallelism, tier boundaries and batching.
type Runtime struct {
	Jobs                int `json:"jobs" yaml:"jobs"`
	InlineLimit         int `json:"inline_limit" yaml:"inline_limit"`
	LargeScaleThreshold int `json:"large_scale_threshold" yaml:"large_scale_threshold"`
	MappingBatchSize    int `json:"mapping_batch_size" yaml:"mapping_batch_size"`
	LoadBatchSize       int `json:"load_batch_size" yaml:"load_batch_size"`
	ChannelBuffer       int `json:"channel_buffer" yaml:"channel_buffer"`
	InferSampleRows     int `json:"infer_sample_rows" yaml:"infer_sample_rows"`
}

// Input carries reader options. Keys understood today: comma (csv), sheet
// (xlsx).
type Input struct {
	Options Options `json:"options" yaml:"options"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	// Backend is none, pushgateway or datadog. Empty means none.
	Backend        string            `json:"backend" yaml:"backend"`
	PushgatewayURL string            `json:"pushgateway_url" yaml:"pushgateway_url"`
	StatsdAddr     string            `json:"statsd_addr" yaml:"statsd_addr"`
	Namespace      string            `json:"namespace" yaml:"namespace"`
	Job            string            `json:"job" yaml:"job"`
	Tags           map[string]string `json:"tags" yaml:"tags"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Run {
	return Run{
		Engine: Engine{Kind: "sqlite"},
		Runtime: Runtime{
			InlineLimit:         10_000,
			LargeScaleThreshold: 1_000_000,
			MappingBatchSize:    5_000,
			LoadBatchSize:       5_000,
			ChannelBuffer:       1_000,
			InferSampleRows:     1_000,
		},
		Input:   Input{Options: Options{}},
		Metrics: Metrics{Backend: "none", Job: "rowkit"},
	}
}

// Load reads a run file on top of Defaults. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. Unknown keys are rejected.
func Load(path string) (Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	r := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&r); err != nil {
			return Run{}, fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return Run{}, fmt.Errorf("config: decode json %s: %w", path, err)
		}
	}
	if r.Input.Options == nil {
		r.Input.Options = Options{}
	}
	return r, nil
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns the default when a key is
// absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
