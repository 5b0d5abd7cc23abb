package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "engine.kind",
// "runtime.inline_limit").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRun performs static validation of a Run. It does not mutate r.
// kinds lists the registered engine kinds.
func ValidateRun(r Run, kinds []string) []Issue {
	var issues []Issue
	issues = append(issues, validateEngine(r.Engine, kinds)...)
	issues = append(issues, validateRuntime(r.Runtime)...)
	issues = append(issues, validateMetrics(r.Metrics)...)
	return issues
}

func validateEngine(e Engine, kinds []string) []Issue {
	var issues []Issue

	if strings.TrimSpace(e.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.kind",
			Message:  "engine.kind must not be empty",
		})
	}
	known := false
	for _, k := range kinds {
		if k == e.Kind {
			known = true
			break
		}
	}
	if !known {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.kind",
			Message:  fmt.Sprintf("unknown engine %q; registered engines: %s", e.Kind, strings.Join(kinds, ", ")),
		})
	}
	if e.Kind != "sqlite" && strings.TrimSpace(e.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.dsn",
			Message:  fmt.Sprintf("engine %q requires a dsn", e.Kind),
		})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue

	for _, f := range []struct {
		path string
		v    int
	}{
		{"runtime.jobs", r.Jobs},
		{"runtime.inline_limit", r.InlineLimit},
		{"runtime.large_scale_threshold", r.LargeScaleThreshold},
		{"runtime.mapping_batch_size", r.MappingBatchSize},
		{"runtime.load_batch_size", r.LoadBatchSize},
		{"runtime.channel_buffer", r.ChannelBuffer},
		{"runtime.infer_sample_rows", r.InferSampleRows},
	} {
		if f.v < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  fmt.Sprintf("%s must not be negative", f.path[len("runtime."):]),
			})
		}
	}
	if r.InlineLimit > 0 && r.LargeScaleThreshold > 0 && r.InlineLimit >= r.LargeScaleThreshold {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.inline_limit",
			Message: fmt.Sprintf("inline_limit=%d is not below large_scale_threshold=%d; the chunked tier is unreachable",
				r.InlineLimit, r.LargeScaleThreshold),
		})
	}
	if r.LoadBatchSize == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.load_batch_size",
			Message:  "load_batch_size=0; the default batch size is used",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
	case "pushgateway", "prom", "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		} else if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  fmt.Sprintf("pushgateway_url %q is not an absolute URL", m.PushgatewayURL),
			})
		}
	case "datadog", "dogstatsd":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog backend requires statsd_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, pushgateway or datadog)", m.Backend),
		})
	}
	if strings.TrimSpace(m.Job) == "" && m.Backend != "" && m.Backend != "none" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.job",
			Message:  "metrics.job is empty; metrics will be labeled with the default job",
		})
	}
	return issues
}
