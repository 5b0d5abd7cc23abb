// Package metrics records operational metrics for rowkit commands behind a
// small, backend-agnostic interface.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete systems live in subpackages (prompush for a Prometheus
// Pushgateway, datadog for DogStatsD) and are installed with SetBackend.
package metrics

import "time"

// Metric names.
const (
	StepTotal        = "rowkit_step_total"
	StepDuration     = "rowkit_step_duration_seconds"
	RowsTotal        = "rowkit_rows_total"
	BatchesTotal     = "rowkit_batches_total"
	ShuffleTierTotal = "rowkit_shuffle_tier_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a command step (load, shuffle, sample,
// split, write) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind.
//
// Kinds used by rowkit:
//   - "loaded"
//   - "coerce_null"
//   - "selected"
//   - "written"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the load batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordTier counts one shuffle executed through tier.
func RecordTier(job, tier string) {
	backend.IncCounter(ShuffleTierTotal, 1, Labels{
		"job":  job,
		"tier": tier,
	})
}
