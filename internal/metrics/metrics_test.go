package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	// Success case.
	RecordStep("jobA", "load", nil, 2*time.Second)

	// Failure case.
	err := errors.New("boom")
	RecordStep("jobB", "write", err, 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	// First call: success.
	cc0 := fb.callsCounters[0]
	if cc0.name != "rowkit_step_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=rowkit_step_total, delta=1", cc0)
	}
	if got := cc0.labels["job"]; got != "jobA" {
		t.Fatalf("counter[0].labels[job]=%q; want %q", got, "jobA")
	}
	if got := cc0.labels["step"]; got != "load" {
		t.Fatalf("counter[0].labels[step]=%q; want %q", got, "load")
	}
	if got := cc0.labels["status"]; got != "success" {
		t.Fatalf("counter[0].labels[status]=%q; want %q", got, "success")
	}

	h0 := fb.callsHistograms[0]
	if h0.name != "rowkit_step_duration_seconds" {
		t.Fatalf("hist[0].name=%q; want rowkit_step_duration_seconds", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	// Second call: failure.
	cc1 := fb.callsCounters[1]
	if cc1.labels["job"] != "jobB" || cc1.labels["step"] != "write" {
		t.Fatalf("counter[1] labels job/step = %v; want jobB/write", cc1.labels)
	}
	if cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want %q", cc1.labels["status"], "failure")
	}

	h1 := fb.callsHistograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowAndBatches(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRow("jobX", "loaded", 3)
	RecordRow("jobX", "loaded", 0) // should be ignored
	RecordRow("jobY", "written", 5)
	RecordBatches("jobZ", 2)

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}

	// 1) loaded
	c0 := fb.callsCounters[0]
	if c0.name != "rowkit_rows_total" || c0.delta != 3 {
		t.Fatalf("counter[0] = %#v; want name=rowkit_rows_total, delta=3", c0)
	}
	if c0.labels["job"] != "jobX" || c0.labels["kind"] != "loaded" {
		t.Fatalf("counter[0] labels = %v; want job=jobX, kind=loaded", c0.labels)
	}

	// 2) written
	c1 := fb.callsCounters[1]
	if c1.name != "rowkit_rows_total" || c1.delta != 5 {
		t.Fatalf("counter[1] = %#v; want name=rowkit_rows_total, delta=5", c1)
	}
	if c1.labels["job"] != "jobY" || c1.labels["kind"] != "written" {
		t.Fatalf("counter[1] labels = %v; want job=jobY, kind=written", c1.labels)
	}

	// 3) batches
	c2 := fb.callsCounters[2]
	if c2.name != "rowkit_batches_total" || c2.delta != 2 {
		t.Fatalf("counter[2] = %#v; want name=rowkit_batches_total, delta=2", c2)
	}
	if c2.labels["job"] != "jobZ" {
		t.Fatalf("counter[2].labels[job]=%q; want %q", c2.labels["job"], "jobZ")
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}

// TestRecordTier verifies shuffle tiers are counted with job and tier labels.
func TestRecordTier(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordTier("sample", "hash")

	if len(fb.callsCounters) != 1 {
		t.Fatalf("expected 1 counter call, got %d", len(fb.callsCounters))
	}
	c := fb.callsCounters[0]
	if c.name != ShuffleTierTotal || c.delta != 1 {
		t.Fatalf("counter = %#v; want name=%s, delta=1", c, ShuffleTierTotal)
	}
	if c.labels["job"] != "sample" || c.labels["tier"] != "hash" {
		t.Fatalf("labels = %v; want job=sample, tier=hash", c.labels)
	}
}
