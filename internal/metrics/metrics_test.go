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

func TestRecordRun_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	// Success case.
	RecordRun("1", 5, 3, nil, 2*time.Second)

	// Failure case.
	err := errors.New("boom")
	RecordRun("2", 10, 0, err, 1500*time.Millisecond)

	if len(fb.callsCounters) != 6 {
		t.Fatalf("expected 6 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	// First run: success.
	cc0 := fb.callsCounters[0]
	if cc0.name != "pipe_runs_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=pipe_runs_total, delta=1", cc0)
	}
	if got := cc0.labels["pipeline"]; got != "1" {
		t.Fatalf("counter[0].labels[pipeline]=%q; want %q", got, "1")
	}
	if got := cc0.labels["status"]; got != "success" {
		t.Fatalf("counter[0].labels[status]=%q; want %q", got, "success")
	}
	if cc1 := fb.callsCounters[1]; cc1.name != "pipe_records_in_total" || cc1.delta != 5 {
		t.Fatalf("counter[1] = %#v; want name=pipe_records_in_total, delta=5", cc1)
	}
	if cc2 := fb.callsCounters[2]; cc2.name != "pipe_records_out_total" || cc2.delta != 3 {
		t.Fatalf("counter[2] = %#v; want name=pipe_records_out_total, delta=3", cc2)
	}

	h0 := fb.callsHistograms[0]
	if h0.name != "pipe_run_duration_seconds" {
		t.Fatalf("hist[0].name=%q; want pipe_run_duration_seconds", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	// Second run: failure.
	cc3 := fb.callsCounters[3]
	if cc3.labels["pipeline"] != "2" {
		t.Fatalf("counter[3].labels[pipeline]=%q; want %q", cc3.labels["pipeline"], "2")
	}
	if cc3.labels["status"] != "failure" {
		t.Fatalf("counter[3].labels[status]=%q; want %q", cc3.labels["status"], "failure")
	}

	h1 := fb.callsHistograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestSetBackendNilKeepsExisting(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	SetBackend(nil)

	IncCounter("pipe_records_in_total", 1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(fb.callsCounters) != 1 {
		t.Fatalf("expected counter call to reach installed backend, got %d calls", len(fb.callsCounters))
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected 1 flush, got %d", fb.flushCount)
	}
}
