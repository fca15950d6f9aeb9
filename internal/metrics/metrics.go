// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from pipeline runs.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems live in subpackages, so the executors depend
//     only on this interface and never on Prometheus or Datadog directly.
//
// The primary use case is instrumentation of pipeline execution (records in,
// records out, run duration per pipeline) without coupling the engine to a
// specific metrics system.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
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

// IncCounter delegates to the current backend.
func IncCounter(name string, delta float64, labels Labels) {
	backend.IncCounter(name, delta, labels)
}

// ObserveHistogram delegates to the current backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	backend.ObserveHistogram(name, value, labels)
}

// RecordRun is a convenience for the common pattern:
// measure record throughput + duration + success/failure per pipeline run.
func RecordRun(pipeline string, in, out int, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"pipeline": pipeline,
		"status":   status,
	}

	backend.IncCounter("pipe_runs_total", 1, lbls)
	backend.IncCounter("pipe_records_in_total", float64(in), lbls)
	backend.IncCounter("pipe_records_out_total", float64(out), lbls)
	backend.ObserveHistogram("pipe_run_duration_seconds", d.Seconds(), lbls)
}
