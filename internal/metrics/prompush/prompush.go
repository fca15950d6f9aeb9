// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the pipeline run labels (pipeline, status) onto Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead of
//     exposing an HTTP scrape endpoint. Pipe runs are short-lived batch
//     processes, so the push model fits the lifecycle.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog, StatsD) without changes to the
// executors.
package prompush

import (
	"fmt"

	"recpipe/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	// Run-level metrics
	runCounter  *prometheus.CounterVec // "pipe_runs_total"
	runDuration *prometheus.SummaryVec // "pipe_run_duration_seconds" (summary)

	// Record-level metrics
	recordsIn  *prometheus.CounterVec // "pipe_records_in_total"
	recordsOut *prometheus.CounterVec // "pipe_records_out_total"

	// Web endpoint metrics
	webRequests *prometheus.CounterVec // "pipe_web_requests_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (often derived from the pipe file name).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "recpipe"
	}

	reg := prometheus.NewRegistry()

	// pipeline and status are dynamic labels; job is the Pushgateway
	// grouping key, not a metric label.
	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipe_runs_total",
			Help: "Total number of pipeline runs, partitioned by pipeline position and status.",
		},
		[]string{"pipeline", "status"},
	)
	runDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "pipe_run_duration_seconds",
			Help:       "Duration of pipeline runs in seconds, partitioned by pipeline position and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"pipeline", "status"},
	)
	recordsIn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipe_records_in_total",
			Help: "Records consumed per pipeline position.",
		},
		[]string{"pipeline", "status"},
	)
	recordsOut := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipe_records_out_total",
			Help: "Records emitted per pipeline position, including flush output.",
		},
		[]string{"pipeline", "status"},
	)
	webRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipe_web_requests_total",
			Help: "HTTP requests served by the web UI, partitioned by endpoint.",
		},
		[]string{"endpoint"},
	)

	if err := reg.Register(runCounter); err != nil {
		return nil, fmt.Errorf("prompush: register run counter: %w", err)
	}
	if err := reg.Register(runDuration); err != nil {
		return nil, fmt.Errorf("prompush: register run summary: %w", err)
	}
	if err := reg.Register(recordsIn); err != nil {
		return nil, fmt.Errorf("prompush: register records-in counter: %w", err)
	}
	if err := reg.Register(recordsOut); err != nil {
		return nil, fmt.Errorf("prompush: register records-out counter: %w", err)
	}
	if err := reg.Register(webRequests); err != nil {
		return nil, fmt.Errorf("prompush: register web request counter: %w", err)
	}

	return &Backend{
		gatewayURL:  gatewayURL,
		jobName:     jobName,
		reg:         reg,
		runCounter:  runCounter,
		runDuration: runDuration,
		recordsIn:   recordsIn,
		recordsOut:  recordsOut,
		webRequests: webRequests,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "pipe_runs_total":
		if b.runCounter == nil {
			return
		}
		b.runCounter.WithLabelValues(labels["pipeline"], labels["status"]).Add(delta)

	case "pipe_records_in_total":
		if b.recordsIn == nil {
			return
		}
		b.recordsIn.WithLabelValues(labels["pipeline"], labels["status"]).Add(delta)

	case "pipe_records_out_total":
		if b.recordsOut == nil {
			return
		}
		b.recordsOut.WithLabelValues(labels["pipeline"], labels["status"]).Add(delta)

	case "pipe_web_requests_total":
		if b.webRequests == nil {
			return
		}
		b.webRequests.WithLabelValues(labels["endpoint"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "pipe_run_duration_seconds" || b.runDuration == nil {
		return
	}
	b.runDuration.WithLabelValues(labels["pipeline"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
