// Package config provides configuration models and helpers for pipe runs.
//
// This file adds a lightweight linter/validator for Run values. It performs
// static checks over a decoded Run and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Run.
//
// Path is a dotted path into the config (e.g. "input.kind",
// "metrics.options.pushgateway_url"). Message is human-readable.
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

// ValidateRun performs static validation / linting of a Run.
//
// It does not mutate the run. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	r, err := config.Load(path)
//	if err != nil { ... }
//	issues := config.ValidateRun(r)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidateRun(r Run) []Issue {
	var issues []Issue

	// Top-level run checks.
	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	if strings.TrimSpace(r.Pipe.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "pipe.path",
			Message:  "no pipe file configured; the pipeline definition must be supplied inline",
		})
	}
	issues = append(issues, validateInput(r.Input)...)
	issues = append(issues, validateOutput(r.Output)...)
	issues = append(issues, validateExecutor(r.Executor)...)
	issues = append(issues, validateMetrics(r.Metrics)...)

	return issues
}

// validateInput validates Input configuration.
func validateInput(in Input) []Issue {
	var issues []Issue

	// Kind is required.
	if strings.TrimSpace(in.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.kind",
			Message:  "input.kind must not be empty",
		})
		return issues
	}

	// Known input kinds. Unknown kinds are warnings (for forward compatibility).
	known := map[string]struct{}{
		"file":    {},
		"console": {},
		"http":    {},
	}
	if _, ok := known[in.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input.kind",
			Message:  fmt.Sprintf("unknown input kind %q; ensure a matching implementation exists", in.Kind),
		})
	}

	// Kind-specific checks.
	switch in.Kind {
	case "file":
		if strings.TrimSpace(in.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.file.path",
				Message:  "file input requires a non-empty path",
			})
		}
		switch in.File.Encoding {
		case "", "ascii", "latin1", "ebcdic":
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.file.encoding",
				Message:  fmt.Sprintf("unsupported encoding %q; supported: ascii, latin1, ebcdic", in.File.Encoding),
			})
		}
	case "http":
		if strings.TrimSpace(in.HTTP.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.http.url",
				Message:  "http input requires a non-empty url",
			})
		}
	}

	return issues
}

// validateOutput validates Output configuration.
func validateOutput(out Output) []Issue {
	var issues []Issue

	if strings.TrimSpace(out.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  "output.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"file":    {},
		"console": {},
	}
	if _, ok := known[out.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.kind",
			Message:  fmt.Sprintf("unknown output kind %q; ensure a matching implementation exists", out.Kind),
		})
	}

	switch out.Kind {
	case "file":
		if strings.TrimSpace(out.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.file.path",
				Message:  "file output requires a non-empty path",
			})
		}
	}

	return issues
}

// validateExecutor checks the executor selector.
func validateExecutor(executor string) []Issue {
	switch executor {
	case "", "batch", "rat":
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "executor",
		Message:  fmt.Sprintf("unknown executor %q; supported: batch, rat", executor),
	}}
}

// validateMetrics validates the metrics backend selection and its options.
func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
		// Metrics are optional.
	case "prometheus":
		if m.Options.String("pushgateway_url", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.options.pushgateway_url",
				Message:  "prometheus backend requires a pushgateway_url",
			})
		}
	case "datadog":
		if m.Options.String("statsd_addr", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.options.statsd_addr",
				Message:  "datadog backend requires a statsd_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; ensure a matching implementation exists", m.Backend),
		})
	}

	return issues
}
