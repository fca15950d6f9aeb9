package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

// validRun returns a run that passes validation cleanly; tests mutate one
// field at a time.
func validRun() Run {
	return Run{
		Job:  "test-job",
		Pipe: Pipe{Path: "test.pipe"},
		Input: Input{
			Kind: "file",
			File: InputFile{Path: "in.txt", Encoding: "ascii"},
		},
		Output: Output{
			Kind: "console",
		},
		Executor: "batch",
		Metrics: Metrics{
			Backend: "none",
		},
	}
}

/*
TestValidateRun_ValidMinimal verifies that a well-formed run produces no
issues (errors or warnings).
*/
func TestValidateRun_ValidMinimal(t *testing.T) {
	if issues := ValidateRun(validRun()); len(issues) != 0 {
		t.Fatalf("expected no issues, got: %+v", issues)
	}
}

/*
TestValidateRun_MissingJob verifies that a missing or empty Job field produces
a SeverityError with path "job".
*/
func TestValidateRun_MissingJob(t *testing.T) {
	r := validRun()
	r.Job = ""

	issues := ValidateRun(r)
	if !hasIssue(t, issues, SeverityError, "job", "job must not be empty") {
		t.Fatalf("expected SeverityError for job; got issues: %+v", issues)
	}
}

func TestValidateRun_Input(t *testing.T) {
	t.Run("empty kind", func(t *testing.T) {
		r := validRun()
		r.Input.Kind = ""
		if !hasIssue(t, ValidateRun(r), SeverityError, "input.kind", "must not be empty") {
			t.Fatalf("expected error for empty input kind")
		}
	})

	t.Run("unknown kind warns", func(t *testing.T) {
		r := validRun()
		r.Input.Kind = "s3"
		if !hasIssue(t, ValidateRun(r), SeverityWarning, "input.kind", "unknown input kind") {
			t.Fatalf("expected warning for unknown input kind")
		}
	})

	t.Run("file input requires path", func(t *testing.T) {
		r := validRun()
		r.Input.File.Path = ""
		if !hasIssue(t, ValidateRun(r), SeverityError, "input.file.path", "non-empty path") {
			t.Fatalf("expected error for missing input path")
		}
	})

	t.Run("bad encoding", func(t *testing.T) {
		r := validRun()
		r.Input.File.Encoding = "utf-16"
		if !hasIssue(t, ValidateRun(r), SeverityError, "input.file.encoding", "unsupported encoding") {
			t.Fatalf("expected error for unsupported encoding")
		}
	})

	t.Run("http input requires url", func(t *testing.T) {
		r := validRun()
		r.Input = Input{Kind: "http"}
		if !hasIssue(t, ValidateRun(r), SeverityError, "input.http.url", "non-empty url") {
			t.Fatalf("expected error for missing http url")
		}
	})

	t.Run("console input needs no path", func(t *testing.T) {
		r := validRun()
		r.Input = Input{Kind: "console"}
		if issues := ValidateRun(r); len(issues) != 0 {
			t.Fatalf("expected no issues for console input, got: %+v", issues)
		}
	})
}

func TestValidateRun_Output(t *testing.T) {
	t.Run("empty kind", func(t *testing.T) {
		r := validRun()
		r.Output.Kind = ""
		if !hasIssue(t, ValidateRun(r), SeverityError, "output.kind", "must not be empty") {
			t.Fatalf("expected error for empty output kind")
		}
	})

	t.Run("file output requires path", func(t *testing.T) {
		r := validRun()
		r.Output = Output{Kind: "file"}
		if !hasIssue(t, ValidateRun(r), SeverityError, "output.file.path", "non-empty path") {
			t.Fatalf("expected error for missing output path")
		}
	})
}

func TestValidateRun_Executor(t *testing.T) {
	for _, ok := range []string{"", "batch", "rat"} {
		r := validRun()
		r.Executor = ok
		if issues := validateExecutor(r.Executor); len(issues) != 0 {
			t.Fatalf("executor %q flagged: %+v", ok, issues)
		}
	}

	r := validRun()
	r.Executor = "parallel"
	if !hasIssue(t, ValidateRun(r), SeverityError, "executor", "unknown executor") {
		t.Fatalf("expected error for unknown executor")
	}
}

func TestValidateRun_Metrics(t *testing.T) {
	t.Run("prometheus requires pushgateway_url", func(t *testing.T) {
		r := validRun()
		r.Metrics = Metrics{Backend: "prometheus", Options: Options{}}
		if !hasIssue(t, ValidateRun(r), SeverityError, "metrics.options.pushgateway_url", "requires a pushgateway_url") {
			t.Fatalf("expected error for missing pushgateway_url")
		}

		r.Metrics.Options = Options{"pushgateway_url": "http://pg:9091"}
		if issues := ValidateRun(r); len(issues) != 0 {
			t.Fatalf("expected no issues, got: %+v", issues)
		}
	})

	t.Run("datadog requires statsd_addr", func(t *testing.T) {
		r := validRun()
		r.Metrics = Metrics{Backend: "datadog", Options: Options{}}
		if !hasIssue(t, ValidateRun(r), SeverityError, "metrics.options.statsd_addr", "requires a statsd_addr") {
			t.Fatalf("expected error for missing statsd_addr")
		}
	})

	t.Run("unknown backend warns", func(t *testing.T) {
		r := validRun()
		r.Metrics = Metrics{Backend: "graphite"}
		if !hasIssue(t, ValidateRun(r), SeverityWarning, "metrics.backend", "unknown metrics backend") {
			t.Fatalf("expected warning for unknown metrics backend")
		}
	})
}

func TestValidateRun_PipePathWarning(t *testing.T) {
	r := validRun()
	r.Pipe.Path = ""
	if !hasIssue(t, ValidateRun(r), SeverityWarning, "pipe.path", "no pipe file configured") {
		t.Fatalf("expected warning for missing pipe path")
	}
}
