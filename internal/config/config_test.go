package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Run decoding tests
// -----------------------------------------------------------------------------
//
// These tests validate that the top-level Run JSON structure decodes into the
// intended Go struct graph. The goal is to ensure the JSON schema used in run
// files (configs/runs/*.json) maps cleanly to the Go types. We prefer parsing
// from JSON strings here to keep tests hermetic and focused on the API surface
// rather than filesystem wiring.

func TestRun_DecodeRoundTrip(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job":  "payroll",
	  "pipe": { "path": "pipes/payroll.pipe" },
	  "input": {
	    "kind": "file",
	    "file": { "path": "testdata/in.txt", "encoding": "latin1" }
	  },
	  "output": {
	    "kind": "file",
	    "file": { "path": "out.txt" }
	  },
	  "executor": "rat",
	  "metrics": {
	    "backend": "prometheus",
	    "options": { "pushgateway_url": "http://pushgateway:9091", "job": "payroll" }
	  }
	}`

	r, err := LoadReader(strings.NewReader(js))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}

	want := Run{
		Job:  "payroll",
		Pipe: Pipe{Path: "pipes/payroll.pipe"},
		Input: Input{
			Kind: "file",
			File: InputFile{Path: "testdata/in.txt", Encoding: "latin1"},
		},
		Output: Output{
			Kind: "file",
			File: OutputFile{Path: "out.txt"},
		},
		Executor: "rat",
		Metrics: Metrics{
			Backend: "prometheus",
			Options: Options{"pushgateway_url": "http://pushgateway:9091", "job": "payroll"},
		},
	}
	if !reflect.DeepEqual(r, want) {
		t.Fatalf("decoded run = %+v, want %+v", r, want)
	}
}

func TestLoadReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	const js = `{ "job": "x", "storage": { "kind": "postgres" } }`
	if _, err := LoadReader(strings.NewReader(js)); err == nil {
		t.Fatalf("LoadReader() accepted an unknown top-level field")
	}
}

func TestLoad_FromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	const js = `{
	  "job":  "demo",
	  "pipe": { "path": "demo.pipe" },
	  "input":  { "kind": "console" },
	  "output": { "kind": "console" }
	}`
	if err := os.WriteFile(path, []byte(js), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Job != "demo" || r.Input.Kind != "console" || r.Output.Kind != "console" {
		t.Fatalf("loaded run = %+v", r)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("Load() of a missing file succeeded")
	}
}

// -----------------------------------------------------------------------------
// Options helper tests
// -----------------------------------------------------------------------------

func TestOptions_TypedAccess(t *testing.T) {
	t.Parallel()

	o := Options{
		"pushgateway_url": "http://pg:9091",
		"retries":         float64(3),
		"verbose":         true,
		"tags":            []any{"env:dev", "service:recpipe", 42},
	}

	if got := o.String("pushgateway_url", "def"); got != "http://pg:9091" {
		t.Fatalf("String() = %q", got)
	}
	if got := o.String("missing", "def"); got != "def" {
		t.Fatalf("String(missing) = %q, want default", got)
	}
	if got := o.Int("retries", 0); got != 3 {
		t.Fatalf("Int() = %d, want 3", got)
	}
	if got := o.Int("verbose", 7); got != 7 {
		t.Fatalf("Int(non-number) = %d, want default", got)
	}
	if !o.Bool("verbose", false) {
		t.Fatalf("Bool() = false, want true")
	}
	if got := o.StringSlice("tags"); !reflect.DeepEqual(got, []string{"env:dev", "service:recpipe"}) {
		t.Fatalf("StringSlice() = %v", got)
	}
	if got := o.StringSlice("missing"); got != nil {
		t.Fatalf("StringSlice(missing) = %v, want nil", got)
	}
}

func TestOptions_NullDecodesToEmptyMap(t *testing.T) {
	t.Parallel()

	var m Metrics
	if err := json.Unmarshal([]byte(`{"backend":"none","options":null}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Options == nil {
		t.Fatalf("null options decoded to nil map")
	}
	if got := m.Options.String("anything", "def"); got != "def" {
		t.Fatalf("String() on empty options = %q, want default", got)
	}
}
