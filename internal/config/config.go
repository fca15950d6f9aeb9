// Package config defines the canonical, JSON-serializable configuration model
// for a pipe run. It is intentionally small, explicit, and dependency-free so
// that run definitions can be loaded from disk (or other sources) and passed
// through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in run
//     files under configs/runs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by the
//     standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job":    "payroll",
//	  "pipe":   { "path": "pipes/payroll.pipe" },
//	  "input":  { "kind": "file", "file": { "path": "in.txt", "encoding": "ascii" } },
//	  "output": { "kind": "file", "file": { "path": "out.txt" } },
//	  "executor": "batch",
//	  "metrics":  { "backend": "prometheus", "options": { "pushgateway_url": "http://pg:9091" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Run describes one full pipe invocation in JSON. It is the top-level object
// decoded from a run file (e.g., configs/runs/*.json).
type Run struct {
	// Job names the run; it is used for metrics labeling and identifying runs.
	Job string `json:"job"`

	// Pipe locates the pipeline definition text.
	Pipe Pipe `json:"pipe"`

	// Input describes where the input records come from when the first
	// pipeline reads from the console boundary.
	Input Input `json:"input"`

	// Output describes where console output of the last pipeline goes.
	Output Output `json:"output"`

	// Executor selects the evaluation strategy: "batch" (default) or "rat".
	Executor string `json:"executor"`

	// Metrics configures the optional metrics backend.
	Metrics Metrics `json:"metrics"`
}

// Pipe locates the pipeline definition.
type Pipe struct {
	// Path is the local filesystem path to the pipe file. Empty means the
	// definition is supplied inline (e.g., on the command line or via the
	// web UI) rather than from disk.
	Path string `json:"path"`
}

// Input identifies the record source. Additional kinds can be added over time.
type Input struct {
	// Kind selects the source implementation. Current values: "file",
	// "console", "http".
	Kind string `json:"kind"`

	// File carries options for the "file" input kind.
	File InputFile `json:"file"`

	// HTTP carries options for the "http" input kind.
	HTTP InputHTTP `json:"http"`
}

// InputFile holds configuration for the "file" input kind.
type InputFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`

	// Encoding names the byte encoding of the input file. Supported values:
	// "ascii" (default), "latin1", "ebcdic". Anything decoded must still fit
	// the 80-byte ASCII record model after transformation.
	Encoding string `json:"encoding"`
}

// InputHTTP holds configuration for the "http" input kind.
type InputHTTP struct {
	// URL is fetched with GET; the body is treated like a record file.
	URL string `json:"url"`

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `json:"max_retries"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// Output identifies the record sink for the final console boundary.
type Output struct {
	// Kind selects the sink implementation. Current values: "file", "console".
	Kind string `json:"kind"`

	// File carries options for the "file" output kind.
	File OutputFile `json:"file"`
}

// OutputFile holds configuration for the "file" output kind.
type OutputFile struct {
	// Path is the local filesystem path the output is written to.
	Path string `json:"path"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	// Backend selects the implementation: "none" (default), "prometheus",
	// "datadog".
	Backend string `json:"backend"`

	// Options is a free-form map interpreted by the selected backend.
	// For "prometheus", typical keys: pushgateway_url (string), job (string).
	// For "datadog", typical keys: statsd_addr (string), namespace (string).
	Options Options `json:"options"`
}

// Load reads and decodes a run file from disk.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	r, err := LoadReader(f)
	if err != nil {
		return Run{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return r, nil
}

// LoadReader decodes a run definition from r.
func LoadReader(rd io.Reader) (Run, error) {
	var r Run
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
//
// Options is used for backend-specific configuration where the shape varies
// by implementation.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
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

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
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
