package exec

import (
	"fmt"
	"time"

	"recpipe/internal/dsl"
	"recpipe/internal/metrics"
	"recpipe/internal/stage"
	"recpipe/pkg/records"
)

// Mode selects the evaluation strategy. The two are semantically
// interchangeable; batch is the default, rat exists for stepping and for
// the equivalence property.
type Mode string

const (
	ModeBatch Mode = "batch"
	ModeRAT   Mode = "rat"
)

// SourceFunc materializes the input records for a pipeline's declared
// source command. Source resolution (console vs. file, path handling) is
// the caller's concern; the executor only consumes the result.
type SourceFunc func(cmd dsl.Command) ([]records.Record, error)

// SinkFunc delivers a pipeline's output to its declared external sink.
// It is invoked for WRITE sinks only; console output is returned to the
// caller or handed to the next pipeline.
type SinkFunc func(cmd dsl.Command, recs []records.Record) error

// RunSpec executes a multi-pipeline specification. Pipeline k+1 consumes
// pipeline k's output unless k ends in an external WRITE sink, in which
// case k+1 materializes its own declared source. The returned records are
// the last pipeline's console output (nil if it wrote to a file).
func RunSpec(spec *dsl.Spec, mode Mode, source SourceFunc, sink SinkFunc) ([]records.Record, error) {
	var (
		carry      []records.Record
		carryValid bool
		out        []records.Record
	)
	for i, pl := range spec.Pipelines {
		in := carry
		if !carryValid {
			var err error
			if in, err = source(pl.Source); err != nil {
				return nil, fmt.Errorf("pipeline %d: source: %w", i+1, err)
			}
		}

		stages, err := stage.BuildChain(pl.Stages)
		if err != nil {
			return nil, fmt.Errorf("pipeline %d: %w", i+1, err)
		}

		start := time.Now()
		switch mode {
		case ModeRAT:
			out = RunRAT(in, stages)
		default:
			out = RunBatch(in, stages)
		}
		if pl.Sink.Kind == dsl.KindWrite {
			err := sink(pl.Sink, out)
			metrics.RecordRun(fmt.Sprint(i+1), len(in), len(out), err, time.Since(start))
			if err != nil {
				return nil, fmt.Errorf("pipeline %d: sink: %w", i+1, err)
			}
			carryValid = false
			out = nil
		} else {
			metrics.RecordRun(fmt.Sprint(i+1), len(in), len(out), nil, time.Since(start))
			carry = out
			carryValid = true
		}
	}
	return out, nil
}
