package exec

import (
	"recpipe/internal/stage"
	"recpipe/pkg/records"
)

// RecordTrace is one input record's full journey: for S stages, S+1 pipe
// points. PipePoints[0] holds the input record itself; PipePoints[i+1]
// holds whatever is in flight after stage i (possibly empty if filtered,
// possibly several records after a fan-out).
type RecordTrace struct {
	PipePoints [][]records.Record
}

// FlushTrace is one stage's end-of-input emission and its journey through
// the remaining chain. PipePoints[0] sits at the boundary just after the
// flushing stage (absolute pipe point StageIndex+1); PipePoints[k] is the
// state after k further downstream stages.
type FlushTrace struct {
	StageIndex int
	PipePoints [][]records.Record
}

// Trace is the full step-by-step execution record the debugger consumes.
type Trace struct {
	StageNames   []string
	RecordTraces []RecordTrace
	FlushTraces  []FlushTrace
	Output       []records.Record
}

// RunRAT evaluates the chain record by record: each input record's entire
// journey, fan-out included, completes before the next record is admitted.
// Flushes follow, in declaration order, threaded through the downstream
// stages like ordinary records.
func RunRAT(in []records.Record, stages []stage.Stage) []records.Record {
	return RunRATTrace(in, stages).Output
}

// RunRATTrace runs the record-at-a-time executor and captures every pipe
// point along the way.
func RunRATTrace(in []records.Record, stages []stage.Stage) *Trace {
	tr := &Trace{StageNames: stage.Names(stages)}

	for _, r := range in {
		rt := RecordTrace{PipePoints: make([][]records.Record, 0, len(stages)+1)}
		frontier := []records.Record{r}
		rt.PipePoints = append(rt.PipePoints, snapshot(frontier))
		for _, st := range stages {
			frontier = stepAll(st, frontier)
			rt.PipePoints = append(rt.PipePoints, snapshot(frontier))
		}
		tr.RecordTraces = append(tr.RecordTraces, rt)
		tr.Output = append(tr.Output, frontier...)
	}

	for i := range stages {
		fl := stages[i].Flush()
		if len(fl) == 0 {
			continue
		}
		ft := FlushTrace{StageIndex: i}
		ft.PipePoints = append(ft.PipePoints, snapshot(fl))
		for _, st := range stages[i+1:] {
			fl = stepAll(st, fl)
			ft.PipePoints = append(ft.PipePoints, snapshot(fl))
		}
		tr.FlushTraces = append(tr.FlushTraces, ft)
		tr.Output = append(tr.Output, fl...)
	}

	return tr
}

// StageCount returns S, the number of stages the trace was captured over.
func (t *Trace) StageCount() int { return len(t.StageNames) }

// snapshot copies a frontier so later stage mutations can't alias into the
// stored trace.
func snapshot(recs []records.Record) []records.Record {
	out := make([]records.Record, len(recs))
	copy(out, recs)
	return out
}
