// Package exec evaluates a stage chain over a record set.
//
// Two interchangeable strategies exist. RunBatch drives the entire record
// set through one stage at a time; RunRAT drives one record through the
// entire chain before admitting the next. For every chain and every input
// the two produce byte-identical output in identical order; the test suite
// asserts this equivalence across all command variants, including fan-out
// and flush-bearing stages.
//
// End-of-input flushes run in declaration order, and a flush's emission is
// threaded through the remaining downstream stages with the same Step logic
// as an ordinary record. Flush output is never exempt from downstream
// transformation.
package exec

import (
	"recpipe/internal/stage"
	"recpipe/pkg/records"
)

// RunBatch evaluates the chain stage by stage: the full input sequence
// through stage 1, the collected result through stage 2, and so on. After
// every stage has seen the whole stream, each stage flushes in declaration
// order and its emission passes through the stages after it.
func RunBatch(in []records.Record, stages []stage.Stage) []records.Record {
	cur := in
	for _, st := range stages {
		cur = stepAll(st, cur)
	}
	out := append([]records.Record(nil), cur...)
	for i := range stages {
		fl := stages[i].Flush()
		for _, st := range stages[i+1:] {
			fl = stepAll(st, fl)
		}
		out = append(out, fl...)
	}
	return out
}

func stepAll(st stage.Stage, in []records.Record) []records.Record {
	var out []records.Record
	for _, r := range in {
		out = append(out, st.Step(r)...)
	}
	return out
}
