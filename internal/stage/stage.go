// Package stage binds parsed commands to runtime state.
//
// A Stage realizes one command variant's cardinality contract: Step takes
// one record and returns zero or more output records; Flush is called once,
// after the last input record has fully exited the stage's position in the
// chain, and may emit trailing output (COUNT's summary, LITERAL's line when
// no input ever arrived).
//
// Stateful variants (TAKE, SKIP, COUNT, LITERAL) own private counters that
// persist across calls within one pipeline execution. State is never shared
// across executions: Build constructs a fresh instance per run.
package stage

import (
	"fmt"
	"strconv"
	"strings"

	"recpipe/internal/dsl"
	"recpipe/pkg/records"
)

// Stage is one command bound to runtime state.
type Stage interface {
	// Name identifies the stage for traces, logs, and metrics labels.
	Name() string

	// Step processes one record and returns its outputs in order. For a
	// fixed arrival order the result is fully determined by the stage's
	// accumulated state and the input record.
	Step(r records.Record) []records.Record

	// Flush emits any trailing output after end of input. Most variants
	// return nil.
	Flush() []records.Record
}

// Build constructs a fresh stage instance for one command.
func Build(cmd dsl.Command) (Stage, error) {
	switch cmd.Kind {
	case dsl.KindConsole:
		return passthrough{}, nil
	case dsl.KindFilter:
		return &filter{pos: cmd.Pos, length: cmd.Len, value: cmd.Value, negate: cmd.Negate}, nil
	case dsl.KindLocate:
		return &locate{needle: cmd.Pattern}, nil
	case dsl.KindNLocate:
		return &locate{needle: cmd.Pattern, negate: true}, nil
	case dsl.KindChange:
		return &change{from: cmd.Pattern, to: cmd.Replacement}, nil
	case dsl.KindSelect:
		return &sel{fields: cmd.Fields}, nil
	case dsl.KindUpper:
		return caseMap{upper: true}, nil
	case dsl.KindLower:
		return caseMap{}, nil
	case dsl.KindReverse:
		return reverse{}, nil
	case dsl.KindTake:
		return &take{n: cmd.N}, nil
	case dsl.KindSkip:
		return &skip{n: cmd.N}, nil
	case dsl.KindDuplicate:
		return &duplicate{n: cmd.N}, nil
	case dsl.KindCount:
		return &count{}, nil
	case dsl.KindLiteral:
		return &literal{line: records.New(cmd.Value)}, nil
	case dsl.KindHole:
		return hole{}, nil
	default:
		return nil, fmt.Errorf("command %v cannot run as a stage", cmd.Kind)
	}
}

// BuildChain constructs fresh stages for an ordered command list.
func BuildChain(cmds []dsl.Command) ([]Stage, error) {
	stages := make([]Stage, 0, len(cmds))
	for i, c := range cmds {
		st, err := Build(c)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// Names returns the stage names in chain order.
func Names(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name()
	}
	return names
}

// passthrough echoes records unchanged. CONSOLE between two stages behaves
// this way; at the pipeline boundary the runner handles the actual IO.
type passthrough struct{}

func (passthrough) Name() string                           { return "CONSOLE" }
func (passthrough) Step(r records.Record) []records.Record { return []records.Record{r} }
func (passthrough) Flush() []records.Record                { return nil }

// filter keeps records whose field matches (or, negated, fails to match) a
// literal, comparing with blanks trimmed on both sides.
type filter struct {
	pos, length int
	value       string
	negate      bool
}

func (f *filter) Name() string {
	op := "="
	if f.negate {
		op = "!="
	}
	return fmt.Sprintf("FILTER %d,%d %s %q", f.pos, f.length, op, f.value)
}

func (f *filter) Step(r records.Record) []records.Record {
	if r.FieldEq(f.pos, f.length, f.value) != f.negate {
		return []records.Record{r}
	}
	return nil
}

func (f *filter) Flush() []records.Record { return nil }

// locate keeps records containing a substring anywhere in the 80 bytes;
// negated it keeps the non-matches (NLOCATE).
type locate struct {
	needle string
	negate bool
}

func (l *locate) Name() string {
	if l.negate {
		return fmt.Sprintf("NLOCATE /%s/", l.needle)
	}
	return fmt.Sprintf("LOCATE /%s/", l.needle)
}

func (l *locate) Step(r records.Record) []records.Record {
	if r.Contains(l.needle) != l.negate {
		return []records.Record{r}
	}
	return nil
}

func (l *locate) Flush() []records.Record { return nil }

// change replaces the first occurrence of a substring across the whole
// record, then re-pads the result to 80 bytes. Only the first occurrence is
// replaced; records without the substring pass unchanged.
type change struct {
	from, to string
}

func (c *change) Name() string { return fmt.Sprintf("CHANGE /%s/%s/", c.from, c.to) }

func (c *change) Step(r records.Record) []records.Record {
	s := r.String()
	if !strings.Contains(s, c.from) {
		return []records.Record{r}
	}
	return []records.Record{records.New(strings.Replace(s, c.from, c.to, 1))}
}

func (c *change) Flush() []records.Record { return nil }

// sel builds a fresh record from field movements, leaving unused
// destination columns blank.
type sel struct {
	fields []dsl.FieldCopy
}

func (s *sel) Name() string { return fmt.Sprintf("SELECT %d fields", len(s.fields)) }

func (s *sel) Step(r records.Record) []records.Record {
	out := records.Blank()
	for _, f := range s.fields {
		out.SetField(f.Dst, f.Len, r.Field(f.Src, f.Len))
	}
	return []records.Record{out}
}

func (s *sel) Flush() []records.Record { return nil }

// caseMap maps the record to upper or lower case. ASCII only, so the
// mapping never changes the record width.
type caseMap struct {
	upper bool
}

func (c caseMap) Name() string {
	if c.upper {
		return "UPPER"
	}
	return "LOWER"
}

func (c caseMap) Step(r records.Record) []records.Record {
	s := r.String()
	if c.upper {
		s = strings.ToUpper(s)
	} else {
		s = strings.ToLower(s)
	}
	return []records.Record{records.New(s)}
}

func (c caseMap) Flush() []records.Record { return nil }

// reverse mirrors the record's content up to the last non-blank column,
// keeping the blank padding on the right.
type reverse struct{}

func (reverse) Name() string { return "REVERSE" }

func (reverse) Step(r records.Record) []records.Record {
	t := []byte(r.Trimmed())
	for i, j := 0, len(t)-1; i < j; i, j = i+1, j-1 {
		t[i], t[j] = t[j], t[i]
	}
	return []records.Record{records.New(string(t))}
}

func (reverse) Flush() []records.Record { return nil }

// take passes the first n records that reach it and drops the rest.
type take struct {
	n      int
	passed int
}

func (t *take) Name() string { return fmt.Sprintf("TAKE %d", t.n) }

func (t *take) Step(r records.Record) []records.Record {
	if t.passed < t.n {
		t.passed++
		return []records.Record{r}
	}
	return nil
}

func (t *take) Flush() []records.Record { return nil }

// skip drops the first n records that reach it and passes the rest.
type skip struct {
	n       int
	skipped int
}

func (s *skip) Name() string { return fmt.Sprintf("SKIP %d", s.n) }

func (s *skip) Step(r records.Record) []records.Record {
	if s.skipped < s.n {
		s.skipped++
		return nil
	}
	return []records.Record{r}
}

func (s *skip) Flush() []records.Record { return nil }

// duplicate emits n identical copies of each input record.
type duplicate struct {
	n int
}

func (d *duplicate) Name() string { return fmt.Sprintf("DUPLICATE %d", d.n) }

func (d *duplicate) Step(r records.Record) []records.Record {
	out := make([]records.Record, d.n)
	for i := range out {
		out[i] = r
	}
	return out
}

func (d *duplicate) Flush() []records.Record { return nil }

// count absorbs every record and emits one summary record at end of input:
// the decimal count, left-justified.
type count struct {
	n int
}

func (c *count) Name() string { return "COUNT" }

func (c *count) Step(records.Record) []records.Record {
	c.n++
	return nil
}

func (c *count) Flush() []records.Record {
	return []records.Record{records.New(strconv.Itoa(c.n))}
}

// literal injects its line once, ahead of the first record that reaches it.
// If no record ever arrives the line is emitted at flush instead, so the
// literal is never lost on empty input.
type literal struct {
	line    records.Record
	emitted bool
}

func (l *literal) Name() string { return fmt.Sprintf("LITERAL %q", l.line.Trimmed()) }

func (l *literal) Step(r records.Record) []records.Record {
	if !l.emitted {
		l.emitted = true
		return []records.Record{l.line, r}
	}
	return []records.Record{r}
}

func (l *literal) Flush() []records.Record {
	if !l.emitted {
		l.emitted = true
		return []records.Record{l.line}
	}
	return nil
}

// hole absorbs everything.
type hole struct{}

func (hole) Name() string                            { return "HOLE" }
func (hole) Step(records.Record) []records.Record    { return nil }
func (hole) Flush() []records.Record                 { return nil }
