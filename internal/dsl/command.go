// Package dsl parses the line-oriented pipeline language into an ordered
// multi-pipeline specification.
//
// The grammar, per line:
//
//	PIPE FILTER 18,10 = "SALES"
//	   | SELECT 0,8,0; 28,8,8
//	   | TAKE 10
//	?
//	READ other.data
//	   | LOCATE /ERROR/
//
//   - an optional leading `PIPE` keyword opens a pipeline (accepted and
//     stripped; a bare `PIPE` line is skipped)
//   - a leading `|` marks a continuation to the next stage
//   - `#` starts a comment line; blank lines are ignored
//   - a line consisting solely of `?` (or a trailing `?`) terminates the
//     current pipeline; further lines open the next one
//
// Keywords are case-insensitive. Column ranges are validated here, at parse
// time, so a bad range never reaches an executor.
package dsl

import "fmt"

// Kind enumerates the closed set of command variants. The set is fixed;
// stages are built by exhaustive switch, not by open registration.
type Kind int

const (
	// Source / sink boundary variants.
	KindConsole Kind = iota // console passthrough; source at head, sink at tail
	KindRead                // file source
	KindWrite               // file sink

	// 1:1 transforms.
	KindSelect
	KindChange
	KindUpper
	KindLower
	KindReverse

	// 1:0-or-1 conditionals.
	KindFilter
	KindLocate
	KindNLocate
	KindTake
	KindSkip

	// Fan-out, accumulate, inject, absorb.
	KindDuplicate
	KindCount
	KindLiteral
	KindHole
)

var kindNames = map[Kind]string{
	KindConsole:   "CONSOLE",
	KindRead:      "READ",
	KindWrite:     "WRITE",
	KindSelect:    "SELECT",
	KindChange:    "CHANGE",
	KindUpper:     "UPPER",
	KindLower:     "LOWER",
	KindReverse:   "REVERSE",
	KindFilter:    "FILTER",
	KindLocate:    "LOCATE",
	KindNLocate:   "NLOCATE",
	KindTake:      "TAKE",
	KindSkip:      "SKIP",
	KindDuplicate: "DUPLICATE",
	KindCount:     "COUNT",
	KindLiteral:   "LITERAL",
	KindHole:      "HOLE",
}

func (k Kind) String() string { return kindNames[k] }

// FieldCopy is one SELECT field movement: copy Len bytes from source offset
// Src into destination offset Dst of a fresh record.
type FieldCopy struct {
	Src, Len, Dst int
}

// Command is one parsed stage with only the parameters its variant needs.
type Command struct {
	Kind Kind

	// FILTER field and literal.
	Pos, Len int
	Value    string // FILTER literal, LITERAL text
	Negate   bool   // FILTER !=

	// LOCATE/NLOCATE needle, CHANGE from.
	Pattern string
	// CHANGE to.
	Replacement string

	// TAKE/SKIP bound, DUPLICATE copy count.
	N int

	// SELECT field movements.
	Fields []FieldCopy

	// READ/WRITE file path.
	Path string
}

// IsSource reports whether the command can head a pipeline.
func (c Command) IsSource() bool { return c.Kind == KindConsole || c.Kind == KindRead }

// IsSink reports whether the command can close a pipeline.
func (c Command) IsSink() bool { return c.Kind == KindConsole || c.Kind == KindWrite }

// Pipeline is one ordered stage chain with exactly one source and one sink.
// An empty Stages list is valid; the pipeline is then the identity.
type Pipeline struct {
	Source Command
	Stages []Command
	Sink   Command
}

// Spec is an ordered multi-pipeline specification. By default pipeline k's
// output becomes pipeline k+1's input; a WRITE sink breaks the chain and the
// next pipeline reads from its own declared source.
type Spec struct {
	Pipelines []Pipeline
}

// ParseError is a syntax error with the 1-based source line it occurred on.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}
