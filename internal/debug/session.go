// Package debug implements the stepping state machine over a record-at-a-time
// execution trace.
//
// A Session is an explicit finite-state record (current position, watch list,
// breakpoint list, paused flag) that advances via state-transition methods.
// It is not an independent executor: the trace it walks is captured by
// exec.RunRATTrace, so every observation a Session reports is exactly what
// the record-at-a-time executor produced at that pipe point. A Session is
// owned by a single caller; it is not safe for concurrent use.
package debug

import (
	"fmt"
	"sort"

	"recpipe/internal/exec"
	"recpipe/internal/stage"
	"recpipe/pkg/records"
)

// Phase names the four stepping states.
type Phase int

const (
	NotStarted Phase = iota
	AtPipePoint
	AtFlush
	Finished
)

var phaseNames = map[Phase]string{
	NotStarted:  "not-started",
	AtPipePoint: "at-pipe-point",
	AtFlush:     "at-flush",
	Finished:    "finished",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// PositionError reports a watch or breakpoint position outside 0..S.
type PositionError struct {
	Position int
	Stages   int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position %d out of range: pipeline has pipe points 0..%d", e.Position, e.Stages)
}

// WatchValue is one watch's report at the current state: the record set
// occupying the watched boundary, or Reached=false when nothing has
// arrived there yet in the current journey.
type WatchValue struct {
	Position int
	Reached  bool
	Records  []records.Record
}

// State is the externally visible snapshot returned by every transition.
type State struct {
	Phase Phase

	// RecordIndex/FlushIndex identify the journey being observed; only one
	// is meaningful, selected by Phase.
	RecordIndex int
	FlushIndex  int

	// PipePoint is the absolute boundary position, 0..S. Boundary 0 is
	// before the first stage, boundary S after the last.
	PipePoint int

	// Paused is set only when Run stopped at a breakpoint; a plain Step
	// arriving at the same position leaves it clear.
	Paused bool

	// Label is a human-readable position, e.g. "Record 2 of 5".
	Label string

	Records []records.Record
	Watches []WatchValue
}

// Session walks a precomputed trace one pipe point at a time.
type Session struct {
	trace *exec.Trace
	m     int // input record count

	phase Phase
	rec   int // current record index, phase AtPipePoint
	flush int // current flush-trace index, phase AtFlush
	pp    int // pipe-point index within the current journey

	paused      bool
	watches     []int
	breakpoints []int
}

// NewSession runs the record-at-a-time executor over the given input and
// stage chain and captures the full trace. The session starts in
// NotStarted; Initialize (or the first Step or Run) moves to the first
// pipe point of the first record, or directly into the flush phase (or
// Finished) when the input is empty.
func NewSession(in []records.Record, stages []stage.Stage) *Session {
	s := &Session{}
	s.load(in, stages)
	return s
}

func (s *Session) load(in []records.Record, stages []stage.Stage) {
	s.trace = exec.RunRATTrace(in, stages)
	s.m = len(in)
	s.phase = NotStarted
	s.paused = false
	s.pp, s.rec, s.flush = 0, 0, 0
}

// Initialize moves from NotStarted to the first observable position. On a
// session that is already under way it is a no-op.
func (s *Session) Initialize() State {
	if s.phase == NotStarted {
		s.rewind()
	}
	return s.State()
}

// rewind places the session at the initial position without touching
// watches or breakpoints.
func (s *Session) rewind() {
	s.paused = false
	s.pp = 0
	s.rec = 0
	s.flush = 0
	switch {
	case s.m > 0:
		s.phase = AtPipePoint
	case len(s.trace.FlushTraces) > 0:
		s.phase = AtFlush
	default:
		s.phase = Finished
	}
}

// StageCount returns S, the number of stages in the current pipeline.
func (s *Session) StageCount() int { return s.trace.StageCount() }

// Output returns the complete run output, identical to the batch executor's.
func (s *Session) Output() []records.Record { return s.trace.Output }

// State returns the current snapshot without advancing.
func (s *Session) State() State {
	st := State{
		Phase:       s.phase,
		RecordIndex: s.rec,
		FlushIndex:  s.flush,
		Paused:      s.paused,
		Watches:     s.watchValues(),
	}
	switch s.phase {
	case NotStarted:
		st.Label = "not started"
	case AtPipePoint:
		st.PipePoint = s.pp
		st.Label = fmt.Sprintf("Record %d of %d", s.rec+1, s.m)
		st.Records = s.trace.RecordTraces[s.rec].PipePoints[s.pp]
	case AtFlush:
		ft := s.trace.FlushTraces[s.flush]
		st.PipePoint = ft.StageIndex + 1 + s.pp
		st.Label = fmt.Sprintf("Flush %d of %d", s.flush+1, len(s.trace.FlushTraces))
		st.Records = ft.PipePoints[s.pp]
	case Finished:
		st.PipePoint = s.trace.StageCount()
		st.Label = "finished"
	}
	return st
}

// Step advances exactly one pipe point, ignoring breakpoints. Stepping a
// finished session is a no-op.
func (s *Session) Step() State {
	s.paused = false
	s.advance()
	return s.State()
}

// Run repeatedly advances until a configured breakpoint position is
// reached, setting the paused flag, or until Finished. Resuming from a
// paused state first moves off the current breakpoint.
func (s *Session) Run() State {
	s.paused = false
	for s.phase != Finished {
		s.advance()
		if s.phase != Finished && s.atBreakpoint() {
			s.paused = true
			break
		}
	}
	return s.State()
}

// Reset returns to the initial position, keeping watches and breakpoints
// and clearing any paused flag.
func (s *Session) Reset() State {
	s.rewind()
	return s.State()
}

// Reinitialize replaces the pipeline and input, re-running the trace.
// Watches and breakpoints whose position exceeds the new stage count are
// discarded; the rest survive.
func (s *Session) Reinitialize(in []records.Record, stages []stage.Stage) State {
	s.load(in, stages)
	max := s.trace.StageCount()
	s.watches = prune(s.watches, max)
	s.breakpoints = prune(s.breakpoints, max)
	s.rewind()
	return s.State()
}

// AddWatch subscribes to a pipe-point position. Positions run 0..S.
func (s *Session) AddWatch(position int) error {
	if err := s.checkPosition(position); err != nil {
		return err
	}
	s.watches = insert(s.watches, position)
	return nil
}

// AddBreakpoint marks a pipe-point position for Run to stop at.
func (s *Session) AddBreakpoint(position int) error {
	if err := s.checkPosition(position); err != nil {
		return err
	}
	s.breakpoints = insert(s.breakpoints, position)
	return nil
}

// RemoveWatch drops a watch; unknown positions are ignored.
func (s *Session) RemoveWatch(position int) {
	s.watches = remove(s.watches, position)
}

// RemoveBreakpoint drops a breakpoint; unknown positions are ignored.
func (s *Session) RemoveBreakpoint(position int) {
	s.breakpoints = remove(s.breakpoints, position)
}

// Watches returns the configured watch positions in ascending order.
func (s *Session) Watches() []int { return append([]int(nil), s.watches...) }

// Breakpoints returns the configured breakpoint positions in ascending order.
func (s *Session) Breakpoints() []int { return append([]int(nil), s.breakpoints...) }

func (s *Session) checkPosition(position int) error {
	if position < 0 || position > s.trace.StageCount() {
		return &PositionError{Position: position, Stages: s.trace.StageCount()}
	}
	return nil
}

// advance moves one pipe point forward. The traversal order is: every
// record's S+1 pipe points in input order, then every flush trace's pipe
// points in declaration order.
func (s *Session) advance() {
	switch s.phase {
	case NotStarted:
		s.rewind()
	case AtPipePoint:
		if s.pp < s.trace.StageCount() {
			s.pp++
			return
		}
		if s.rec+1 < s.m {
			s.rec++
			s.pp = 0
			return
		}
		s.enterFlush()
	case AtFlush:
		ft := s.trace.FlushTraces[s.flush]
		if s.pp+1 < len(ft.PipePoints) {
			s.pp++
			return
		}
		if s.flush+1 < len(s.trace.FlushTraces) {
			s.flush++
			s.pp = 0
			return
		}
		s.phase = Finished
	}
}

func (s *Session) enterFlush() {
	s.pp = 0
	s.flush = 0
	if len(s.trace.FlushTraces) > 0 {
		s.phase = AtFlush
	} else {
		s.phase = Finished
	}
}

// atBreakpoint reports whether the current absolute pipe-point position
// carries a breakpoint.
func (s *Session) atBreakpoint() bool {
	pos := s.absolutePosition()
	for _, b := range s.breakpoints {
		if b == pos {
			return true
		}
	}
	return false
}

func (s *Session) absolutePosition() int {
	switch s.phase {
	case AtPipePoint:
		return s.pp
	case AtFlush:
		return s.trace.FlushTraces[s.flush].StageIndex + 1 + s.pp
	default:
		return -1
	}
}

// watchValues reports, for each watched boundary, the record set the
// current journey has placed there. A boundary the journey has not yet
// reached (or that sits upstream of a flushing stage) reports Reached=false.
func (s *Session) watchValues() []WatchValue {
	if len(s.watches) == 0 {
		return nil
	}
	out := make([]WatchValue, 0, len(s.watches))
	for _, pos := range s.watches {
		wv := WatchValue{Position: pos}
		switch s.phase {
		case AtPipePoint:
			if pos <= s.pp {
				wv.Reached = true
				wv.Records = s.trace.RecordTraces[s.rec].PipePoints[pos]
			}
		case AtFlush:
			ft := s.trace.FlushTraces[s.flush]
			k := pos - (ft.StageIndex + 1)
			if k >= 0 && k <= s.pp {
				wv.Reached = true
				wv.Records = ft.PipePoints[k]
			}
		}
		out = append(out, wv)
	}
	return out
}

func insert(positions []int, p int) []int {
	for _, q := range positions {
		if q == p {
			return positions
		}
	}
	positions = append(positions, p)
	sort.Ints(positions)
	return positions
}

func remove(positions []int, p int) []int {
	out := positions[:0]
	for _, q := range positions {
		if q != p {
			out = append(out, q)
		}
	}
	return out
}

func prune(positions []int, max int) []int {
	out := positions[:0]
	for _, q := range positions {
		if q <= max {
			out = append(out, q)
		}
	}
	return out
}
