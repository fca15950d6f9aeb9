package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"recpipe/pkg/records"
)

// Terminator is the line that ends one pipeline inside a multi-pipeline
// specification.
const Terminator = "?"

// Parse converts DSL text into a multi-pipeline specification. The first
// syntax error aborts parsing and is returned as a *ParseError carrying the
// offending 1-based line number.
func Parse(text string) (*Spec, error) {
	p := &parser{}
	for i, raw := range strings.Split(text, "\n") {
		if err := p.line(i+1, raw); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return &Spec{Pipelines: p.pipelines}, nil
}

// ParseReader reads the full DSL text from r and parses it.
func ParseReader(r io.Reader) (*Spec, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pipeline text: %w", err)
	}
	return Parse(string(b))
}

type parser struct {
	pipelines []Pipeline
	cmds      []Command
	lines     []int // source line of each pending command, for late errors
}

func (p *parser) line(n int, raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	// Strip the PIPE opener; a bare PIPE line carries no command.
	if up := strings.ToUpper(line); up == "PIPE" {
		return nil
	} else if strings.HasPrefix(up, "PIPE ") {
		line = strings.TrimSpace(line[5:])
	}

	// Continuation marker.
	if strings.HasPrefix(line, "|") {
		line = strings.TrimSpace(line[1:])
	}

	// Pipeline terminator: sole `?` or trailing `?` after a stage.
	terminate := false
	if line == Terminator {
		return p.endPipeline(n)
	}
	if strings.HasSuffix(line, Terminator) {
		terminate = true
		line = strings.TrimSpace(strings.TrimSuffix(line, Terminator))
	}

	if line != "" {
		cmd, err := parseCommand(line)
		if err != nil {
			return &ParseError{Line: n, Msg: err.Error()}
		}
		p.cmds = append(p.cmds, cmd)
		p.lines = append(p.lines, n)
	}

	if terminate {
		return p.endPipeline(n)
	}
	return nil
}

// endPipeline closes the pending command list into a Pipeline. A terminator
// with no pending commands yields an identity pipeline (console to console).
func (p *parser) endPipeline(n int) error {
	pl, err := p.assemble()
	if err != nil {
		return err
	}
	p.pipelines = append(p.pipelines, pl)
	p.cmds = nil
	p.lines = nil
	return nil
}

// finish closes any trailing pipeline left open at end of input. Unlike an
// explicit terminator, trailing blank lines do not open a new pipeline.
func (p *parser) finish() error {
	if len(p.cmds) == 0 {
		return nil
	}
	last := p.lines[len(p.lines)-1]
	return p.endPipeline(last)
}

// assemble splits pending commands into source, stages, and sink, inserting
// an implicit CONSOLE at either end when the DSL leaves it out. A file
// source or sink in the middle of the chain is an error.
func (p *parser) assemble() (Pipeline, error) {
	cmds := p.cmds
	lines := p.lines

	pl := Pipeline{
		Source: Command{Kind: KindConsole},
		Sink:   Command{Kind: KindConsole},
	}
	if len(cmds) > 0 && cmds[0].Kind == KindRead {
		pl.Source = cmds[0]
		cmds = cmds[1:]
		lines = lines[1:]
	}
	if len(cmds) > 0 && cmds[len(cmds)-1].Kind == KindWrite {
		pl.Sink = cmds[len(cmds)-1]
		cmds = cmds[:len(cmds)-1]
		lines = lines[:len(lines)-1]
	}
	for i, c := range cmds {
		if c.Kind == KindRead || c.Kind == KindWrite {
			return Pipeline{}, &ParseError{
				Line: lines[i],
				Msg:  fmt.Sprintf("%s must be at the pipeline boundary, not between stages", c.Kind),
			}
		}
	}
	pl.Stages = cmds
	return pl, nil
}

// parseCommand parses one stage line: a case-insensitive keyword plus
// keyword-specific arguments.
func parseCommand(line string) (Command, error) {
	kw := line
	rest := ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		kw, rest = line[:i], strings.TrimSpace(line[i+1:])
	}

	switch strings.ToUpper(kw) {
	case "CONSOLE":
		return noArgs(KindConsole, rest)
	case "READ":
		return pathArg(KindRead, rest)
	case "WRITE":
		return pathArg(KindWrite, rest)
	case "FILTER":
		return parseFilter(rest)
	case "LOCATE":
		return parseLocate(KindLocate, rest)
	case "NLOCATE":
		return parseLocate(KindNLocate, rest)
	case "CHANGE":
		return parseChange(rest)
	case "SELECT":
		return parseSelect(rest)
	case "UPPER":
		return noArgs(KindUpper, rest)
	case "LOWER":
		return noArgs(KindLower, rest)
	case "REVERSE":
		return noArgs(KindReverse, rest)
	case "TAKE":
		return parseBound(KindTake, rest)
	case "SKIP":
		return parseBound(KindSkip, rest)
	case "DUPLICATE":
		return parseDuplicate(rest)
	case "COUNT":
		return noArgs(KindCount, rest)
	case "LITERAL":
		return parseLiteral(rest)
	case "HOLE":
		return noArgs(KindHole, rest)
	default:
		return Command{}, fmt.Errorf("unknown command %q", kw)
	}
}

func noArgs(k Kind, rest string) (Command, error) {
	if rest != "" {
		return Command{}, fmt.Errorf("%s takes no arguments, got %q", k, rest)
	}
	return Command{Kind: k}, nil
}

func pathArg(k Kind, rest string) (Command, error) {
	if rest == "" {
		return Command{}, fmt.Errorf("%s requires a file path", k)
	}
	return Command{Kind: k, Path: rest}, nil
}

// parseFilter parses `pos,len = "literal"` or `pos,len != "literal"`.
func parseFilter(rest string) (Command, error) {
	var fieldPart, valuePart string
	negate := false
	if i := strings.Index(rest, "!="); i >= 0 {
		fieldPart, valuePart, negate = rest[:i], rest[i+2:], true
	} else if i := strings.Index(rest, "="); i >= 0 {
		fieldPart, valuePart = rest[:i], rest[i+1:]
	} else {
		return Command{}, fmt.Errorf("FILTER requires = or != operator")
	}

	pos, length, err := parseRange(strings.TrimSpace(fieldPart))
	if err != nil {
		return Command{}, fmt.Errorf("FILTER field: %w", err)
	}
	value, err := parseQuoted(strings.TrimSpace(valuePart))
	if err != nil {
		return Command{}, fmt.Errorf("FILTER value: %w", err)
	}
	return Command{Kind: KindFilter, Pos: pos, Len: length, Value: value, Negate: negate}, nil
}

// parseLocate parses a delimited pattern, e.g. /needle/ with any
// non-alphanumeric delimiter character.
func parseLocate(k Kind, rest string) (Command, error) {
	parts, err := splitPattern(rest, 1)
	if err != nil {
		return Command{}, fmt.Errorf("%s: %w", k, err)
	}
	if parts[0] == "" {
		return Command{}, fmt.Errorf("%s: empty search pattern", k)
	}
	return Command{Kind: k, Pattern: parts[0]}, nil
}

// parseChange parses /from/to/ with any non-alphanumeric delimiter.
func parseChange(rest string) (Command, error) {
	parts, err := splitPattern(rest, 2)
	if err != nil {
		return Command{}, fmt.Errorf("CHANGE: %w", err)
	}
	if parts[0] == "" {
		return Command{}, fmt.Errorf("CHANGE: empty search pattern")
	}
	return Command{Kind: KindChange, Pattern: parts[0], Replacement: parts[1]}, nil
}

// parseSelect parses `s,l,d; s,l,d; ...` field movements, validating both
// the source and destination ranges against the record width.
func parseSelect(rest string) (Command, error) {
	var fields []FieldCopy
	for _, spec := range strings.Split(rest, ";") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		parts := strings.Split(spec, ",")
		if len(parts) != 3 {
			return Command{}, fmt.Errorf("SELECT field %q requires src,len,dest", spec)
		}
		src, err := parseNonNeg(parts[0])
		if err != nil {
			return Command{}, fmt.Errorf("SELECT source offset in %q: %w", spec, err)
		}
		length, err := parseNonNeg(parts[1])
		if err != nil {
			return Command{}, fmt.Errorf("SELECT length in %q: %w", spec, err)
		}
		dst, err := parseNonNeg(parts[2])
		if err != nil {
			return Command{}, fmt.Errorf("SELECT destination offset in %q: %w", spec, err)
		}
		if err := records.CheckRange(src, length); err != nil {
			return Command{}, fmt.Errorf("SELECT source range %q: %w", spec, err)
		}
		if err := records.CheckRange(dst, length); err != nil {
			return Command{}, fmt.Errorf("SELECT destination range %q: %w", spec, err)
		}
		fields = append(fields, FieldCopy{Src: src, Len: length, Dst: dst})
	}
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("SELECT requires at least one field specification")
	}
	return Command{Kind: KindSelect, Fields: fields}, nil
}

func parseBound(k Kind, rest string) (Command, error) {
	n, err := parseNonNeg(rest)
	if err != nil {
		return Command{}, fmt.Errorf("%s: %w", k, err)
	}
	return Command{Kind: k, N: n}, nil
}

// parseDuplicate parses an optional copy count, defaulting to 2. Fewer than
// 2 copies would make DUPLICATE a passthrough or a drop, so it is rejected.
func parseDuplicate(rest string) (Command, error) {
	if rest == "" {
		return Command{Kind: KindDuplicate, N: 2}, nil
	}
	n, err := parseNonNeg(rest)
	if err != nil {
		return Command{}, fmt.Errorf("DUPLICATE: %w", err)
	}
	if n < 2 {
		return Command{}, fmt.Errorf("DUPLICATE count must be at least 2, got %d", n)
	}
	return Command{Kind: KindDuplicate, N: n}, nil
}

func parseLiteral(rest string) (Command, error) {
	text, err := parseQuoted(rest)
	if err != nil {
		return Command{}, fmt.Errorf("LITERAL: %w", err)
	}
	return Command{Kind: KindLiteral, Value: text}, nil
}

// parseRange parses `pos,len` and validates it against the record width.
func parseRange(s string) (pos, length int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want pos,len, got %q", s)
	}
	if pos, err = parseNonNeg(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("position: %w", err)
	}
	if length, err = parseNonNeg(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("length: %w", err)
	}
	if err = records.CheckRange(pos, length); err != nil {
		return 0, 0, err
	}
	return pos, length, nil
}

func parseNonNeg(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("number %d must not be negative", n)
	}
	return n, nil
}

// parseQuoted parses a double-quoted string. The quotes are mandatory; the
// content may be empty.
func parseQuoted(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("value must be double-quoted, got %q", s)
	}
	return s[1 : len(s)-1], nil
}

// splitPattern parses `<d>part<d>[part<d>]` where <d> is the author-chosen
// delimiter: the first character, which must be non-alphanumeric.
func splitPattern(s string, parts int) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("missing pattern")
	}
	delim := s[0]
	if isAlnum(delim) {
		return nil, fmt.Errorf("pattern delimiter %q must not be alphanumeric", string(delim))
	}
	rest := s[1:]
	out := make([]string, 0, parts)
	for i := 0; i < parts; i++ {
		j := strings.IndexByte(rest, delim)
		if j < 0 {
			return nil, fmt.Errorf("unterminated pattern, expected closing %q", string(delim))
		}
		out = append(out, rest[:j])
		rest = rest[j+1:]
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("unexpected text after pattern: %q", rest)
	}
	return out, nil
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
