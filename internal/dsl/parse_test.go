package dsl

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func parseOne(t *testing.T, text string) Pipeline {
	t.Helper()
	spec, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	if len(spec.Pipelines) != 1 {
		t.Fatalf("got %d pipelines, want 1", len(spec.Pipelines))
	}
	return spec.Pipelines[0]
}

func TestParseFilterEq(t *testing.T) {
	pl := parseOne(t, `FILTER 18,10 = "SALES"`)
	want := Command{Kind: KindFilter, Pos: 18, Len: 10, Value: "SALES"}
	if !reflect.DeepEqual(pl.Stages, []Command{want}) {
		t.Fatalf("got %#v", pl.Stages)
	}
}

func TestParseFilterNe(t *testing.T) {
	pl := parseOne(t, `FILTER 18,10 != "SALES"`)
	if !pl.Stages[0].Negate {
		t.Fatalf("want Negate, got %#v", pl.Stages[0])
	}
}

func TestParseFilterUnquoted(t *testing.T) {
	_, err := Parse(`FILTER 18,10 = SALES`)
	if err == nil || !strings.Contains(err.Error(), "quoted") {
		t.Fatalf("want quoting error, got %v", err)
	}
}

func TestParseSelect(t *testing.T) {
	pl := parseOne(t, "SELECT 0,8,0; 28,8,8")
	want := []FieldCopy{{0, 8, 0}, {28, 8, 8}}
	if !reflect.DeepEqual(pl.Stages[0].Fields, want) {
		t.Fatalf("got %#v", pl.Stages[0].Fields)
	}
}

func TestParseSelectBadRange(t *testing.T) {
	cases := []string{
		"SELECT 75,10,0",  // source past column 80
		"SELECT 0,10,75",  // destination past column 80
		"SELECT 0,0,0",    // zero length
		"SELECT 0,8",      // missing destination
		"SELECT a,8,0",    // non-numeric
		"SELECT",          // nothing at all
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q): want error", c)
		}
	}
}

func TestParsePatterns(t *testing.T) {
	pl := parseOne(t, "LOCATE /ERROR/")
	if pl.Stages[0].Pattern != "ERROR" {
		t.Fatalf("got %#v", pl.Stages[0])
	}

	// Delimiter is author-chosen; anything non-alphanumeric works.
	pl = parseOne(t, "NLOCATE ,a/b,")
	if pl.Stages[0].Kind != KindNLocate || pl.Stages[0].Pattern != "a/b" {
		t.Fatalf("got %#v", pl.Stages[0])
	}

	pl = parseOne(t, "CHANGE /OLD/NEW/")
	c := pl.Stages[0]
	if c.Pattern != "OLD" || c.Replacement != "NEW" {
		t.Fatalf("got %#v", c)
	}
}

func TestParsePatternErrors(t *testing.T) {
	cases := []string{
		"LOCATE /unterminated",
		"LOCATE aXa", // alphanumeric delimiter
		"LOCATE //",  // empty needle
		"CHANGE /a/b", // missing final delimiter
		"CHANGE /a/b/ junk",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q): want error", c)
		}
	}
}

func TestParseTakeSkipDuplicate(t *testing.T) {
	pl := parseOne(t, "TAKE 5\n| SKIP 0\n| DUPLICATE 3\n| DUPLICATE")
	want := []Command{
		{Kind: KindTake, N: 5},
		{Kind: KindSkip, N: 0},
		{Kind: KindDuplicate, N: 3},
		{Kind: KindDuplicate, N: 2}, // count defaults to 2
	}
	if !reflect.DeepEqual(pl.Stages, want) {
		t.Fatalf("got %#v", pl.Stages)
	}
}

func TestParseDuplicateTooFew(t *testing.T) {
	for _, c := range []string{"DUPLICATE 0", "DUPLICATE 1"} {
		if _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q): want error", c)
		}
	}
}

func TestParseLiteral(t *testing.T) {
	pl := parseOne(t, `LITERAL "HEADER LINE"`)
	if pl.Stages[0].Value != "HEADER LINE" {
		t.Fatalf("got %#v", pl.Stages[0])
	}
}

func TestUnknownKeywordIsHardError(t *testing.T) {
	_, err := Parse("FILTER 0,8 = \"A\"\n| FROBNICATE 3")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Fatalf("line: got %d want 2", pe.Line)
	}
	if !strings.Contains(pe.Msg, "FROBNICATE") {
		t.Fatalf("msg: %q", pe.Msg)
	}
}

func TestCaseInsensitiveKeywordsAndPipePrefix(t *testing.T) {
	pl := parseOne(t, "PIPE filter 18,10 = \"SALES\"\n   | take 10")
	if len(pl.Stages) != 2 || pl.Stages[0].Kind != KindFilter || pl.Stages[1].Kind != KindTake {
		t.Fatalf("got %#v", pl.Stages)
	}
}

func TestCommentsAndBlankLines(t *testing.T) {
	pl := parseOne(t, "# comment\n\nPIPE\nTAKE 1\n")
	if len(pl.Stages) != 1 {
		t.Fatalf("got %#v", pl.Stages)
	}
}

func TestImplicitConsoleBoundaries(t *testing.T) {
	pl := parseOne(t, "TAKE 1")
	if pl.Source.Kind != KindConsole || pl.Sink.Kind != KindConsole {
		t.Fatalf("got source %v sink %v", pl.Source.Kind, pl.Sink.Kind)
	}
}

func TestReadWriteBoundaries(t *testing.T) {
	pl := parseOne(t, "READ in.data\n| LOCATE /X/\n| WRITE out.data")
	if pl.Source.Kind != KindRead || pl.Source.Path != "in.data" {
		t.Fatalf("source: %#v", pl.Source)
	}
	if pl.Sink.Kind != KindWrite || pl.Sink.Path != "out.data" {
		t.Fatalf("sink: %#v", pl.Sink)
	}
	if len(pl.Stages) != 1 {
		t.Fatalf("stages: %#v", pl.Stages)
	}
}

func TestReadBetweenStagesRejected(t *testing.T) {
	_, err := Parse("TAKE 1\n| READ mid.data\n| TAKE 2")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Fatalf("line: got %d want 2", pe.Line)
	}
}

func TestMultiPipelineTerminator(t *testing.T) {
	spec, err := Parse("FILTER 18,10 = \"SALES\"\n?\nTAKE 2\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(spec.Pipelines) != 2 {
		t.Fatalf("got %d pipelines", len(spec.Pipelines))
	}
	if spec.Pipelines[0].Stages[0].Kind != KindFilter {
		t.Fatalf("first: %#v", spec.Pipelines[0].Stages)
	}
	if spec.Pipelines[1].Stages[0].Kind != KindTake {
		t.Fatalf("second: %#v", spec.Pipelines[1].Stages)
	}
}

func TestTrailingTerminatorOnStageLine(t *testing.T) {
	spec, err := Parse("PIPE FILTER 18,10 = \"SALES\"\n   | SELECT 0,8,0; 28,8,8?")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(spec.Pipelines) != 1 || len(spec.Pipelines[0].Stages) != 2 {
		t.Fatalf("got %#v", spec.Pipelines)
	}
}

func TestEmptyPipelineIsIdentity(t *testing.T) {
	spec, err := Parse("?\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(spec.Pipelines) != 1 {
		t.Fatalf("got %d pipelines", len(spec.Pipelines))
	}
	if len(spec.Pipelines[0].Stages) != 0 {
		t.Fatalf("want identity, got %#v", spec.Pipelines[0].Stages)
	}
}

func TestFilterRangeValidatedAtParseTime(t *testing.T) {
	_, err := Parse(`FILTER 75,10 = "X"`)
	if err == nil || !strings.Contains(err.Error(), "past column 80") {
		t.Fatalf("want range error, got %v", err)
	}
}
