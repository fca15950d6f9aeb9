// Package records defines the fixed-width 80-byte record type that flows
// through every pipeline stage.
//
// The 80-byte width matches the historical punch card format used on
// mainframe systems. Each record is exactly 80 ASCII bytes; shorter source
// text is right-padded with spaces. Fields are addressed by a 0-based byte
// offset and a length.
//
// Two construction paths exist with deliberately different strictness:
//
//   - Parse validates external input: lines longer than 80 bytes or
//     containing non-ASCII bytes are rejected with a *FormatError. Width is
//     a hard invariant of the engine, so input is never silently truncated.
//   - New builds records from text the engine synthesizes itself (LITERAL
//     lines, COUNT summaries). It pads or truncates to 80 bytes and
//     replaces non-ASCII bytes with '?'.
package records

import (
	"fmt"
	"strings"
)

// Width is the fixed record width in bytes (punch card width).
const Width = 80

// Record is a fixed-width 80-byte ASCII line. It is a value type: handing a
// Record to a stage copies it, so no stage can alias another's buffer.
type Record [Width]byte

// FormatError reports input text that cannot become a valid record.
type FormatError struct {
	Length int    // byte length of the offending line, 0 if not a length problem
	Byte   byte   // offending byte for non-ASCII errors
	Reason string // human-readable reason
}

func (e *FormatError) Error() string { return "record: " + e.Reason }

// Blank returns a record filled with spaces.
func Blank() Record {
	var r Record
	for i := range r {
		r[i] = ' '
	}
	return r
}

// New builds a record from engine-synthesized text. The text is truncated to
// 80 bytes or padded with spaces if shorter; non-ASCII bytes become '?'.
func New(s string) Record {
	r := Blank()
	b := []byte(s)
	n := len(b)
	if n > Width {
		n = Width
	}
	for i := 0; i < n; i++ {
		if b[i] > 0x7f {
			r[i] = '?'
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// Parse validates one line of external input and returns it as a record.
// Lines longer than 80 bytes or containing non-ASCII bytes are errors.
func Parse(line string) (Record, error) {
	if len(line) > Width {
		return Record{}, &FormatError{
			Length: len(line),
			Reason: fmt.Sprintf("line is %d bytes, maximum is %d", len(line), Width),
		}
	}
	for i := 0; i < len(line); i++ {
		if line[i] > 0x7f {
			return Record{}, &FormatError{
				Byte:   line[i],
				Reason: fmt.Sprintf("non-ASCII byte 0x%02x at column %d", line[i], i),
			}
		}
	}
	r := Blank()
	copy(r[:], line)
	return r, nil
}

// String returns the full 80-character content including trailing padding.
func (r Record) String() string { return string(r[:]) }

// Trimmed returns the content with trailing spaces removed.
func (r Record) Trimmed() string { return strings.TrimRight(string(r[:]), " ") }

// IsBlank reports whether the record is all spaces.
func (r Record) IsBlank() bool {
	for _, b := range r {
		if b != ' ' {
			return false
		}
	}
	return true
}

// Field extracts the field at [start, start+length). Ranges reaching past
// byte 80 are clamped; statically-known ranges are rejected earlier, at DSL
// parse time, by CheckRange.
func (r Record) Field(start, length int) string {
	if start < 0 || length <= 0 || start >= Width {
		return ""
	}
	end := start + length
	if end > Width {
		end = Width
	}
	return string(r[start:end])
}

// SetField overwrites the field at [start, start+length) with value,
// space-padding or truncating value to the field width. Out-of-range parts
// are clamped.
func (r *Record) SetField(start, length int, value string) {
	if start < 0 || length <= 0 || start >= Width {
		return
	}
	end := start + length
	if end > Width {
		end = Width
	}
	for i := start; i < end; i++ {
		r[i] = ' '
	}
	b := []byte(value)
	n := len(b)
	if n > end-start {
		n = end - start
	}
	for i := 0; i < n; i++ {
		if b[i] > 0x7f {
			r[start+i] = '?'
		} else {
			r[start+i] = b[i]
		}
	}
}

// FieldEq compares a field to a value, trimming surrounding blanks on both
// sides. This is the comparison FILTER uses.
func (r Record) FieldEq(start, length int, value string) bool {
	return strings.TrimSpace(r.Field(start, length)) == strings.TrimSpace(value)
}

// Contains reports whether the substring occurs anywhere in the full
// 80-byte record. This is the search LOCATE uses.
func (r Record) Contains(sub string) bool {
	return strings.Contains(string(r[:]), sub)
}

// CheckRange validates a statically-known field range. It is called by the
// DSL parser so that bad column ranges fail at parse time, not mid-run.
func CheckRange(start, length int) error {
	switch {
	case start < 0:
		return fmt.Errorf("offset %d is negative", start)
	case length <= 0:
		return fmt.Errorf("length %d must be positive", length)
	case start+length > Width:
		return fmt.Errorf("range %d,%d reaches past column %d", start, length, Width)
	}
	return nil
}

// FromLines splits raw input text into records, one per line, skipping
// empty lines. Errors carry the 1-based input line number.
func FromLines(text string) ([]Record, error) {
	var recs []Record
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		r, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("input line %d: %w", i+1, err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// Join renders records as display text: trailing blanks trimmed, one record
// per line.
func Join(recs []Record) string {
	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = r.Trimmed()
	}
	return strings.Join(lines, "\n")
}
