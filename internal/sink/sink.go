// Package sink delivers pipeline output. A Sink receives the final record
// sequence of a console or WRITE boundary and persists it as plain text,
// one trimmed line per record.
package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"recpipe/pkg/records"
)

type Sink interface {
	Write(ctx context.Context, recs []records.Record) error
}

// File writes records to a local file, replacing any existing content.
type File struct{ path string }

// NewFile returns a Sink bound to the given filesystem path.
func NewFile(path string) *File { return &File{path: path} }

func (f *File) Write(ctx context.Context, recs []records.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	out, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.path, err)
	}
	if err := writeLines(out, recs); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	return nil
}

// Writer adapts any io.Writer (stdout, an HTTP response, a test buffer)
// to the Sink interface.
type Writer struct{ w io.Writer }

// NewWriter returns a Sink that appends to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (s *Writer) Write(ctx context.Context, recs []records.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return writeLines(s.w, recs)
}

// writeLines emits one trimmed line per record. Trailing blanks are pad
// bytes, not data, so they are dropped on the way out.
func writeLines(w io.Writer, recs []records.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if _, err := bw.WriteString(r.Trimmed()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
