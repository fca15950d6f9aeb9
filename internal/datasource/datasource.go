// Package datasource abstracts where input records come from. A Source
// yields a byte stream; ReadRecords turns that stream into fixed-width
// records, decoding legacy encodings on the way in.
package datasource

import (
	"context"
	"fmt"
	"io"

	"recpipe/pkg/records"
)

type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Reader adapts an already-open stream (stdin, an HTTP request body, a
// test buffer) to the Source interface. Open may be called once.
type Reader struct{ r io.Reader }

// NewReader returns a Source backed by r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (s *Reader) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return io.NopCloser(s.r), nil
}

// ReadRecords drains src, decodes it from the named encoding, and splits
// the text into 80-byte records, one per non-empty line. Lines longer than
// the record width or containing non-ASCII bytes after decoding are errors;
// input is never silently truncated.
func ReadRecords(ctx context.Context, src Source, encoding string) ([]records.Record, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec, err := NewDecoder(rc, encoding)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("datasource: read: %w", err)
	}
	return records.FromLines(string(data))
}
