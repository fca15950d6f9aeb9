package datasource

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"recpipe/pkg/records"
)

func TestReadRecords_ASCII(t *testing.T) {
	t.Parallel()

	src := NewReader(strings.NewReader("SMITH\n\nJONES\n"))
	got, err := ReadRecords(context.Background(), src, "")
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (blank lines skipped)", len(got))
	}
	if got[0].Trimmed() != "SMITH" || got[1].Trimmed() != "JONES" {
		t.Fatalf("records = %q, %q", got[0].Trimmed(), got[1].Trimmed())
	}
	for i, r := range got {
		if len(r.String()) != records.Width {
			t.Fatalf("record %d is %d bytes wide", i, len(r.String()))
		}
	}
}

func TestReadRecords_EBCDIC(t *testing.T) {
	t.Parallel()

	// Encode a known ASCII payload into code page 037 and make sure the
	// decoder brings it back.
	enc := charmap.CodePage037.NewEncoder()
	raw, err := enc.Bytes([]byte("HELLO WORLD\nPAYROLL\n"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	src := NewReader(bytes.NewReader(raw))
	got, err := ReadRecords(context.Background(), src, EncodingEBCDIC)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(got) != 2 || got[0].Trimmed() != "HELLO WORLD" || got[1].Trimmed() != "PAYROLL" {
		t.Fatalf("decoded records = %+v", got)
	}
}

func TestReadRecords_Latin1NonASCIIRejected(t *testing.T) {
	t.Parallel()

	// 0xC9 is É in Latin-1; it decodes cleanly but is not ASCII, so record
	// construction must refuse it rather than substitute.
	src := NewReader(bytes.NewReader([]byte{'A', 0xC9, '\n'}))
	_, err := ReadRecords(context.Background(), src, EncodingLatin1)
	var ferr *records.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want *records.FormatError", err)
	}
}

func TestReadRecords_OverlongLineRejected(t *testing.T) {
	t.Parallel()

	src := NewReader(strings.NewReader(strings.Repeat("X", records.Width+1) + "\n"))
	if _, err := ReadRecords(context.Background(), src, EncodingASCII); err == nil {
		t.Fatalf("expected error for %d-byte line", records.Width+1)
	}
}

func TestReadRecords_UnsupportedEncoding(t *testing.T) {
	t.Parallel()

	src := NewReader(strings.NewReader("X\n"))
	if _, err := ReadRecords(context.Background(), src, "utf-16"); err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
}

func TestReader_PreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewReader(strings.NewReader("X")).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
