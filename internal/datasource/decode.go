package datasource

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encodings supported for input files. Punch-card data frequently arrives
// from mainframe exports, so EBCDIC (code page 037) is first-class.
const (
	EncodingASCII  = "ascii"
	EncodingLatin1 = "latin1"
	EncodingEBCDIC = "ebcdic"
)

// NewDecoder wraps r with a decoder for the named encoding. The empty
// string means ASCII, which needs no transformation. Decoded text that
// still contains non-ASCII characters is rejected later, at record
// construction.
func NewDecoder(r io.Reader, encoding string) (io.Reader, error) {
	switch encoding {
	case "", EncodingASCII:
		return r, nil
	case EncodingLatin1:
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case EncodingEBCDIC:
		return transform.NewReader(r, charmap.CodePage037.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("datasource: unsupported encoding %q", encoding)
	}
}
