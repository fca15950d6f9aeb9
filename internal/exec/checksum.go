package exec

import (
	"github.com/zeebo/xxh3"

	"recpipe/pkg/records"
)

// Checksum digests an output record set into a single 64-bit value.
// A newline separator between records keeps the digest sensitive to record
// boundaries, so two sets with the same bytes split differently hash
// differently. The equivalence tests compare executor outputs by checksum
// as well as structurally, and the CLI logs it in the run summary.
func Checksum(recs []records.Record) uint64 {
	h := xxh3.New()
	for _, r := range recs {
		_, _ = h.Write(r[:])
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
