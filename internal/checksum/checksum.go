// Package checksum computes an order-independent digest over a pair of
// FASTQ streams, plus a bounded sketch of the smallest-hash records for
// spot inspection. It is ported from the original implementation's
// checksum.rs: read pairs in lockstep, hash each pair's FASTQ encoding
// with SHA-256, XOR the digests into a running accumulator, and retain a
// capacity-bounded max-heap keyed by hex digest so the accumulator can be
// spot-checked without re-scanning the input.
package checksum

import (
	"bytes"
	"container/heap"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/grailbio/bamfastq/internal/fastqio"
)

// SketchSize bounds the number of retained records in the sketch.
const SketchSize = 1000

// HashAndText pairs a record pair's hex digest with its encoded bytes.
// Ordering is by Hash alone, matching the original's total order by
// digest.
type HashAndText struct {
	Hash string
	Text []byte
}

// sketchHeap is a max-heap by Hash: its root (index 0) holds the greatest
// digest, so repeatedly popping while len > SketchSize discards the
// largest-hash records and retains the smallest.
type sketchHeap []HashAndText

func (h sketchHeap) Len() int            { return len(h) }
func (h sketchHeap) Less(i, j int) bool  { return h[i].Hash > h[j].Hash }
func (h sketchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *sketchHeap) Push(x interface{}) { *h = append(*h, x.(HashAndText)) }
func (h *sketchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Result is the outcome of Compute. It is populated over however many
// pairs were actually processed, even when Compute also returns a
// non-nil error for a structural mismatch partway through the streams.
type Result struct {
	Digest   [sha256.Size]byte
	NumPairs int
	// Sketch holds up to SketchSize records, in descending-digest order.
	Sketch []HashAndText
}

// DigestHex returns the accumulator as a 64-character hex string.
func (r Result) DigestHex() string {
	return hex.EncodeToString(r.Digest[:])
}

// WriteSketch writes each retained sketch record's FASTQ bytes to w, in
// descending-digest order.
func (r Result) WriteSketch(w io.Writer) error {
	for _, hat := range r.Sketch {
		if _, err := w.Write(hat.Text); err != nil {
			return err
		}
	}
	return nil
}

// Compute reads FASTQ record pairs from r1, r2 in lockstep and computes
// their order-independent digest and sketch. A structural mismatch (a
// name mismatch between mates, one stream ending before the other, or a
// malformed-FASTQ/I-O error from either stream) is returned as an error,
// but Result still reflects every pair processed before it occurred.
func Compute(r1, r2 io.Reader) (Result, error) {
	ps, err := fastqio.NewPairScanner(r1, r2)
	if err != nil {
		return Result{}, err
	}

	var (
		sketch   sketchHeap
		acc      [sha256.Size]byte
		numPairs int
		a, b     fastqio.Read
	)
	for ps.Scan(&a, &b) {
		if a.ID != b.ID {
			return finish(acc, numPairs, sketch),
				fmt.Errorf("checksum: mismatched record IDs at pair %d: %q vs %q", numPairs+1, a.ID, b.ID)
		}
		numPairs++

		var buf bytes.Buffer
		w := fastqio.NewWriter(&buf)
		if err := w.Write(&a); err != nil {
			return Result{}, err
		}
		if err := w.Write(&b); err != nil {
			return Result{}, err
		}

		sum := sha256.Sum256(buf.Bytes())
		for i := range acc {
			acc[i] ^= sum[i]
		}

		heap.Push(&sketch, HashAndText{Hash: hex.EncodeToString(sum[:]), Text: append([]byte(nil), buf.Bytes()...)})
		for sketch.Len() > SketchSize {
			heap.Pop(&sketch)
		}
	}

	result := finish(acc, numPairs, sketch)
	if err := ps.Err(); err != nil {
		if err == fastqio.ErrDiscordant {
			return result, fmt.Errorf("checksum: streams have different numbers of records (stopped after %d pairs)", numPairs)
		}
		return result, err
	}
	return result, nil
}

// finish drains sketch from max to min digest, matching the original's
// drain order, and assembles the final Result.
func finish(acc [sha256.Size]byte, numPairs int, sketch sketchHeap) Result {
	ordered := make([]HashAndText, 0, sketch.Len())
	for sketch.Len() > 0 {
		ordered = append(ordered, heap.Pop(&sketch).(HashAndText))
	}
	return Result{Digest: acc, NumPairs: numPairs, Sketch: ordered}
}
