// Package record adapts github.com/biogo/hts/sam.Record to the narrow
// surface the conversion pipeline needs: a read name, the handful of flag
// queries that decide mate pairing and orientation, and in-place
// reverse-complement of sequence and quality. Keeping this adaptor between
// the pipeline packages (pairer, shuffler, formatter) and biogo/hts means
// none of those packages needs to import the BAM codec directly.
package record

import (
	"io"

	"github.com/biogo/hts/sam"
)

// Record wraps a single BAM alignment record.
type Record struct {
	Rec *sam.Record
}

// New wraps rec.
func New(rec *sam.Record) Record {
	return Record{Rec: rec}
}

// Name returns the read name, or "" if the record has none.
func (r Record) Name() string {
	return r.Rec.Name
}

// RawFlags returns the raw 16-bit FLAG word.
func (r Record) RawFlags() uint16 {
	return uint16(r.Rec.Flags)
}

// Segmented reports whether the read is paired in sequencing (FLAG 0x1).
func (r Record) Segmented() bool {
	return r.Rec.Flags&sam.Paired != 0
}

// FirstSegment reports whether this is read 1 of the pair (FLAG 0x40).
func (r Record) FirstSegment() bool {
	return r.Rec.Flags&sam.Read1 != 0
}

// LastSegment reports whether this is read 2 of the pair (FLAG 0x80).
func (r Record) LastSegment() bool {
	return r.Rec.Flags&sam.Read2 != 0
}

// Secondary reports whether this is a secondary alignment (FLAG 0x100).
func (r Record) Secondary() bool {
	return r.Rec.Flags&sam.Secondary != 0
}

// Supplementary reports whether this is a supplementary alignment (FLAG 0x800).
func (r Record) Supplementary() bool {
	return r.Rec.Flags&sam.Supplementary != 0
}

// ReverseComplemented reports whether the read is mapped to the reverse
// strand (FLAG 0x10), and so its stored bases are the complement of the
// sequencer's original read.
func (r Record) ReverseComplemented() bool {
	return r.Rec.Flags&sam.Reverse != 0
}

// iupacComplement maps a base to its IUPAC complement. Unrecognized bytes
// (including 'N') map to 'N'. The table is self-inverse:
// iupacComplement[iupacComplement[b]] == b for every b that appears as a
// value in the table.
var iupacComplement = [256]byte{}

func init() {
	for i := range iupacComplement {
		iupacComplement[i] = 'N'
	}
	pairs := [][2]byte{
		{'A', 'T'}, {'C', 'G'}, {'M', 'K'}, {'R', 'Y'},
		{'S', 'S'}, {'V', 'B'}, {'W', 'W'}, {'H', 'D'},
		{'N', 'N'}, {'=', '='},
	}
	for _, p := range pairs {
		iupacComplement[p[0]] = p[1]
		iupacComplement[p[1]] = p[0]
	}
}

// ComplementBase returns the IUPAC complement of base, per the table above.
func ComplementBase(base byte) byte {
	return iupacComplement[base]
}

// ReverseComplement reverses and complements the sequence in place, and
// reverses the quality scores in place. It does not clear the
// reverse-complemented FLAG bit; callers are expected to discard the
// record after formatting it.
func (r Record) ReverseComplement() {
	seq := r.Rec.Seq.Expand()
	n := len(seq)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = ComplementBase(seq[j]), ComplementBase(seq[i])
	}
	if n%2 == 1 {
		seq[n/2] = ComplementBase(seq[n/2])
	}
	r.Rec.Seq = sam.NewSeq(seq)

	qual := r.Rec.Qual
	for i, j := 0, len(qual)-1; i < j; i, j = i+1, j-1 {
		qual[i], qual[j] = qual[j], qual[i]
	}
}

// WriteFASTQTo appends the record as a four-line FASTQ record (using
// readName as the "@" line, so callers can force R1 and R2 to share a
// name) to w.
func (r Record) WriteFASTQTo(w io.Writer, readName string) error {
	qual := r.Rec.Qual
	phred := make([]byte, len(qual))
	for i, q := range qual {
		phred[i] = q + 33
	}
	for _, chunk := range [][]byte{
		[]byte("@" + readName + "\n"),
		append(r.Rec.Seq.Expand(), '\n'),
		[]byte("+\n"),
		append(phred, '\n'),
	} {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}
