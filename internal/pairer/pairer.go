// Package pairer turns a stream of alignment records into a stream of mate
// pairs, collecting records that have not (yet) found a mate into an orphan
// map. It is grounded on the cache-map-and-emit-on-match loop in
// github.com/grailbio/bio/encoding/bamprovider's PairIterator, generalized
// to track a full flag histogram and to hand back its residual state as a
// Remainder rather than reporting missing mates as an error.
package pairer

import (
	"github.com/grailbio/bamfastq/internal/record"
)

// numFlagValues is the size of the dense flag histogram: one counter per
// possible 16-bit FLAGS value.
const numFlagValues = 1 << 16

// Source is a fallible record iterator, following the Scan/Record/Err
// convention used throughout the BAM codec and FASTQ scanner in this
// module. Scan advances to the next record and reports whether one is
// available; Err reports the error (if any) that stopped iteration.
type Source interface {
	Scan() bool
	Record() record.Record
	Err() error
}

// Progress receives one increment per record drawn from the source. A nil
// Progress is a valid no-op value (see internal/progress).
type Progress interface {
	Inc(n int)
}

// Pair is an ordered tuple of mated records, in the order they were first
// and second observed by the Pairer -- not necessarily (R1, R2) order. The
// Formatter is responsible for reordering by first/last-segment flags.
type Pair struct {
	A, B record.Record
}

// Remainder is what a Pairer yields once its source is exhausted: the
// records that never found a mate, keyed by read name, and the flag
// histogram accumulated over every record the Pairer drew from its source
// (including ones skipped as pairing candidates, per the open question in
// the spec this was ported from: secondary/supplementary/unsegmented
// records still bump the histogram).
type Remainder struct {
	Orphans map[string]record.Record
	Flags   [numFlagValues]uint64
}

// Pairer adapts a Source of alignment records into a stream of mate pairs.
// Pairer is single-owner: it holds no state shared with any other adaptor.
type Pairer struct {
	src      Source
	cache    map[string]record.Record
	flags    [numFlagValues]uint64
	progress Progress

	pair     Pair
	err      error
	srcEnded bool
}

// New constructs a Pairer over src. progress may be nil, in which case no
// progress is reported.
func New(src Source, progress Progress) *Pairer {
	return &Pairer{src: src, cache: make(map[string]record.Record), progress: progress}
}

// Scan advances to the next mate pair. It returns false once the source is
// exhausted or has failed; callers should check Err() to distinguish the
// two. The Pairer itself never fails: a non-nil Err() always originates
// from the underlying Source.
func (p *Pairer) Scan() bool {
	for p.src.Scan() {
		if p.progress != nil {
			p.progress.Inc(1)
		}
		rec := p.src.Record()
		p.flags[rec.RawFlags()]++
		if rec.Secondary() || rec.Supplementary() || !rec.Segmented() {
			continue
		}
		name := rec.Name()
		if name == "" {
			continue
		}
		if cached, found := p.cache[name]; found {
			delete(p.cache, name)
			p.pair = Pair{A: cached, B: rec}
			return true
		}
		p.cache[name] = rec
	}
	p.srcEnded = true
	p.err = p.src.Err()
	return false
}

// Pair returns the pair produced by the most recent successful Scan.
func (p *Pairer) Pair() Pair {
	return p.pair
}

// Err returns the error (if any) that ended iteration. It is meaningful
// only after Scan has returned false.
func (p *Pairer) Err() error {
	return p.err
}

// Remainder consumes the Pairer, asserting that its source has already been
// fully drained (the last call to Scan returned false), and returns the
// accumulated orphan map and flag histogram.
func (p *Pairer) Remainder() Remainder {
	if !p.srcEnded {
		panic("pairer: Remainder called before source was exhausted")
	}
	r := Remainder{Orphans: p.cache, Flags: p.flags}
	p.cache = nil
	return r
}
