// Package shuffler implements a bounded reservoir-swap adaptor that breaks
// the locality of its input's order without unbounded buffering. It has no
// analogue in github.com/grailbio/bio; it is ported directly from the
// original Rust implementation's shuffler.rs, using math/rand in place of
// the rand crate's StdRng, following the RNG idiom of grailbio/bio's
// encoding/fastq/downsample.go (rand.New(rand.NewSource(seed))).
package shuffler

import (
	"math/rand"

	"github.com/grailbio/bamfastq/internal/pairer"
)

// Source is what the Shuffler wraps: anything shaped like the Pairer's
// Scan/Pair/Err interface.
type Source interface {
	Scan() bool
	Pair() pairer.Pair
	Err() error
}

// Shuffler wraps a Source and emits its pairs in a decorrelated order,
// using a fixed-capacity reservoir buffer. For a fixed seed and fixed
// input, the output order is deterministic.
type Shuffler struct {
	src    Source
	buffer []pairer.Pair
	rng    *rand.Rand

	cur        pairer.Pair
	err        error
	srcReached bool // true once src.Scan() has returned false at least once
}

// New constructs a Shuffler over src with the given reservoir capacity and
// PRNG seed. Construction fills the buffer by drawing up to capacity items
// from src (fewer if src is shorter).
func New(src Source, capacity int, seed int64) *Shuffler {
	s := &Shuffler{
		src:    src,
		buffer: make([]pairer.Pair, 0, capacity),
		rng:    rand.New(rand.NewSource(seed)),
	}
	for len(s.buffer) < capacity {
		if !src.Scan() {
			s.srcReached = true
			s.err = src.Err()
			break
		}
		s.buffer = append(s.buffer, src.Pair())
	}
	return s
}

// Scan advances to the next shuffled pair. It returns false once both the
// source and the reservoir are exhausted.
func (s *Shuffler) Scan() bool {
	if !s.srcReached {
		if s.src.Scan() {
			item := s.src.Pair()
			j := s.rng.Intn(len(s.buffer))
			item, s.buffer[j] = s.buffer[j], item
			s.cur = item
			return true
		}
		s.srcReached = true
		s.err = s.src.Err()
	}
	if len(s.buffer) == 0 {
		return false
	}
	last := len(s.buffer) - 1
	item := s.buffer[last]
	s.buffer = s.buffer[:last]
	if len(s.buffer) > 1 {
		j := s.rng.Intn(len(s.buffer))
		item, s.buffer[j] = s.buffer[j], item
	}
	s.cur = item
	return true
}

// Pair returns the pair produced by the most recent successful Scan.
func (s *Shuffler) Pair() pairer.Pair {
	return s.cur
}

// Err returns the error (if any) that ended iteration, propagated from the
// wrapped Source.
func (s *Shuffler) Err() error {
	return s.err
}
