// Package blockwriter implements a fan-in writer for pre-assembled byte
// blocks destined for a pair of output files. Many producer goroutines (one
// per extractor worker) submit block-pairs; a single background goroutine
// per BlockPairWriter serializes writes onto the two underlying files so
// that file 1 and file 2 never drift out of mate-alignment.
package blockwriter

import (
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
)

// channelCapacity bounds how many block-pairs may be buffered ahead of the
// writer goroutine. It is intentionally small: it allows one producer to
// keep working while the writer drains the previous block, without letting
// an arbitrary number of producers race ahead of disk.
const channelCapacity = 1

// blockPair is what flows down the internal channel: two already-encoded
// (and possibly compressed) byte blocks, plus diagnostic tags that do not
// affect correctness.
type blockPair struct {
	data1, data2 []byte
	sourceID     string
	blockNumber  int
}

// BlockPairWriter owns two output files and a single background goroutine
// that writes block-pairs to them in submission order. Use Writers to hand
// out a LocalBlockPairWriter to each producer goroutine.
type BlockPairWriter struct {
	w1, w2 io.Writer
	ch     chan blockPair
	done   chan struct{}
	err    errors.Once

	compressionLevel int // gzip.NoCompression (0) disables compression.

	mu     sync.Mutex
	closed bool
}

// New creates a BlockPairWriter over the two destination writers. If level
// is gzip.NoCompression, blocks are written uncompressed; otherwise each
// block is independently gzip-compressed at that level before being queued,
// so that output is a standard-compliant concatenation of gzip members.
func New(w1, w2 io.Writer, level int) *BlockPairWriter {
	bw := &BlockPairWriter{
		w1:               w1,
		w2:               w2,
		ch:               make(chan blockPair, channelCapacity),
		done:             make(chan struct{}),
		compressionLevel: level,
	}
	go bw.run()
	return bw
}

func (bw *BlockPairWriter) run() {
	defer close(bw.done)
	for pair := range bw.ch {
		if bw.err.Err() != nil {
			// The output stream already failed; keep draining the channel so
			// producers don't block on a dead writer, but stop touching w1/w2.
			continue
		}
		if _, err := bw.w1.Write(pair.data1); err != nil {
			bw.err.Set(errors.E(err, "blockwriter: write side 1", pair.sourceID))
			continue
		}
		if _, err := bw.w2.Write(pair.data2); err != nil {
			bw.err.Set(errors.E(err, "blockwriter: write side 2", pair.sourceID))
		}
	}
}

// Writers returns a LocalBlockPairWriter for a single producer, tagged with
// sourceID for diagnostics (e.g. the reference name driving that producer).
func (bw *BlockPairWriter) Writers(sourceID string) *LocalBlockPairWriter {
	return &LocalBlockPairWriter{shared: bw, sourceID: sourceID}
}

// Finish stops accepting new block-pairs, waits for the background
// goroutine to drain and write everything already queued, and returns the
// first write error encountered, if any.
func (bw *BlockPairWriter) Finish() error {
	bw.mu.Lock()
	if !bw.closed {
		bw.closed = true
		close(bw.ch)
	}
	bw.mu.Unlock()
	<-bw.done
	return bw.err.Err()
}

// LocalBlockPairWriter is a cheap, per-producer handle onto a
// BlockPairWriter's submission channel.
type LocalBlockPairWriter struct {
	shared      *BlockPairWriter
	sourceID    string
	blockNumber int
}

// Write hands a pair of buffers to the writer as one atomic submission:
// side-1 bytes and side-2 bytes of this call will be written contiguously,
// in order, on their respective files, uninterleaved with any other
// submission. Write blocks if the writer's channel is full (backpressure).
//
// Compression (if enabled) happens here, in the calling producer's
// goroutine, not in the background writer goroutine, so compression
// parallelism tracks the number of producers and the writer goroutine is
// never CPU-bound.
func (l *LocalBlockPairWriter) Write(block1, block2 []byte) error {
	data1, err := l.maybeCompress(block1)
	if err != nil {
		return errors.E(err, "blockwriter: compress side 1", l.sourceID)
	}
	data2, err := l.maybeCompress(block2)
	if err != nil {
		return errors.E(err, "blockwriter: compress side 2", l.sourceID)
	}
	l.blockNumber++
	l.shared.ch <- blockPair{
		data1:       data1,
		data2:       data2,
		sourceID:    l.sourceID,
		blockNumber: l.blockNumber,
	}
	return nil
}

func (l *LocalBlockPairWriter) maybeCompress(block []byte) ([]byte, error) {
	if l.shared.compressionLevel == gzip.NoCompression {
		// Each side compresses/copies its own bytes independently; there is
		// no shared buffer between the two sides of a submission.
		out := make([]byte, len(block))
		copy(out, block)
		return out, nil
	}
	var buf writeBuffer
	gw, err := gzip.NewWriterLevel(&buf, l.shared.compressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(block); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// writeBuffer is a minimal io.Writer-backed byte accumulator, avoiding a
// bytes.Buffer import for what is otherwise a single Write+Bytes use.
type writeBuffer struct {
	b []byte
}

func (w *writeBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
