package extractor

import (
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"

	"github.com/grailbio/bamfastq/internal/record"
)

// recordSource adapts a biogo/hts BAM reader to the pairer.Source
// interface (Scan/Record/Err). A source built by newReferenceSource is
// bounded to exactly the given chunks via bam.Iterator (used for a single
// named reference). A source built by newSequentialSource reads
// sequentially from the reader's current position to EOF (used for the
// unplaced/unmapped bucket).
type recordSource struct {
	reader *bam.Reader
	iter   *bam.Iterator
	cur    *sam.Record
	err    error
}

func newReferenceSource(reader *bam.Reader, chunks []bgzf.Chunk) (*recordSource, error) {
	iter, err := bam.NewIterator(reader, chunks)
	if err != nil {
		return nil, err
	}
	return &recordSource{reader: reader, iter: iter}, nil
}

func newSequentialSource(reader *bam.Reader) *recordSource {
	return &recordSource{reader: reader}
}

func (s *recordSource) Scan() bool {
	if s.err != nil {
		return false
	}
	if s.iter != nil {
		if !s.iter.Next() {
			s.err = s.iter.Error()
			return false
		}
		s.cur = s.iter.Record()
		return true
	}
	rec, err := s.reader.Read()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	s.cur = rec
	return true
}

func (s *recordSource) Record() record.Record { return record.New(s.cur) }

func (s *recordSource) Err() error { return s.err }

// unmappedOffset finds the BGZF offset at which unplaced/unmapped records
// begin, conservatively: the largest chunk-end offset across every
// reference's index entries, or the first-record offset if no reference
// has any indexed chunk.
func unmappedOffset(reader *bam.Reader, idx *bam.Index, header *sam.Header) (bgzf.Offset, error) {
	firstRecord := reader.LastChunk().End
	var last bgzf.Offset
	found := false
	for _, ref := range header.Refs() {
		chunks, err := idx.Chunks(ref, 0, ref.Len())
		if err == index.ErrInvalid {
			continue
		}
		if err != nil {
			return bgzf.Offset{}, err
		}
		if len(chunks) == 0 {
			continue
		}
		found = true
		end := chunks[len(chunks)-1].End
		if end.File > last.File || (end.File == last.File && end.Block > last.Block) {
			last = end
		}
	}
	if !found {
		return firstRecord, nil
	}
	return last, nil
}

// sliceSource replays a fixed slice of records, for the cross-chromosome
// rescue pass over previously-collected orphans.
type sliceSource struct {
	recs []record.Record
	i    int
	cur  record.Record
}

func (s *sliceSource) Scan() bool {
	if s.i >= len(s.recs) {
		return false
	}
	s.cur = s.recs[s.i]
	s.i++
	return true
}

func (s *sliceSource) Record() record.Record { return s.cur }

func (s *sliceSource) Err() error { return nil }
