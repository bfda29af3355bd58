package pairer

import (
	"errors"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/bamfastq/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(name string, flags sam.Flags) record.Record {
	return record.New(&sam.Record{Name: name, Flags: flags, Pos: -1, MatePos: -1})
}

// sliceSource is a fake Source backed by a slice, with an optional error
// raised once the slice is exhausted.
type sliceSource struct {
	recs []record.Record
	i    int
	err  error
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
func (s *sliceSource) Err() error            { return s.err }

func TestPairerPairsSharedNameAcrossSegments(t *testing.T) {
	src := &sliceSource{recs: []record.Record{
		rec("r1", sam.Paired|sam.Read1),
		rec("r1", sam.Paired|sam.Read2),
	}}
	p := New(src, nil)
	require.True(t, p.Scan())
	pair := p.Pair()
	assert.Equal(t, "r1", pair.A.Name())
	assert.Equal(t, "r1", pair.B.Name())
	require.False(t, p.Scan())
	require.NoError(t, p.Err())

	rem := p.Remainder()
	assert.Empty(t, rem.Orphans)
}

func TestPairerOrphansUnmatedRecord(t *testing.T) {
	src := &sliceSource{recs: []record.Record{
		rec("solo", sam.Paired|sam.Read1),
	}}
	p := New(src, nil)
	require.False(t, p.Scan())
	rem := p.Remainder()
	require.Len(t, rem.Orphans, 1)
	_, ok := rem.Orphans["solo"]
	assert.True(t, ok)
}

func TestPairerSkipsSecondarySupplementaryUnsegmentedAndNameless(t *testing.T) {
	src := &sliceSource{recs: []record.Record{
		rec("", sam.Paired|sam.Read1),                       // nameless
		rec("notpaired", sam.Read1),                         // not segmented
		rec("dup", sam.Paired|sam.Read1|sam.Secondary),       // secondary
		rec("dup", sam.Paired|sam.Read1|sam.Supplementary),   // supplementary
	}}
	p := New(src, nil)
	require.False(t, p.Scan())
	rem := p.Remainder()
	assert.Empty(t, rem.Orphans)
	// All four records still bump the flag histogram, even though none
	// qualify as a pairing candidate.
	var total uint64
	for _, c := range rem.Flags {
		total += c
	}
	assert.EqualValues(t, 4, total)
}

func TestPairerFlagHistogramCountsEveryRecord(t *testing.T) {
	src := &sliceSource{recs: []record.Record{
		rec("a", sam.Paired|sam.Read1),
		rec("a", sam.Paired|sam.Read2),
		rec("b", sam.Paired|sam.Read1|sam.Secondary),
	}}
	p := New(src, nil)
	for p.Scan() {
	}
	rem := p.Remainder()
	assert.Equal(t, uint64(1), rem.Flags[uint16(sam.Paired|sam.Read1)])
	assert.Equal(t, uint64(1), rem.Flags[uint16(sam.Paired|sam.Read2)])
	assert.Equal(t, uint64(1), rem.Flags[uint16(sam.Paired|sam.Read1|sam.Secondary)])
}

func TestPairerPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("boom")
	src := &sliceSource{recs: nil, err: wantErr}
	p := New(src, nil)
	require.False(t, p.Scan())
	assert.Equal(t, wantErr, p.Err())
}

type countingProgress struct{ n int }

func (c *countingProgress) Inc(n int) { c.n += n }

func TestPairerReportsProgress(t *testing.T) {
	src := &sliceSource{recs: []record.Record{
		rec("a", sam.Paired|sam.Read1),
		rec("a", sam.Paired|sam.Read2),
	}}
	prog := &countingProgress{}
	p := New(src, prog)
	for p.Scan() {
	}
	assert.Equal(t, 2, prog.n)
}
