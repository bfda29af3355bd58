package formatter

import (
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/bamfastq/internal/pairer"
	"github.com/grailbio/bamfastq/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	calls [][2]string
}

func (w *recordingWriter) Write(b1, b2 []byte) error {
	w.calls = append(w.calls, [2]string{string(b1), string(b2)})
	return nil
}

func mkRecord(name string, flags sam.Flags, seq, qual string) record.Record {
	q := make([]byte, len(qual))
	for i := range qual {
		q[i] = qual[i] - 33
	}
	return record.New(&sam.Record{
		Name:    name,
		Flags:   flags,
		Pos:     -1,
		MatePos: -1,
		Seq:     sam.NewSeq([]byte(seq)),
		Qual:    q,
	})
}

func TestFormatterWritesFourLineRecordsToBothSides(t *testing.T) {
	w := &recordingWriter{}
	f := New(w)
	r1 := mkRecord("r1", sam.Paired|sam.Read1, "ACGT", "IIII")
	r2 := mkRecord("r1", sam.Paired|sam.Read2, "TTTT", "JJJJ")
	require.NoError(t, f.Write(pairer.Pair{A: r1, B: r2}))
	require.NoError(t, f.Flush())

	require.Len(t, w.calls, 1)
	lines1 := strings.Split(strings.TrimRight(w.calls[0][0], "\n"), "\n")
	lines2 := strings.Split(strings.TrimRight(w.calls[0][1], "\n"), "\n")
	assert.Equal(t, []string{"@r1", "ACGT", "+", "IIII"}, lines1)
	assert.Equal(t, []string{"@r1", "TTTT", "+", "JJJJ"}, lines2)
}

func TestFormatterReordersByFirstLastSegment(t *testing.T) {
	w := &recordingWriter{}
	f := New(w)
	r2 := mkRecord("r1", sam.Paired|sam.Read2, "TTTT", "JJJJ")
	r1 := mkRecord("r1", sam.Paired|sam.Read1, "ACGT", "IIII")
	// Pairer hands back mates in observation order, so R2 may arrive as A;
	// Formatter must still route R1 to side 1.
	require.NoError(t, f.Write(pairer.Pair{A: r2, B: r1}))
	require.NoError(t, f.Flush())

	lines1 := strings.Split(strings.TrimRight(w.calls[0][0], "\n"), "\n")
	assert.Equal(t, "ACGT", lines1[1])
}

func TestFormatterReverseComplementsReverseStrandReads(t *testing.T) {
	w := &recordingWriter{}
	f := New(w)
	r1 := mkRecord("r1", sam.Paired|sam.Read1|sam.Reverse, "ACGTN", "!\"#$%")
	r2 := mkRecord("r1", sam.Paired|sam.Read2, "GGGG", "IIII")
	require.NoError(t, f.Write(pairer.Pair{A: r1, B: r2}))
	require.NoError(t, f.Flush())

	lines1 := strings.Split(strings.TrimRight(w.calls[0][0], "\n"), "\n")
	assert.Equal(t, "NACGT", lines1[1])
	assert.Equal(t, "%$#\"!", lines1[3])
}

func TestFormatterRejectsInvalidSegmentDisjunction(t *testing.T) {
	w := &recordingWriter{}
	f := New(w)
	r1 := mkRecord("r1", sam.Paired|sam.Read1, "AC", "II")
	r2 := mkRecord("r1", sam.Paired|sam.Read1, "GT", "II")
	assert.Error(t, f.Write(pairer.Pair{A: r1, B: r2}))
}

func TestFormatterFlushesAtThreshold(t *testing.T) {
	w := &recordingWriter{}
	f := newWithThreshold(w, 10)
	r1 := mkRecord("r1", sam.Paired|sam.Read1, "ACGTACGTAC", "IIIIIIIIII")
	r2 := mkRecord("r1", sam.Paired|sam.Read2, "ACGTACGTAC", "IIIIIIIIII")
	require.NoError(t, f.Write(pairer.Pair{A: r1, B: r2}))
	assert.Len(t, w.calls, 1)
}
