package fastqio

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fq = `@read1
ACGTACGTAC
+
IIIIIIIIII
@read2
TTTTGGGGCC
+
JJJJJJJJJJ
`

func stringScanner(t *testing.T, s string) *Scanner {
	t.Helper()
	sc, err := NewScanner(bytes.NewReader([]byte(s)))
	require.NoError(t, err)
	return sc
}

func TestScannerReadsPlainFASTQ(t *testing.T) {
	s := stringScanner(t, fq)
	var r Read
	require.True(t, s.Scan(&r))
	assert.Equal(t, Read{ID: "@read1", Seq: "ACGTACGTAC", Unk: "+", Qual: "IIIIIIIIII"}, r)

	var n int
	for s.Scan(&r) {
		n++
	}
	assert.Equal(t, 1, n)
	assert.NoError(t, s.Err())
}

func TestScannerAutodetectsGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(fq))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	s := stringScanner(t, buf.String())
	var n int
	var r Read
	for s.Scan(&r) {
		n++
	}
	require.NoError(t, s.Err())
	assert.Equal(t, 2, n)
}

func TestScannerRejectsMissingAtPrefix(t *testing.T) {
	s := stringScanner(t, "not-a-fastq-line\nACGT\n+\nIIII\n")
	var r Read
	assert.False(t, s.Scan(&r))
	assert.Equal(t, ErrInvalid, s.Err())
}

func TestScannerDetectsShortRecord(t *testing.T) {
	s := stringScanner(t, "@read1\nACGT\n")
	var r Read
	assert.False(t, s.Scan(&r))
	assert.Equal(t, ErrShort, s.Err())
}

func TestPairScannerDetectsDiscordantLengths(t *testing.T) {
	r1 := bytes.NewReader([]byte(fq))
	r2 := bytes.NewReader([]byte("@onlyone\nACGT\n+\nIIII\n"))
	p, err := NewPairScanner(r1, r2)
	require.NoError(t, err)

	var a, b Read
	for p.Scan(&a, &b) {
	}
	assert.Equal(t, ErrDiscordant, p.Err())
}

func TestWriterRoundTripsScannedRecords(t *testing.T) {
	s := stringScanner(t, fq)
	var out bytes.Buffer
	w := NewWriter(&out)
	var r Read
	for s.Scan(&r) {
		require.NoError(t, w.Write(&r))
	}
	require.NoError(t, s.Err())
	assert.Equal(t, fq, out.String())
}
