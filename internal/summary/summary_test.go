package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummariserMeanVar(t *testing.T) {
	s := New()
	for _, x := range []float64{1, 2, 3, 4, 5} {
		s.Add(x)
	}
	assert.Equal(t, 5, s.N)
	assert.InEpsilon(t, 3.0, s.Mean(), 1e-9)
	assert.InEpsilon(t, 2.0, s.Var(), 1e-9)
}

func TestSummariserStdDevUndefinedWhenEmpty(t *testing.T) {
	s := New()
	_, ok := s.StdDev()
	assert.False(t, ok)
}

func TestSummariserAddMultipleMatchesRepeatedAdd(t *testing.T) {
	a := New()
	a.AddMultiple(7, 3)

	b := New()
	b.Add(7)
	b.Add(7)
	b.Add(7)

	assert.Equal(t, b.N, a.N)
	assert.InEpsilon(t, b.Mean(), a.Mean(), 1e-9)
}

func TestSummariserAddOtherMerges(t *testing.T) {
	a := New()
	a.Add(1)
	a.Add(2)

	b := New()
	b.Add(3)
	b.Add(4)

	a.AddOther(b)
	assert.Equal(t, 4, a.N)
	assert.InEpsilon(t, 2.5, a.Mean(), 1e-9)
}
