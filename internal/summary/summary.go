// Package summary provides a mergeable running mean/variance accumulator.
package summary

import "math"

// Summariser accumulates count, mean and variance for a stream of float64
// samples without retaining the samples themselves.
type Summariser struct {
	N   int
	sx  float64
	sx2 float64
}

// New returns an empty Summariser.
func New() *Summariser {
	return &Summariser{}
}

// Add folds a single sample into the accumulator.
func (s *Summariser) Add(x float64) {
	s.N++
	s.sx += x
	s.sx2 += x * x
}

// AddMultiple folds n copies of x into the accumulator.
func (s *Summariser) AddMultiple(x float64, n int) {
	s.N += n
	fn := float64(n)
	s.sx += fn * x
	s.sx2 += fn * x * x
}

// AddOther merges another Summariser's accumulated state into s.
func (s *Summariser) AddOther(other *Summariser) {
	s.N += other.N
	s.sx += other.sx
	s.sx2 += other.sx2
}

// Mean returns the sample mean. It is only meaningful when N > 0.
func (s *Summariser) Mean() float64 {
	return s.sx / float64(s.N)
}

// Var returns the (biased) sample variance. It is only meaningful when N > 0.
func (s *Summariser) Var() float64 {
	m := s.Mean()
	return s.sx2/float64(s.N) - m*m
}

// StdDev returns the sample standard deviation and whether it is defined.
// Unlike the convention this was ported from (which returned a sentinel -1
// when N == 0), an undefined result is reported explicitly via the second
// return value so callers cannot mistake it for a real deviation of -1.
func (s *Summariser) StdDev() (float64, bool) {
	if s.N == 0 {
		return 0, false
	}
	return math.Sqrt(s.Var()), true
}
