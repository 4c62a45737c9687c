package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Running keeps the count, extremes, mean and variance of a stream of
// samples without storing them (Welford's algorithm).
type Running struct {
	n    int
	last float64
	min  float64
	max  float64

	mean float64
	m2   float64
}

func (s *Running) Push(val float64) {
	s.last = val
	s.n++
	if s.n == 1 {
		s.mean = val
		s.m2 = 0
		s.min = val
		s.max = val
		return
	}
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
	s.min = math.Min(s.min, val)
	s.max = math.Max(s.max, val)
}

func (s *Running) Mean() float64 {
	return s.mean
}

// Variance is the sample variance; 0 until there are two samples.
func (s *Running) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Running) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Running) StandardError() float64 {
	if s.n == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

var standardNormal = distuv.Normal{Mu: 0, Sigma: 1}

// ZVal is the two-sided z-score for a confidence level given in percent,
// e.g. 1.96 for 95.
func ZVal(pct float64) float64 {
	return standardNormal.Quantile(0.5 + pct/200)
}

// ConfidenceInterval returns the half-width of the interval around the mean
// at the given confidence, in percent.
func (s *Running) ConfidenceInterval(pct float64) float64 {
	return ZVal(pct) * s.StandardError()
}

func (s *Running) Min() float64 {
	return s.min
}

func (s *Running) Max() float64 {
	return s.max
}

func (s *Running) Last() float64 {
	return s.last
}

func (s *Running) Count() int {
	return s.n
}
