// Package rhat computes the Gelman-Rubin potential scale reduction
// statistic between chains and, on split halves, within each chain.
//
// Chains enter as running summaries (count, mean, sum of squared
// deviations), so a chain never has to stay in memory after it was
// read.
package rhat

import (
	"fmt"
	"math"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Summary holds running moments of one chain.
type Summary struct {
	N    int
	Mean float64
	// M2 is the sum of squared deviations from Mean.
	M2 float64
}

// Add updates the summary with one sample (Welford).
func (s *Summary) Add(x float64) {
	s.N++
	delta := x - s.Mean
	s.Mean += delta / float64(s.N)
	s.M2 += delta * (x - s.Mean)
}

// AddAll adds every sample of x.
func (s *Summary) AddAll(x []float64) {
	for _, v := range x {
		s.Add(v)
	}
}

// Merge combines two summaries of consecutive parts of a chain.
func (s *Summary) Merge(o Summary) {
	if o.N == 0 {
		return
	}
	if s.N == 0 {
		*s = o
		return
	}
	n := s.N + o.N
	delta := o.Mean - s.Mean
	s.M2 += o.M2 + delta*delta*float64(s.N)*float64(o.N)/float64(n)
	s.Mean += delta * float64(o.N) / float64(n)
	s.N = n
}

// Variance returns the unbiased variance; it needs N >= 2.
func (s Summary) Variance() float64 {
	return s.M2 / float64(s.N-1)
}

// Summarize returns the summary of x.
func Summarize(x []float64) (s Summary) {
	s.AddAll(x)
	return
}

// GelmanRubin returns sqrt(var_hat/W), where W is the mean within-chain
// variance, B = n/(m-1)*sum((mean_j-mean)^2) and
// var_hat = (n-1)/n*W + B/n. All chains must have the same length n.
func GelmanRubin(chains []Summary) (float64, error) {
	m := len(chains)
	if m < 2 {
		return 0, &diag.ShapeError{Msg: fmt.Sprintf("%d chain(s), need at least 2", m)}
	}
	n := chains[0].N
	for _, c := range chains {
		if c.N != n {
			return 0, &diag.ShapeError{Msg: fmt.Sprintf("chain lengths differ (%d and %d)", n, c.N)}
		}
	}
	if n < 2 {
		return 0, &diag.ShapeError{Msg: fmt.Sprintf("chain length %d, need at least 2", n)}
	}

	var w, grand float64
	for _, c := range chains {
		w += c.Variance()
		grand += c.Mean
	}
	w /= float64(m)
	grand /= float64(m)
	if w == 0 {
		return 0, &diag.DegenerateError{Msg: "zero within-chain variance"}
	}

	var b float64
	for _, c := range chains {
		d := c.Mean - grand
		b += d * d
	}
	fn := float64(n)
	b *= fn / float64(m-1)

	v := (fn-1)/fn*w + b/fn
	return math.Sqrt(v / w), nil
}

// Split summarizes both halves of x. Halves have n/2 samples; for odd
// n the middle sample is dropped.
func Split(x []float64) (first, second Summary, err error) {
	n := len(x)
	if n < 4 {
		return first, second, &diag.ShapeError{Msg: fmt.Sprintf("%d samples, need at least 4 to split", n)}
	}
	h := n / 2
	first = Summarize(x[:h])
	second = Summarize(x[n-h:])
	return
}

// WithinChain returns the statistic of the two halves of x treated as
// two chains. Values far from 1 mean the chain itself is not
// stationary.
func WithinChain(x []float64) (float64, error) {
	first, second, err := Split(x)
	if err != nil {
		return 0, err
	}
	return GelmanRubin([]Summary{first, second})
}
