// Package acf estimates autocorrelation functions of chains and
// averages them over all chains of a parameter.
package acf

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Estimator returns autocorrelations of x for lags 0..lags-1.
type Estimator func(x []float64, lags int) ([]float64, error)

// check validates the input and returns the mean and the sum of
// squared deviations.
func check(x []float64, lags int) (mean, ss float64, err error) {
	if lags < 1 {
		return 0, 0, &diag.ShapeError{Msg: fmt.Sprintf("lag range %d < 1", lags)}
	}
	if len(x) == 0 {
		return 0, 0, &diag.ShapeError{Msg: "empty series"}
	}
	mean = diag.Mean(x)
	ss = diag.SumSquares(x, mean)
	if ss == 0 {
		return 0, 0, &diag.DegenerateError{Msg: "constant series has no autocorrelation"}
	}
	return mean, ss, nil
}

// Naive computes the lag-l sample autocorrelation directly, O(n*lags).
// Lags without overlap are zero.
func Naive(x []float64, lags int) ([]float64, error) {
	mean, ss, err := check(x, lags)
	if err != nil {
		return nil, err
	}
	n := len(x)
	r := make([]float64, lags)
	for l := 0; l < lags && l < n; l++ {
		var s float64
		for i := 0; i+l < n; i++ {
			s += (x[i] - mean) * (x[i+l] - mean)
		}
		r[l] = s / ss
	}
	return r, nil
}

// Spectral computes the autocorrelation through the power spectrum.
// The centred series is zero-padded to at least 2n-1 samples, rounded
// up to a power of two, so the circular correlation has no wraparound
// for lags below n.
func Spectral(x []float64, lags int) ([]float64, error) {
	mean, _, err := check(x, lags)
	if err != nil {
		return nil, err
	}
	n := len(x)
	size := diag.NextPow2(2*n - 1)

	padded := make([]float64, size)
	for i, v := range x {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(size)
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = c * cmplx.Conj(c)
	}
	corr := fft.Sequence(nil, coeff)

	// corr[0] is n*var times the transform scale
	r := make([]float64, lags)
	for l := 0; l < lags && l < n; l++ {
		r[l] = corr[l] / corr[0]
	}
	return r, nil
}

// Averager accumulates per-key autocorrelations of many chains with
// equal weight per chain.
type Averager struct {
	lags      int
	estimator Estimator
	keys      []string
	sums      map[string][]float64
	counts    map[string]int
}

// NewAverager creates an Averager for lags 0..lags-1.
func NewAverager(lags int, estimator Estimator) *Averager {
	if estimator == nil {
		estimator = Spectral
	}
	return &Averager{
		lags:      lags,
		estimator: estimator,
		sums:      make(map[string][]float64),
		counts:    make(map[string]int),
	}
}

// Lags returns the lag range.
func (a *Averager) Lags() int {
	return a.lags
}

// Add estimates the autocorrelation of one chain and adds it to key.
func (a *Averager) Add(key string, x []float64) error {
	r, err := a.estimator(x, a.lags)
	if err != nil {
		return diag.Locate(err, "", key)
	}
	a.add(key, r, 1)
	return nil
}

func (a *Averager) add(key string, r []float64, count int) {
	s, ok := a.sums[key]
	if !ok {
		s = make([]float64, a.lags)
		a.sums[key] = s
		a.keys = append(a.keys, key)
	}
	for l, v := range r {
		s[l] += v
	}
	a.counts[key] += count
}

// Merge adds the sums of b, which must have the same lag range.
func (a *Averager) Merge(b *Averager) error {
	if b.lags != a.lags {
		return &diag.ShapeError{Msg: fmt.Sprintf("merging lag ranges %d and %d", a.lags, b.lags)}
	}
	for _, key := range b.keys {
		a.add(key, b.sums[key], b.counts[key])
	}
	return nil
}

// Drop removes key and the chains added for it.
func (a *Averager) Drop(key string) {
	if _, ok := a.sums[key]; !ok {
		return
	}
	delete(a.sums, key)
	delete(a.counts, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i:i], a.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in the order they were first added.
func (a *Averager) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Chains returns the number of chains added for key.
func (a *Averager) Chains(key string) int {
	return a.counts[key]
}

// Mean returns the autocorrelation of key averaged over chains.
func (a *Averager) Mean(key string) []float64 {
	n := a.counts[key]
	if n == 0 {
		return nil
	}
	m := make([]float64, a.lags)
	for l, v := range a.sums[key] {
		m[l] = v / float64(n)
	}
	return m
}

// All returns every key's mean autocorrelation.
func (a *Averager) All() map[string][]float64 {
	all := make(map[string][]float64, len(a.keys))
	for _, k := range a.keys {
		all[k] = a.Mean(k)
	}
	return all
}
