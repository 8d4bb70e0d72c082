package diag

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of x.
func Mean(x []float64) float64 {
	return stat.Mean(x, nil)
}

// SumSquares returns the sum of squared deviations from mean.
func SumSquares(x []float64, mean float64) (s float64) {
	for _, v := range x {
		d := v - mean
		s += d * d
	}
	return
}

// MeanVariance returns the mean and the unbiased (n-1) variance.
func MeanVariance(x []float64) (mean, variance float64) {
	return stat.MeanVariance(x, nil)
}

// Diff returns consecutive differences x[i+1]-x[i].
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	d := make([]float64, len(x)-1)
	floats.SubTo(d, x[1:], x[:len(x)-1])
	return d
}

// MinMax returns the smallest and the largest value of a non-empty x.
func MinMax(x []float64) (min, max float64) {
	return floats.Min(x), floats.Max(x)
}

// AllFinite reports whether x contains no NaN or infinite values.
func AllFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NextPow2 returns the smallest power of two not less than n (n >= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
