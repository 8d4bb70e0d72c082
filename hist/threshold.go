package hist

import (
	"fmt"
	"sort"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Sigma levels: the mass within one, two and three standard deviations
// of a normal distribution.
var Sigma = []float64{0.6827, 0.9545, 0.9973}

// CheckLevels validates cumulative levels: ascending, in (0, 1].
func CheckLevels(levels []float64) error {
	if len(levels) == 0 {
		return &diag.ConfigError{Msg: "no credible levels"}
	}
	for i, l := range levels {
		if l <= 0 || l > 1 {
			return &diag.ConfigError{Msg: fmt.Sprintf("credible level %v outside (0, 1]", l)}
		}
		if i > 0 && l < levels[i-1] {
			return &diag.ConfigError{Msg: fmt.Sprintf("credible levels not ascending: %v", levels)}
		}
	}
	return nil
}

// Thresholds returns, for every level, the density of the first cell,
// in order of decreasing density, at which the cumulative mass reaches
// level*total. Cells with density at or above a threshold hold at
// least that level of the mass; higher levels give lower thresholds.
func Thresholds(counts []float64, levels []float64) ([]float64, error) {
	if err := CheckLevels(levels); err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, &diag.ShapeError{Msg: "empty histogram"}
	}
	sorted := append([]float64(nil), counts...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cdf := make([]float64, len(sorted))
	var sum float64
	for i, v := range sorted {
		sum += v
		cdf[i] = sum
	}
	total := cdf[len(cdf)-1]
	if total <= 0 {
		return nil, &diag.DegenerateError{Msg: "histogram has no mass"}
	}

	thr := make([]float64, len(levels))
	for i, l := range levels {
		target := l * total
		idx := sort.Search(len(cdf), func(k int) bool { return cdf[k] >= target })
		if idx == len(cdf) {
			idx = len(cdf) - 1
		}
		thr[i] = sorted[idx]
	}
	return thr, nil
}
