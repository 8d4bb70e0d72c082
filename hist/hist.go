// Package hist accumulates fixed-binning 1D and 2D histograms of chain
// samples file by file, and turns them into credible-region density
// thresholds.
package hist

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Edges returns bins+1 evenly spaced edges from min to max. An empty
// range is widened by 0.5 on both sides.
func Edges(min, max float64, bins int) ([]float64, error) {
	if bins < 1 {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("%d bins", bins)}
	}
	if min == max {
		min -= 0.5
		max += 0.5
	}
	return floats.Span(make([]float64, bins+1), min, max), nil
}

// EdgesOf returns the edges spanning the values of x.
func EdgesOf(x []float64, bins int) ([]float64, error) {
	if len(x) == 0 {
		return nil, &diag.ShapeError{Msg: "no samples to set bin edges"}
	}
	min, max := diag.MinMax(x)
	return Edges(min, max, bins)
}

// bin returns the bin of v, or -1 when v is outside the edges. Bins
// are half-open except the last one, which includes its right edge.
func bin(edges []float64, v float64) int {
	last := len(edges) - 1
	if v < edges[0] || v > edges[last] {
		return -1
	}
	if v == edges[last] {
		return last - 1
	}
	return sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
}

// Hist1D is a one-dimensional histogram.
type Hist1D struct {
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// NewHist1D creates an empty histogram over edges.
func NewHist1D(edges []float64) *Hist1D {
	return &Hist1D{Edges: edges, Counts: make([]float64, len(edges)-1)}
}

// Fill adds the samples of x; values outside the edges are dropped.
func (h *Hist1D) Fill(x []float64) {
	for _, v := range x {
		if i := bin(h.Edges, v); i >= 0 {
			h.Counts[i]++
		}
	}
}

// Add adds the counts of o, which must share the edges.
func (h *Hist1D) Add(o *Hist1D) {
	floats.Add(h.Counts, o.Counts)
}

// Total returns the accumulated mass.
func (h *Hist1D) Total() float64 {
	return floats.Sum(h.Counts)
}

// Centers returns the bin midpoints.
func (h *Hist1D) Centers() []float64 {
	c := make([]float64, len(h.Counts))
	for i := range c {
		c[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return c
}

// Normalized returns counts divided by the total mass, or nil for an
// empty histogram.
func (h *Hist1D) Normalized() []float64 {
	total := h.Total()
	if total == 0 {
		return nil
	}
	n := append([]float64(nil), h.Counts...)
	floats.Scale(1/total, n)
	return n
}

// Hist2D is a two-dimensional histogram over the product of two edge
// sets. Counts are stored row-major by x bin.
type Hist2D struct {
	XEdges []float64 `json:"xEdges"`
	YEdges []float64 `json:"yEdges"`
	Counts []float64 `json:"counts"`
}

// NewHist2D creates an empty 2D histogram.
func NewHist2D(xedges, yedges []float64) *Hist2D {
	return &Hist2D{
		XEdges: xedges,
		YEdges: yedges,
		Counts: make([]float64, (len(xedges)-1)*(len(yedges)-1)),
	}
}

// Dims returns the number of x and y bins.
func (h *Hist2D) Dims() (nx, ny int) {
	return len(h.XEdges) - 1, len(h.YEdges) - 1
}

// At returns the count of bin (i, j).
func (h *Hist2D) At(i, j int) float64 {
	_, ny := h.Dims()
	return h.Counts[i*ny+j]
}

// Fill adds the sample pairs (x[k], y[k]).
func (h *Hist2D) Fill(x, y []float64) error {
	if len(x) != len(y) {
		return &diag.ShapeError{Msg: fmt.Sprintf("paired series of length %d and %d", len(x), len(y))}
	}
	_, ny := h.Dims()
	for k := range x {
		i := bin(h.XEdges, x[k])
		j := bin(h.YEdges, y[k])
		if i >= 0 && j >= 0 {
			h.Counts[i*ny+j]++
		}
	}
	return nil
}

// Add adds the counts of o, which must share the edges.
func (h *Hist2D) Add(o *Hist2D) {
	floats.Add(h.Counts, o.Counts)
}

// Total returns the accumulated mass.
func (h *Hist2D) Total() float64 {
	return floats.Sum(h.Counts)
}
