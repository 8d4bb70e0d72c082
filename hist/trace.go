package hist

import (
	"bitbucket.org/Davydov/chaindiag/diag"
)

// Default trace binning.
const (
	TraceXBins = 1000
	TraceYBins = 100
)

// Trace accumulates heat-map trace plots: for every key, a 2D
// histogram of iteration number against value, summed over chains.
// The iteration range comes from the length of the first chain, the
// value range of each key from its first chain.
type Trace struct {
	xbins, ybins int
	keys         []string
	transform    Transform

	xedges []float64
	yedges map[string][]float64
	hists  map[string]*Hist2D
}

// NewTrace creates a Trace accumulator.
func NewTrace(xbins, ybins int, keys []string, transform Transform) (*Trace, error) {
	if _, err := Edges(0, 1, xbins); err != nil {
		return nil, err
	}
	if _, err := Edges(0, 1, ybins); err != nil {
		return nil, err
	}
	if transform == nil {
		transform = func(string) func(float64) float64 { return nil }
	}
	return &Trace{
		xbins:     xbins,
		ybins:     ybins,
		keys:      append([]string(nil), keys...),
		transform: transform,
		yedges:    make(map[string][]float64),
		hists:     make(map[string]*Hist2D),
	}, nil
}

// Fork returns an empty Trace with the same frozen edges.
func (t *Trace) Fork() *Trace {
	f, _ := NewTrace(t.xbins, t.ybins, t.keys, t.transform)
	f.xedges = t.xedges
	for k, e := range t.yedges {
		f.yedges[k] = e
	}
	return f
}

// Add adds the complete (untrimmed) chains of one file.
func (t *Trace) Add(file string, series map[string][]float64) error {
	for _, key := range t.keys {
		x, ok := series[key]
		if !ok || len(x) == 0 {
			return &diag.ShapeError{File: file, Key: key, Msg: "empty series"}
		}
		if !diag.AllFinite(x) {
			return &diag.ShapeError{File: file, Key: key, Msg: "non-finite samples"}
		}
		y := append([]float64(nil), x...)
		if f := t.transform(key); f != nil {
			for i, v := range y {
				y[i] = f(v)
			}
		}
		if t.xedges == nil {
			e, err := Edges(0, float64(len(y)), t.xbins)
			if err != nil {
				return err
			}
			t.xedges = e
		}
		if t.yedges[key] == nil {
			e, err := EdgesOf(y, t.ybins)
			if err != nil {
				return diag.Locate(err, file, key)
			}
			t.yedges[key] = e
		}
		iter := make([]float64, len(y))
		for i := range iter {
			iter[i] = float64(i)
		}
		h := t.hists[key]
		if h == nil {
			h = NewHist2D(t.xedges, t.yedges[key])
			t.hists[key] = h
		}
		if err := h.Fill(iter, y); err != nil {
			return diag.Locate(err, file, key)
		}
	}
	return nil
}

// Merge adds the heat maps of o, a fork of t.
func (t *Trace) Merge(o *Trace) error {
	if t.xedges == nil {
		t.xedges = o.xedges
	}
	for _, key := range o.keys {
		src := o.hists[key]
		if src == nil {
			continue
		}
		if t.yedges[key] == nil {
			t.yedges[key] = o.yedges[key]
		} else if !sameEdges(t.yedges[key], o.yedges[key]) || !sameEdges(t.xedges, o.xedges) {
			return &diag.ShapeError{Key: key, Msg: "merging traces with different edges"}
		}
		h := t.hists[key]
		if h == nil {
			h = NewHist2D(t.xedges, t.yedges[key])
			t.hists[key] = h
		}
		h.Add(src)
	}
	return nil
}

// Keys returns the traced keys.
func (t *Trace) Keys() []string { return append([]string(nil), t.keys...) }

// Hist returns the heat map of key.
func (t *Trace) Hist(key string) *Hist2D {
	return t.hists[key]
}
