package hist

import (
	"fmt"

	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/sampler"
)

// Partition names a subset of the samples.
type Partition int

const (
	// Full is every sample of every chain.
	Full Partition = iota
	// Left is the first half of every chain.
	Left
	// Right is the second half of every chain.
	Right
	// First is the chains of the first half of the file list.
	First
	// Second is the chains of the second half of the file list.
	Second
	numPartitions
)

// Partitions lists all partitions.
var Partitions = []Partition{Full, Left, Right, First, Second}

var partitionNames = [...]string{"full", "left", "right", "first", "second"}

func (p Partition) String() string {
	if p < 0 || p >= numPartitions {
		return fmt.Sprintf("partition(%d)", int(p))
	}
	return partitionNames[p]
}

// MarshalText implements encoding.TextMarshaler, so partitions can key
// JSON objects.
func (p Partition) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Set1D is the partitioned histogram of one key.
type Set1D [numPartitions]*Hist1D

// Set2D is the partitioned histogram of one pair.
type Set2D [numPartitions]*Hist2D

// Transform returns the pre-binning transform of a key, nil for none.
type Transform func(key string) func(float64) float64

// Aggregator accumulates partitioned histograms of keys and key pairs.
// Bin edges of a key are set from the first file and never change.
type Aggregator struct {
	bins      int
	keys      []string
	pairs     []sampler.Pair
	transform Transform

	edges map[string][]float64
	one   map[string]*Set1D
	two   map[sampler.Pair]*Set2D
}

// NewAggregator creates an Aggregator. Both keys of every pair must be
// among keys.
func NewAggregator(bins int, keys []string, pairs []sampler.Pair, transform Transform) (*Aggregator, error) {
	if bins < 1 {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("%d bins", bins)}
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	for _, p := range pairs {
		if !known[p.X] || !known[p.Y] {
			return nil, &diag.ConfigError{Msg: fmt.Sprintf("pair %s: key not histogrammed", p)}
		}
	}
	if transform == nil {
		transform = func(string) func(float64) float64 { return nil }
	}
	return &Aggregator{
		bins:      bins,
		keys:      append([]string(nil), keys...),
		pairs:     append([]sampler.Pair(nil), pairs...),
		transform: transform,
		edges:     make(map[string][]float64),
		one:       make(map[string]*Set1D),
		two:       make(map[sampler.Pair]*Set2D),
	}, nil
}

// Fork returns an empty Aggregator sharing the configuration and the
// frozen edges, for accumulating a subset of files.
func (a *Aggregator) Fork() *Aggregator {
	f, _ := NewAggregator(a.bins, a.keys, a.pairs, a.transform)
	for k, e := range a.edges {
		f.edges[k] = e
	}
	return f
}

// Keys returns the histogrammed keys.
func (a *Aggregator) Keys() []string { return append([]string(nil), a.keys...) }

// Pairs returns the histogrammed pairs.
func (a *Aggregator) Pairs() []sampler.Pair { return append([]sampler.Pair(nil), a.pairs...) }

// Edges returns the frozen edges of key, nil before the first file.
func (a *Aggregator) Edges(key string) []float64 { return a.edges[key] }

// Hist returns the histogram of key in partition p.
func (a *Aggregator) Hist(key string, p Partition) *Hist1D {
	if s := a.one[key]; s != nil {
		return s[p]
	}
	return nil
}

// Hist2D returns the histogram of pair in partition p.
func (a *Aggregator) Hist2D(pair sampler.Pair, p Partition) *Hist2D {
	if s := a.two[pair]; s != nil {
		return s[p]
	}
	return nil
}

func (a *Aggregator) set1D(key string) *Set1D {
	s := a.one[key]
	if s == nil {
		s = new(Set1D)
		for _, p := range Partitions {
			s[p] = NewHist1D(a.edges[key])
		}
		a.one[key] = s
	}
	return s
}

func (a *Aggregator) set2D(pair sampler.Pair) *Set2D {
	s := a.two[pair]
	if s == nil {
		s = new(Set2D)
		for _, p := range Partitions {
			s[p] = NewHist2D(a.edges[pair.X], a.edges[pair.Y])
		}
		a.two[pair] = s
	}
	return s
}

// prepare returns the transformed copy of the series of key.
func (a *Aggregator) prepare(key string, series map[string][]float64) ([]float64, error) {
	x, ok := series[key]
	if !ok {
		return nil, &diag.ShapeError{Key: key, Msg: "series missing"}
	}
	if len(x) == 0 {
		return nil, &diag.ShapeError{Key: key, Msg: "empty series"}
	}
	if !diag.AllFinite(x) {
		return nil, &diag.ShapeError{Key: key, Msg: "non-finite samples"}
	}
	x = append([]float64(nil), x...)
	if f := a.transform(key); f != nil {
		for i, v := range x {
			x[i] = f(v)
		}
	}
	return x, nil
}

// Accumulate adds the chain read from the file with index fileIndex out
// of totalFiles. Every chain is split at its midpoint into the Left and
// Right partitions; the whole chain goes to Full and, depending on the
// file position, to First or Second.
func (a *Aggregator) Accumulate(file string, fileIndex, totalFiles int, series map[string][]float64) error {
	if totalFiles < 1 || fileIndex < 0 || fileIndex >= totalFiles {
		return &diag.ConfigError{File: file, Msg: fmt.Sprintf("file index %d of %d", fileIndex, totalFiles)}
	}
	half := Second
	if float64(fileIndex)/float64(totalFiles) < 0.5 {
		half = First
	}

	data := make(map[string][]float64, len(a.keys))
	for _, key := range a.keys {
		x, err := a.prepare(key, series)
		if err != nil {
			return diag.Locate(err, file, key)
		}
		data[key] = x
		if a.edges[key] == nil {
			e, err := EdgesOf(x, a.bins)
			if err != nil {
				return diag.Locate(err, file, key)
			}
			a.edges[key] = e
		}

		mid := len(x) / 2
		left := NewHist1D(a.edges[key])
		left.Fill(x[:mid])
		right := NewHist1D(a.edges[key])
		right.Fill(x[mid:])

		s := a.set1D(key)
		s[Left].Add(left)
		s[Right].Add(right)
		for _, p := range []Partition{Full, half} {
			s[p].Add(left)
			s[p].Add(right)
		}
	}

	for _, pair := range a.pairs {
		x, y := data[pair.X], data[pair.Y]
		if len(x) != len(y) {
			return &diag.ShapeError{File: file, Key: pair.String(),
				Msg: fmt.Sprintf("paired series of length %d and %d", len(x), len(y))}
		}
		mid := len(x) / 2
		left := NewHist2D(a.edges[pair.X], a.edges[pair.Y])
		left.Fill(x[:mid], y[:mid])
		right := NewHist2D(a.edges[pair.X], a.edges[pair.Y])
		right.Fill(x[mid:], y[mid:])

		s := a.set2D(pair)
		s[Left].Add(left)
		s[Right].Add(right)
		for _, p := range []Partition{Full, half} {
			s[p].Add(left)
			s[p].Add(right)
		}
	}
	return nil
}

func sameEdges(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Merge adds the histograms of o, which must be a fork of a (or of a
// fork of a) with identical edges.
func (a *Aggregator) Merge(o *Aggregator) error {
	for _, key := range o.keys {
		oe := o.edges[key]
		if oe == nil {
			continue
		}
		if a.edges[key] == nil {
			a.edges[key] = oe
		} else if !sameEdges(a.edges[key], oe) {
			return &diag.ShapeError{Key: key, Msg: "merging histograms with different edges"}
		}
		if src := o.one[key]; src != nil {
			s := a.set1D(key)
			for _, p := range Partitions {
				s[p].Add(src[p])
			}
		}
	}
	for _, pair := range o.pairs {
		if src := o.two[pair]; src != nil {
			s := a.set2D(pair)
			for _, p := range Partitions {
				s[p].Add(src[p])
			}
		}
	}
	return nil
}

// Credible returns the density thresholds of levels for every pair and
// partition. Partitions without mass (e.g. Second with a single file)
// are left out.
func (a *Aggregator) Credible(levels []float64) (map[sampler.Pair]map[Partition][]float64, error) {
	if err := CheckLevels(levels); err != nil {
		return nil, err
	}
	all := make(map[sampler.Pair]map[Partition][]float64, len(a.pairs))
	for _, pair := range a.pairs {
		s := a.two[pair]
		if s == nil {
			continue
		}
		byPart := make(map[Partition][]float64)
		for _, p := range Partitions {
			if s[p].Total() == 0 {
				continue
			}
			thr, err := Thresholds(s[p].Counts, levels)
			if err != nil {
				return nil, diag.Locate(err, "", pair.String())
			}
			byPart[p] = thr
		}
		all[pair] = byPart
	}
	return all, nil
}
