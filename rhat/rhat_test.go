package rhat

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"

	"bitbucket.org/Davydov/chaindiag/diag"
)

const smallDiff = 1e-6

// appreq tests if a and b are approximately equal.
func appreq(a, b float64) bool {
	return math.Abs(a-b) <= smallDiff
}

func normal(n int, mu, sd float64, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = mu + sd*r.NormFloat64()
	}
	return x
}

// batch is the textbook computation on complete chains.
func batch(chains [][]float64) float64 {
	m := float64(len(chains))
	n := float64(len(chains[0]))
	var w, grand float64
	means := make([]float64, len(chains))
	for i, c := range chains {
		means[i] = stat.Mean(c, nil)
		w += stat.Variance(c, nil)
		grand += means[i]
	}
	w /= m
	grand /= m
	var b float64
	for _, mu := range means {
		b += (mu - grand) * (mu - grand)
	}
	b *= n / (m - 1)
	return math.Sqrt(((n-1)/n*w + b/n) / w)
}

func TestSummary(t *testing.T) {
	x := normal(1000, 3, 2, 1)
	s := Summarize(x)
	mean, variance := stat.MeanVariance(x, nil)
	if s.N != 1000 {
		t.Errorf("N=%d, expected 1000", s.N)
	}
	if !appreq(s.Mean, mean) || !appreq(s.Variance(), variance) {
		t.Errorf("mean=%v variance=%v, expected %v and %v", s.Mean, s.Variance(), mean, variance)
	}

	var merged Summary
	merged.Merge(Summarize(x[:300]))
	merged.Merge(Summarize(x[300:]))
	merged.Merge(Summary{})
	if merged.N != s.N || !appreq(merged.Mean, s.Mean) || !appreq(merged.M2, s.M2) {
		t.Errorf("merged %+v, expected %+v", merged, s)
	}
}

func TestIdenticalChains(t *testing.T) {
	// (n-1)/n*W dominates, so n must be large for R-hat to reach 1
	const n = 2000000
	r := rand.New(rand.NewSource(7))
	var s Summary
	for i := 0; i < n; i++ {
		s.Add(r.NormFloat64())
	}
	got, err := GelmanRubin([]Summary{s, s, s, s})
	if err != nil {
		t.Fatal(err)
	}
	if !appreq(got, 1) {
		t.Errorf("identical chains: R-hat=%v, expected 1", got)
	}
}

func TestAgreesWithBatch(t *testing.T) {
	chains := [][]float64{
		normal(500, 0, 1, 1),
		normal(500, 0.2, 1, 2),
		normal(500, -0.1, 1.5, 3),
	}
	summaries := make([]Summary, len(chains))
	for i, c := range chains {
		summaries[i] = Summarize(c)
	}
	got, err := GelmanRubin(summaries)
	if err != nil {
		t.Fatal(err)
	}
	if e := batch(chains); !appreq(got, e) {
		t.Errorf("R-hat=%v, expected %v", got, e)
	}
}

func TestSeparatedChains(t *testing.T) {
	chains := []Summary{
		Summarize(normal(1000, 0, 0.1, 1)),
		Summarize(normal(1000, 5, 0.1, 2)),
		Summarize(normal(1000, 10, 0.1, 3)),
	}
	got, err := GelmanRubin(chains)
	if err != nil {
		t.Fatal(err)
	}
	if got <= 1.1 {
		t.Errorf("separated chains: R-hat=%v, expected > 1.1", got)
	}
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		chains []Summary
		err    error
	}{
		{"one chain", []Summary{Summarize([]float64{1, 2})}, diag.ErrDataShape},
		{"unequal lengths", []Summary{Summarize([]float64{1, 2}), Summarize([]float64{1, 2, 3})}, diag.ErrDataShape},
		{"one sample", []Summary{Summarize([]float64{1}), Summarize([]float64{2})}, diag.ErrDataShape},
		{"no variance", []Summary{Summarize([]float64{1, 1, 1}), Summarize([]float64{2, 2, 2})}, diag.ErrDegenerate},
	} {
		if _, err := GelmanRubin(tc.chains); !errors.Is(err, tc.err) {
			t.Errorf("%s: %v, expected %v", tc.name, err, tc.err)
		}
	}
}

func TestSplit(t *testing.T) {
	first, second, err := Split([]float64{1, 2, 100, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if first.N != 2 || second.N != 2 {
		t.Errorf("halves of %d and %d samples, expected 2", first.N, second.N)
	}
	if !appreq(first.Mean, 1.5) || !appreq(second.Mean, 3.5) {
		t.Errorf("half means %v and %v, expected 1.5 and 3.5", first.Mean, second.Mean)
	}

	if _, _, err = Split([]float64{1, 2, 3}); !errors.Is(err, diag.ErrDataShape) {
		t.Error("three samples:", err)
	}
}

func TestWithinChain(t *testing.T) {
	stationary := normal(4000, 1, 1, 11)
	got, err := WithinChain(stationary)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1) > 0.02 {
		t.Errorf("stationary chain: %v, expected 1", got)
	}

	// drifting chain: second half shifted
	drift := append(normal(2000, 0, 0.1, 12), normal(2000, 3, 0.1, 13)...)
	if got, err = WithinChain(drift); err != nil {
		t.Fatal(err)
	}
	if got <= 1.1 {
		t.Errorf("drifting chain: %v, expected > 1.1", got)
	}
}

func TestEngine(t *testing.T) {
	e := NewEngine()
	for _, c := range []struct {
		file, key string
		x         []float64
	}{
		{"a.db", "mu", normal(1000, 0, 1, 1)},
		{"b.db", "mu", normal(1000, 0, 1, 2)},
		{"a.db", "sigma", normal(1000, 4, 1, 3)},
	} {
		if err := e.Add(c.file, c.key, c.x); err != nil {
			t.Fatal(err)
		}
	}

	r, err := e.Result("mu")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.RHat-1) > 0.01 {
		t.Errorf("R-hat of mu %v, expected 1", r.RHat)
	}
	if len(r.Within) != 2 || len(r.Files) != 2 || r.Files[0] != "a.db" || r.Files[1] != "b.db" {
		t.Errorf("mu chains %v %v", r.Files, r.Within)
	}

	// a single chain for sigma cannot give a between-chain statistic
	_, err = e.Result("sigma")
	var se *diag.ShapeError
	if !errors.As(err, &se) || se.Key != "sigma" {
		t.Errorf("single chain of sigma: %v", err)
	}

	// the failing key does not hide the others
	results, failed := e.Results()
	if _, ok := results["mu"]; !ok {
		t.Error("no result for mu")
	}
	if _, ok := results["sigma"]; ok {
		t.Error("result for sigma")
	}
	if !errors.Is(failed["sigma"], diag.ErrDataShape) || len(failed) != 1 {
		t.Errorf("failed keys %v", failed)
	}

	err = e.Add("c.db", "mu", []float64{1, 1, 1, 1})
	var de *diag.DegenerateError
	if !errors.As(err, &de) || de.File != "c.db" || de.Key != "mu" {
		t.Errorf("constant chain: %v", err)
	}
}

func TestEngineDrop(t *testing.T) {
	e := NewEngine()
	for i, key := range []string{"x", "y", "x", "y"} {
		if err := e.Add("f.db", key, normal(100, 0, 1, int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	e.Drop("x")
	e.Drop("missing")
	if keys := e.Keys(); len(keys) != 1 || keys[0] != "y" {
		t.Errorf("keys %v, expected [y]", keys)
	}
	results, failed := e.Results()
	if len(results) != 1 || failed != nil {
		t.Errorf("results %v, failed %v", results, failed)
	}
}

func TestEngineMerge(t *testing.T) {
	chains := [][]float64{normal(400, 0, 1, 1), normal(400, 0.5, 1, 2), normal(400, 1, 1, 3)}
	seq := NewEngine()
	merged := NewEngine()
	for i, c := range chains {
		file := string(rune('a'+i)) + ".db"
		if err := seq.Add(file, "x", c); err != nil {
			t.Fatal(err)
		}
		part := NewEngine()
		if err := part.Add(file, "x", c); err != nil {
			t.Fatal(err)
		}
		merged.Merge(part)
	}
	rs, _ := seq.Results()
	rm, failed := merged.Results()
	if failed != nil {
		t.Fatal(failed)
	}
	if rs["x"].RHat != rm["x"].RHat {
		t.Errorf("sequential R-hat %v, merged %v", rs["x"].RHat, rm["x"].RHat)
	}
	for i := range rs["x"].Files {
		if rs["x"].Files[i] != rm["x"].Files[i] || rs["x"].Within[i] != rm["x"].Within[i] {
			t.Errorf("chain %d differs", i)
		}
	}
	if keys := merged.Keys(); len(keys) != 1 || keys[0] != "x" {
		t.Errorf("keys %v", keys)
	}
}
