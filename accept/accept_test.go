package accept

import (
	"errors"
	"math"
	"testing"

	"bitbucket.org/Davydov/chaindiag/diag"
)

const smallDiff = 1e-9

func appreq(a, b float64) bool {
	return math.Abs(a-b) <= smallDiff
}

func TestCount(t *testing.T) {
	for _, tc := range []struct {
		x        []float64
		accepted int
		steps    int
	}{
		{[]float64{1, 2, 3, 4, 5}, 4, 4},
		{[]float64{7, 7, 7}, 0, 2},
		{[]float64{1, 1, 2}, 1, 2},
	} {
		a, s, err := Count(tc.x)
		if err != nil {
			t.Fatal(err)
		}
		if a != tc.accepted || s != tc.steps {
			t.Errorf("%v: %d of %d accepted, expected %d of %d", tc.x, a, s, tc.accepted, tc.steps)
		}
	}

	if _, _, err := Count([]float64{1}); !errors.Is(err, diag.ErrDataShape) {
		t.Error("single sample:", err)
	}
}

func TestMonotonicAndConstant(t *testing.T) {
	var tr Tracker
	if err := tr.Add("up.db", []float64{-3, -1, 0, 2, 10}); err != nil {
		t.Fatal(err)
	}
	r, err := tr.Result()
	if err != nil {
		t.Fatal(err)
	}
	if r.Total != 100 {
		t.Errorf("increasing chain: %v%%, expected 100%%", r.Total)
	}

	var tc Tracker
	if err := tc.Add("flat.db", []float64{1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if r, err = tc.Result(); err != nil {
		t.Fatal(err)
	}
	if r.Total != 0 {
		t.Errorf("constant chain: %v%%, expected 0%%", r.Total)
	}
}

func TestWeightedTotal(t *testing.T) {
	var tr Tracker
	// 3 of 4 steps accepted
	if err := tr.Add("a.db", []float64{0, 1, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	// 1 of 10 steps accepted
	if err := tr.Add("b.db", []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5}); err != nil {
		t.Fatal(err)
	}

	r, err := tr.Result()
	if err != nil {
		t.Fatal(err)
	}
	if len(r.PerChain) != 2 || r.PerChain[0] != 75 || r.PerChain[1] != 10 {
		t.Errorf("per chain %v, expected [75 10]", r.PerChain)
	}
	if !appreq(r.Total, 100*4.0/14.0) {
		t.Errorf("total %v, expected %v", r.Total, 100*4.0/14.0)
	}
	if r.Chains[1].File != "b.db" {
		t.Errorf("second chain from %s", r.Chains[1].File)
	}
}

func TestMerge(t *testing.T) {
	var a, b Tracker
	if err := a.Add("a.db", []float64{0, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := b.Add("b.db", []float64{0, 1, 2}); err != nil {
		t.Fatal(err)
	}
	a.Merge(&b)
	r, err := a.Result()
	if err != nil {
		t.Fatal(err)
	}
	if !appreq(r.Total, 75) {
		t.Errorf("merged total %v, expected 75", r.Total)
	}

	var empty Tracker
	if _, err := empty.Result(); err == nil {
		t.Error("result without chains")
	}

	err = empty.Add("short.db", []float64{1})
	var se *diag.ShapeError
	if !errors.As(err, &se) || se.File != "short.db" {
		t.Errorf("short chain: %v", err)
	}
}

func TestAssess(t *testing.T) {
	a := Assess(24, 23.4)
	if !a.Healthy || a.Advice != Keep {
		t.Errorf("24%% of 23.4%%: %+v", a)
	}
	if s := a.Event(24, "aria").Severity; s != diag.Info {
		t.Errorf("healthy event severity %v", s)
	}

	a = Assess(10, 23.4)
	if a.Healthy || a.Advice != DecreaseStep {
		t.Errorf("10%% of 23.4%%: %+v", a)
	}
	e := a.Event(10, "aria")
	if e.Severity != diag.Warning {
		t.Errorf("unhealthy event severity %v", e.Severity)
	}
	if e.Context["advice"] != "decrease step size" {
		t.Errorf("advice %v", e.Context["advice"])
	}

	a = Assess(95, 65)
	if a.Healthy || a.Advice != IncreaseStep {
		t.Errorf("95%% of 65%%: %+v", a)
	}
	if !appreq(a.Distance, 30/65.0*100) {
		t.Errorf("distance %v, expected %v", a.Distance, 30/65.0*100)
	}
}
