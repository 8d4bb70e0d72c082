package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/chaindiag/analysis"
	"bitbucket.org/Davydov/chaindiag/chain"
	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/rhat"
	"bitbucket.org/Davydov/chaindiag/sampler"
	"bitbucket.org/Davydov/chaindiag/sim"
)

func TestParseParameter(t *testing.T) {
	p, err := parseParameter("th13:0.1:0.01:0.02")
	require.NoError(t, err)
	assert.Equal(t, sim.Parameter{Name: "th13", Mu: 0.1, Sigma: 0.01, Start: 0.1, Step: 0.02}, p)

	for _, s := range []string{"th13", ":1:1:1", "x:a:1:1", "x:0:0:1", "x:0:1:-1"} {
		_, err := parseParameter(s)
		assert.True(t, errors.Is(err, diag.ErrConfiguration), s)
	}
}

func report(t *testing.T) *analysis.Report {
	t.Helper()
	files, err := sim.WriteChains(t.TempDir(), sim.Settings{
		Chains:     2,
		Iterations: 200,
		Location:   sampler.Stan.Location,
		Seed:       5,
		Parameters: defaultParameters["stan"],
	})
	require.NoError(t, err)
	rep, err := analysis.Run(chain.Default, analysis.Options{
		Files:  files,
		BurnIn: 20,
		MaxLag: 10,
		Bins:   10,
	})
	require.NoError(t, err)
	return rep
}

func TestSummary(t *testing.T) {
	rep := report(t)
	rep.Failures[analysis.Trace] = &diag.ShapeError{Key: "Th13", Msg: "broken"}

	j, err := json.Marshal(newSummary(rep))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(j, &got))
	assert.Equal(t, "stan", got["sampler"])
	assert.Len(t, got["keys"], 4)
	assert.Contains(t, got["rhat"], "Th13")
	assert.Contains(t, got["credible"], "DmSq32 vs Th13")
	counts := got["histograms"].(map[string]interface{})["Th23"].(map[string]interface{})["counts"]
	assert.Contains(t, counts, "full")
	assert.Contains(t, counts, "second")
	assert.Contains(t, got["failures"].(map[string]interface{})["trace"], "broken")
}

func TestSummaryKeepsKeysApart(t *testing.T) {
	rep := &analysis.Report{
		Sampler: sampler.Aria,
		Keys:    []string{"_x", "x"},
		RHat: map[string]rhat.Result{
			"_x": {RHat: 1.5},
			"x":  {RHat: 1.01},
		},
		KeyFailures: map[analysis.Diagnostic]map[string]error{
			analysis.Autocorrelation: {"x": &diag.DegenerateError{File: "c1.db", Key: "x", Msg: "zero variance"}},
		},
	}
	s := newSummary(rep)
	assert.Equal(t, []KeySummary{{Key: "_x", Name: "x"}, {Key: "x", Name: "x"}}, s.Keys)
	assert.Equal(t, 1.5, s.RHat["_x"].RHat)
	assert.Equal(t, 1.01, s.RHat["x"].RHat)
	assert.Contains(t, s.KeyFailures[analysis.Autocorrelation]["x"], "c1.db")

	path := filepath.Join(t.TempDir(), "chaindiag.prom")
	require.NoError(t, writeMetrics(path, rep, time.Second))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, `chaindiag_rhat{key="_x",sampler="aria"} 1.5`)
	assert.Contains(t, text, `chaindiag_rhat{key="x",sampler="aria"} 1.01`)
	assert.Contains(t, text, `chaindiag_key_failed{diagnostic="autocorrelation",key="x"} 1`)
}

func TestMetrics(t *testing.T) {
	rep := report(t)
	path := filepath.Join(t.TempDir(), "chaindiag.prom")
	require.NoError(t, writeMetrics(path, rep, 2*time.Second))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, `chaindiag_rhat{key="Th13",sampler="stan"}`)
	assert.Contains(t, text, `chaindiag_step_acceptance_percent{kind="target",sampler="stan"} 80`)
	assert.Contains(t, text, `chaindiag_diagnostic_failed{diagnostic="trace"} 0`)
	assert.Contains(t, text, "chaindiag_chains 2")
	assert.True(t, strings.Contains(text, "chaindiag_run_duration_seconds 2"))
}
