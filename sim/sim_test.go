package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"bitbucket.org/Davydov/chaindiag/chain"
)

func TestMH(t *testing.T) {
	pars := []*Parameter{
		{Name: "mu", Mu: 2, Sigma: 0.5, Start: 2, Step: 0.4},
		{Name: "tau", Mu: -1, Sigma: 1, Start: -1, Step: 0.8},
	}
	out := NewMH(pars, 1).Run(40000)
	require.Len(t, out, 4)
	require.Len(t, out["mu"], 40000)
	assert.Equal(t, 39999.0, out[StepKey][39999])

	mean, variance := stat.MeanVariance(out["mu"], nil)
	assert.InDelta(t, 2, mean, 0.05)
	assert.InDelta(t, 0.25, variance, 0.05)

	// joint updates: every parameter moves on the same steps
	for i := 1; i < 100; i++ {
		assert.Equal(t, out["mu"][i] != out["mu"][i-1], out["tau"][i] != out["tau"][i-1])
	}
}

func TestDeterministic(t *testing.T) {
	mk := func() []*Parameter { return []*Parameter{{Name: "x", Sigma: 1, Step: 1}} }
	a := NewMH(mk(), 7).Run(100)
	b := NewMH(mk(), 7).Run(100)
	assert.Equal(t, a, b)
}

func TestWriteChains(t *testing.T) {
	dir := t.TempDir()
	files, err := WriteChains(dir, Settings{
		Chains:     3,
		Iterations: 200,
		Location:   "run/samples",
		Seed:       1,
		Parameters: []Parameter{{Name: "th13", Sigma: 1, Step: 0.5}},
		Spread:     10,
	})
	require.NoError(t, err)
	require.Len(t, files, 3)

	c, err := chain.Open(files[2])
	require.NoError(t, err)
	defer c.Close()
	keys, err := c.Keys("run/samples")
	require.NoError(t, err)
	assert.Equal(t, []string{LogProbKey, StepKey, "th13"}, keys)
	x, err := c.Read("run/samples", "th13")
	require.NoError(t, err)
	// third chain starts two spreads away from the target
	assert.InDelta(t, 20, x[0], 3)

	_, err = WriteChains(dir, Settings{})
	assert.Error(t, err)
}

