package chain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/chaindiag/diag"
)

func TestBoltRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "chain_0.db")
	series := map[string][]float64{
		"theta":   {1, 2.5, -3, 1e-300},
		"logprob": {-10, -9, -9, -8},
	}
	require.NoError(t, Write(fn, "samples/samples", series))

	c, err := Open(fn)
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Has("samples/samples"))
	assert.True(t, c.Has("samples"))
	assert.False(t, c.Has("run/samples"))

	keys, err := c.Keys("samples/samples")
	require.NoError(t, err)
	assert.Equal(t, []string{"logprob", "theta"}, keys)

	got, err := c.Read("samples/samples", "theta")
	require.NoError(t, err)
	assert.Equal(t, series["theta"], got)

	_, err = c.Read("samples/samples", "missing")
	assert.Error(t, err)
	_, err = c.Keys("run/samples")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "traj.tsv")
	content := "# run/samples\n" +
		"iteration\tlikelihood\tomega\n" +
		"0\t-100.5\t0.3\n" +
		"\n" +
		"10\t-99.25\t0.35\n"
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))

	c, err := Open(fn)
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Has("run/samples"))
	assert.False(t, c.Has(DefaultTextLocation))
	keys, err := c.Keys("run/samples")
	require.NoError(t, err)
	assert.Equal(t, []string{"iteration", "likelihood", "omega"}, keys)
	got, err := c.Read("run/samples", "likelihood")
	require.NoError(t, err)
	assert.Equal(t, []float64{-100.5, -99.25}, got)
}

func TestTextErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("a b\n1 2\n3\n"), 0644))
	_, err := Open(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# only a comment\n"), 0644))
	_, err = Open(empty)
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "chain.root"))
	assert.Error(t, err)
}

func TestFiles(t *testing.T) {
	got := Files([]string{"a.db", "notes.md", "b.BOLT", "c.tsv", "d.root"})
	assert.Equal(t, []string{"a.db", "b.BOLT", "c.tsv"}, got)
}

func TestTrim(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	got, err := Trim(x, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, got)

	got, err = Trim(x, 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = Trim(x, 4)
	assert.True(t, errors.Is(err, diag.ErrConfiguration))
	_, err = Trim(x, -1)
	assert.True(t, errors.Is(err, diag.ErrConfiguration))
}
