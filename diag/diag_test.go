package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClasses(t *testing.T) {
	var err error = &DegenerateError{Key: "theta", Msg: "zero within-chain variance"}
	wrapped := fmt.Errorf("rhat: %w", err)

	assert.True(t, errors.Is(wrapped, ErrDegenerate))
	assert.False(t, errors.Is(wrapped, ErrDataShape))
	assert.Contains(t, wrapped.Error(), "key theta")

	assert.True(t, errors.Is(&ShapeError{Msg: "x"}, ErrDataShape))
	assert.True(t, errors.Is(&ConfigError{Msg: "x"}, ErrConfiguration))
}

func TestLocate(t *testing.T) {
	err := Locate(fmt.Errorf("wrap: %w", &ShapeError{Msg: "too short"}), "c1.db", "x")
	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "c1.db", se.File)
	assert.Equal(t, "x", se.Key)

	// existing context is kept
	err = Locate(&ConfigError{File: "a.db", Msg: "burn-in"}, "b.db", "y")
	assert.Contains(t, err.Error(), "file a.db, key y")

	plain := errors.New("plain")
	assert.Equal(t, plain, Locate(plain, "f", "k"))
}

func TestCollector(t *testing.T) {
	var c Collector
	var r Reporter = &c
	r.Report(Event{Severity: Warning, Message: "burn-in is 0"})
	r.Report(Event{Severity: Info, Message: "done"})
	assert.Equal(t, 1, c.Count(Warning))
	assert.Equal(t, 1, c.Count(Info))
	assert.Equal(t, " [a=1 b=x]", formatContext(map[string]interface{}{"b": "x", "a": 1}))
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, []float64{1, -2, 0}, Diff([]float64{1, 2, 0, 0}))
	assert.Nil(t, Diff([]float64{1}))

	mean, variance := MeanVariance([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, mean, 1e-12)
	assert.InDelta(t, 5.0/3, variance, 1e-12)
	assert.InDelta(t, 5.0, SumSquares([]float64{1, 2, 3, 4}, 2.5), 1e-12)

	min, max := MinMax([]float64{3, -1, 7})
	assert.Equal(t, -1.0, min)
	assert.Equal(t, 7.0, max)

	assert.Equal(t, 1, NextPow2(1))
	assert.Equal(t, 8, NextPow2(5))
	assert.Equal(t, 8, NextPow2(8))
}
