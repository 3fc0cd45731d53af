package maths

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小值 2 位于 (1, -2)
func shiftedSphere(x []float64) float64 {
	return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2) + 2
}

func testSettings() DESettings {
	set := DefaultDESettings()
	set.PopSize = 15
	set.MaxIter = 1000
	set.Tol = 1e-8
	return set
}

func TestDE(t *testing.T) {
	r, err := DE(shiftedSphere, [][2]float64{{-5, 5}, {-5, 5}}, testSettings())
	require.NoError(t, err)
	assert.True(t, r.Converged, "应在代数上限内收敛")
	assert.InDelta(t, 1, r.X[0], 1e-3)
	assert.InDelta(t, -2, r.X[1], 1e-3)
	assert.InDelta(t, 2, r.F, 1e-6)
	assert.Equal(t, 30*(r.Iterations+1), r.Evaluations)
}

func TestDEDeterministic(t *testing.T) {
	bounds := [][2]float64{{-5, 5}, {-5, 5}}
	a, err := DE(shiftedSphere, bounds, testSettings())
	require.NoError(t, err)
	b, err := DE(shiftedSphere, bounds, testSettings())
	require.NoError(t, err)
	assert.Equal(t, a, b, "相同种子结果必须一致")

	set := testSettings()
	set.Seed = 7
	c, err := DE(shiftedSphere, bounds, set)
	require.NoError(t, err)
	assert.NotEqual(t, a.X, c.X)
}

func TestDEBounds(t *testing.T) {
	// 无约束最小值在区间外，结果应落在边界上
	bounds := [][2]float64{{2, 3}, {-1, 0}}
	var outside int
	f := func(x []float64) float64 {
		if x[0] < 2 || x[0] > 3 || x[1] < -1 || x[1] > 0 {
			outside++
		}
		return shiftedSphere(x)
	}
	r, err := DE(f, bounds, testSettings())
	require.NoError(t, err)
	assert.Zero(t, outside, "目标函数只能在区间内求值")
	assert.InDelta(t, 2, r.X[0], 1e-2)
	assert.InDelta(t, -1, r.X[1], 1e-2)
}

func TestDEMaxIter(t *testing.T) {
	set := testSettings()
	set.MaxIter = 3
	set.Tol = 0
	r, err := DE(shiftedSphere, [][2]float64{{-5, 5}, {-5, 5}}, set)
	require.NoError(t, err)
	assert.False(t, r.Converged)
	assert.Equal(t, 3, r.Iterations)
}

func TestDENaN(t *testing.T) {
	f := func(x []float64) float64 {
		if x[0] < 0 {
			return math.NaN()
		}
		return shiftedSphere(x)
	}
	r, err := DE(f, [][2]float64{{-5, 5}, {-5, 5}}, testSettings())
	require.NoError(t, err)
	assert.False(t, math.IsNaN(r.F))
	assert.GreaterOrEqual(t, r.X[0], 0.0)
}

func TestDEInvalid(t *testing.T) {
	cases := [][][2]float64{
		nil,
		{{1, 0}},
		{{0, math.Inf(1)}},
		{{math.NaN(), 1}},
	}
	for _, bounds := range cases {
		_, err := DE(shiftedSphere, bounds, DefaultDESettings())
		assert.ErrorIs(t, err, ErrBounds, "区间 %v", bounds)
	}
	set := DefaultDESettings()
	set.PopSize = 0
	_, err := DE(shiftedSphere, [][2]float64{{0, 1}}, set)
	assert.Error(t, err)
}

func TestDEFlatObjective(t *testing.T) {
	// 初始种群已满足收敛判据时仍需进化一代
	flat := func([]float64) float64 { return 3 }
	r, err := DE(flat, [][2]float64{{0, 1}, {0, 1}, {0, 1}}, DefaultDESettings())
	require.NoError(t, err)
	assert.True(t, r.Converged)
	assert.Equal(t, 1, r.Iterations)
	assert.Equal(t, 90*2, r.Evaluations)
}
