package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalizeMeasurements(t *testing.T) {
	want := []Sample{{0.5, 8.9}, {20, 8.5}, {35, 3}}
	cases := []struct {
		name string
		raw  any
	}{
		{"平铺", []float64{0.5, 8.9, 20, 8.5, 35, 3}},
		{"电压电流对", [][]float64{{0.5, 8.9}, {20, 8.5}, {35, 3}}},
		{"定长数组", [][2]float64{{0.5, 8.9}, {20, 8.5}, {35, 3}}},
		{"any 平铺", []any{0.5, 8.9, 20, 8.5, 35, 3}},
		{"any 对", []any{[]any{0.5, 8.9}, []any{20, 8.5}, []any{35, "3"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := NormalizeMeasurements(c.raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeMeasurementsErrors(t *testing.T) {
	cases := []struct {
		raw any
		msg string
	}{
		{[]float64{1, 2, 3}, "1D measurements array must have even number of elements"},
		{[]float64{}, "measurements array is empty"},
		{[]any{}, "measurements array is empty"},
		{[]any{[]any{1, 2}, []any{1, 2, 3}}, "measurements must be a 2D array with shape (n, 2)"},
		{[]any{[]any{1, 2}, 3.0}, "measurements must be a 2D array with shape (n, 2)"},
		{"abc", "measurements must be a list, got string"},
	}
	for _, c := range cases {
		_, err := NormalizeMeasurements(c.raw)
		assert.EqualError(t, err, c.msg, "输入 %v", c.raw)
	}
}

func TestRequestJSON(t *testing.T) {
	data := `{
		"irradiance": 800,
		"temperature": 35,
		"curves": [
			{"measurements": [0.5, 8.9, 20, 8.5], "voc": 40, "isc": 9, "pmax": 250},
			{"measurements": [[0.5, 8.9], [20, 8.5]], "isc": 9, "pmax": 250},
			"not an object",
			{"measurements": [1, 2, 3], "voc": 40, "isc": "9.1", "pmax": 250}
		]
	}`
	var req Request
	require.NoError(t, json.Unmarshal([]byte(data), &req))
	require.Len(t, req.Curves, 4)

	g, temp, err := req.Ambient()
	require.NoError(t, err)
	assert.Equal(t, 800.0, g)
	assert.Equal(t, 35.0, temp)

	m, err := req.Curves[0].Validate()
	require.NoError(t, err)
	assert.Equal(t, []Sample{{0.5, 8.9}, {20, 8.5}}, m.Samples)
	assert.Equal(t, 40.0, m.Voc)

	_, err = req.Curves[1].Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "missing required key in curve data: voc")

	_, err = req.Curves[2].Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "input 'curve' must be an object")

	_, err = req.Curves[3].Validate()
	assert.ErrorContains(t, err, "1D measurements array must have even number of elements")
}

func TestRequestYAML(t *testing.T) {
	data := `
irradiance: 1000
temperature: 25
curves:
  - measurements: [[0.5, 8.9], [20, 8.5], [35, 3]]
    voc: 40
    isc: 9
    pmax: 250
  - measurements: [0.5, 8.9]
    voc: -1
    isc: 9
`
	var req Request
	require.NoError(t, yaml.Unmarshal([]byte(data), &req))
	require.Len(t, req.Curves, 2)

	m, err := req.Curves[0].Validate()
	require.NoError(t, err)
	assert.Len(t, m.Samples, 3)
	assert.Equal(t, 250.0, m.Pmax)

	_, err = req.Curves[1].Validate()
	require.Error(t, err)
	// 多个问题合并报告
	assert.ErrorContains(t, err, "missing required key in curve data: pmax")
	assert.ErrorContains(t, err, "voc must be positive")
}

func TestAmbientMissing(t *testing.T) {
	g := 1000.0
	_, _, err := Request{Irradiance: &g}.Ambient()
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "temperature")
}

func TestNewCurveInput(t *testing.T) {
	in := NewCurveInput([]float64{1, 2, 3, 4}, 5, 2.5, 6)
	m, err := in.Validate()
	require.NoError(t, err)
	assert.Equal(t, Measured{Samples: []Sample{{1, 2}, {3, 4}}, Voc: 5, Isc: 2.5, Pmax: 6}, m)

	v, i := m.Split()
	assert.Equal(t, []float64{1, 3}, v)
	assert.Equal(t, []float64{2, 4}, i)

	_, err = CurveInput{}.Validate()
	assert.ErrorContains(t, err, "measurements array is empty")
}

func TestAmbientNonFinite(t *testing.T) {
	data := "irradiance: .inf\ntemperature: .nan\ncurves: []\n"
	var req Request
	require.NoError(t, yaml.Unmarshal([]byte(data), &req))
	_, _, err := req.Ambient()
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "irradiance must be finite")
	assert.ErrorContains(t, err, "temperature must be finite")
}
