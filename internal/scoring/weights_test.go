package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrFloat64(v float64) *float64 { return &v }

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"proportional", []float64{3, 1}, []float64{0.75, 0.25}},
		{"all zero falls back to uniform", []float64{0, 0, 0}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}},
		{"invalid entries get nothing", []float64{math.NaN(), 2, -1, math.Inf(1)}, []float64{0, 1, 0, 0}},
		{"all invalid falls back to uniform", []float64{math.NaN(), -2}, []float64{0.5, 0.5}},
		{"single", []float64{7}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
			assert.InDelta(t, 1.0, sum(got), 1e-9)
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	got := Normalize(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNormalize_SumsToOne(t *testing.T) {
	inputs := [][]float64{
		{0.1, 0.2, 0.3},
		{1e-12, 1e12},
		{5, 0, 5, 0},
		{0.33, 0.33, 0.33},
	}
	for _, in := range inputs {
		assert.InDelta(t, 1.0, sum(Normalize(in)), 1e-9)
	}
}

func TestRawWeight(t *testing.T) {
	assert.True(t, math.IsNaN(RawWeight(nil)))
	assert.Equal(t, 0.4, RawWeight(ptrFloat64(0.4)))
}

func TestUniformWeights(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, UniformWeights(4))
	assert.Empty(t, UniformWeights(0))
}
