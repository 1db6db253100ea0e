package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaNMedian(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even averages middles", []float64{4, 1, 3, 2}, 2.5},
		{"ignores NaN", []float64{nan, 5, nan, 1, 3}, 3},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NaNMedian(tt.in))
		})
	}
	assert.True(t, math.IsNaN(NaNMedian([]float64{nan, nan})))
	assert.True(t, math.IsNaN(NaNMedian(nil)))
}

func TestNaNMeanAndMode(t *testing.T) {
	nan := math.NaN()
	assert.InDelta(t, 2.0, NaNMean([]float64{1, nan, 3}), 1e-12)
	assert.True(t, math.IsNaN(NaNMean([]float64{nan})))

	assert.Equal(t, 2.0, NaNMode([]float64{3, 2, 2, 3, 1}), "ties prefer the smallest value")
	assert.Equal(t, 5.0, NaNMode([]float64{5, nan, nan, nan}))
}

func TestFillNaN(t *testing.T) {
	in := []float64{1, math.NaN(), 3}
	out := FillNaN(in, 0)
	assert.Equal(t, []float64{1, 0, 3}, out)
	assert.True(t, math.IsNaN(in[1]), "input must be unchanged")
}
