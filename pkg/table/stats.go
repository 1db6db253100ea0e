package table

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Present returns the non-NaN values of v
func Present(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// NaNMedian returns the median of the non-NaN values, averaging the two middle values
// for even counts. It returns NaN when no value is present.
func NaNMedian(v []float64) float64 {
	p := Present(v)
	if len(p) == 0 {
		return math.NaN()
	}
	sort.Float64s(p)
	mid := len(p) / 2
	if len(p)%2 == 1 {
		return p[mid]
	}
	return (p[mid-1] + p[mid]) / 2
}

// NaNMean returns the mean of the non-NaN values, or NaN when none is present
func NaNMean(v []float64) float64 {
	p := Present(v)
	if len(p) == 0 {
		return math.NaN()
	}
	return stat.Mean(p, nil)
}

// NaNMode returns the most frequent non-NaN value, preferring the smallest on ties.
// It returns NaN when no value is present.
func NaNMode(v []float64) float64 {
	p := Present(v)
	if len(p) == 0 {
		return math.NaN()
	}
	sort.Float64s(p)
	best, bestCount := p[0], 0
	for i := 0; i < len(p); {
		j := i
		for j < len(p) && p[j] == p[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = p[i], j-i
		}
		i = j
	}
	return best
}

// FillNaN returns a copy of v with NaN replaced by fill
func FillNaN(v []float64, fill float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			x = fill
		}
		out[i] = x
	}
	return out
}
