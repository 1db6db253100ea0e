package balance

import (
	"math"
	"sort"
)

type neighbor struct {
	index int
	dist  float64
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// nearest returns the indices of the k rows of pool closest to query, excluding skip.
// Equal distances are broken by index so results are deterministic.
func nearest(query []float64, pool [][]float64, k, skip int) []int {
	cands := make([]neighbor, 0, len(pool))
	for i, p := range pool {
		if i == skip {
			continue
		}
		cands = append(cands, neighbor{index: i, dist: squaredDistance(query, p)})
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].dist != cands[b].dist {
			return cands[a].dist < cands[b].dist
		}
		return cands[a].index < cands[b].index
	})
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = cands[i].index
	}
	return out
}

// interpolate returns a + gap*(b-a)
func interpolate(a, b []float64, gap float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + gap*(b[i]-a[i])
	}
	return out
}

func finite(rows [][]float64) bool {
	for _, r := range rows {
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
