package training

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64 // class probabilities for classification trees, a single value for regression trees
}

// Tree is a binary decision tree stored as a flat node list rooted at index 0
type Tree struct {
	Nodes []Node
}

// leaf returns the value of the leaf that x falls into
func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// treeConfig holds the growth limits shared by every tree builder
type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int  // features examined per split; all when <= 0
	randomSplits    bool // draw one random threshold per feature instead of searching
	bins            int  // when > 0, features hold bin indices in [0, bins) and splits come from histograms
}

// split is a candidate partition of a node
type split struct {
	feature   int
	threshold float64
	gain      float64
}

// minGain is the smallest impurity decrease that justifies a split
const minGain = 1e-12

// classificationBuilder grows a CART tree with weighted gini impurity
type classificationBuilder struct {
	cfg      treeConfig
	X        [][]float64
	y        []int
	w        []float64
	nClasses int
	rng      *rand.Rand
	nodes    []Node
}

func growClassificationTree(cfg treeConfig, X [][]float64, y []int, w []float64, nClasses int, idx []int, rng *rand.Rand) *Tree {
	b := &classificationBuilder{cfg: cfg, X: X, y: y, w: w, nClasses: nClasses, rng: rng}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *classificationBuilder) build(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]] += b.w[i]
	}

	if depth >= b.cfg.maxDepth || len(idx) < b.cfg.minSamplesSplit || pure(counts) {
		b.nodes[self].Value = normalize(counts)
		return self
	}

	best, ok := searchSplits(b.cfg, b.X, idx, b.rng, func(order []int, f int) (split, bool) {
		if b.cfg.randomSplits {
			return b.randomSplit(order, f, counts)
		}
		return b.bestSplit(order, f, counts)
	})
	if !ok {
		b.nodes[self].Value = normalize(counts)
		return self
	}

	left, right := partition(b.X, idx, best.feature, best.threshold)
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return self
}

// bestSplit sweeps the node's rows sorted by feature f and returns the split with the largest
// weighted gini decrease
func (b *classificationBuilder) bestSplit(order []int, f int, total []float64) (split, bool) {
	sort.SliceStable(order, func(i, j int) bool { return b.X[order[i]][f] < b.X[order[j]][f] })

	parent := gini(total)
	totalW := sum(total)
	left := make([]float64, b.nClasses)
	right := append([]float64(nil), total...)

	best := split{feature: f, gain: minGain}
	found := false
	minLeaf := b.cfg.minSamplesLeaf
	for pos := 0; pos < len(order)-1; pos++ {
		i := order[pos]
		left[b.y[i]] += b.w[i]
		right[b.y[i]] -= b.w[i]

		v, next := b.X[i][f], b.X[order[pos+1]][f]
		if v == next || pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
			continue
		}
		wl := sum(left)
		wr := totalW - wl
		gain := parent - (wl*gini(left)+wr*gini(right))/totalW
		if gain > best.gain {
			best.gain = gain
			best.threshold = midpoint(v, next)
			found = true
		}
	}
	return best, found
}

// randomSplit evaluates a single threshold drawn uniformly between the node's extremes of f
func (b *classificationBuilder) randomSplit(order []int, f int, total []float64) (split, bool) {
	lo, hi := extent(b.X, order, f)
	if lo == hi {
		return split{}, false
	}
	threshold := lo + b.rng.Float64()*(hi-lo)

	left := make([]float64, b.nClasses)
	nLeft := 0
	for _, i := range order {
		if b.X[i][f] <= threshold {
			left[b.y[i]] += b.w[i]
			nLeft++
		}
	}
	if nLeft < b.cfg.minSamplesLeaf || len(order)-nLeft < b.cfg.minSamplesLeaf {
		return split{}, false
	}
	right := make([]float64, b.nClasses)
	for c := range total {
		right[c] = total[c] - left[c]
	}
	totalW := sum(total)
	wl := sum(left)
	gain := gini(total) - (wl*gini(left)+(totalW-wl)*gini(right))/totalW
	if gain <= minGain {
		return split{}, false
	}
	return split{feature: f, threshold: threshold, gain: gain}, true
}

// regressionBuilder grows a least-squares tree on targets; leaf values come from leafValue
type regressionBuilder struct {
	cfg       treeConfig
	X         [][]float64
	target    []float64
	leafValue func(idx []int) float64
	rng       *rand.Rand
	nodes     []Node
}

func growRegressionTree(cfg treeConfig, X [][]float64, target []float64, idx []int, leafValue func([]int) float64, rng *rand.Rand) *Tree {
	b := &regressionBuilder{cfg: cfg, X: X, target: target, leafValue: leafValue, rng: rng}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *regressionBuilder) build(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	if depth >= b.cfg.maxDepth || len(idx) < b.cfg.minSamplesSplit {
		b.nodes[self].Value = []float64{b.leafValue(idx)}
		return self
	}

	eval := b.bestSplit
	if b.cfg.bins > 0 {
		eval = b.bestHistogramSplit
	}
	best, ok := searchSplits(b.cfg, b.X, idx, b.rng, eval)
	if !ok {
		b.nodes[self].Value = []float64{b.leafValue(idx)}
		return self
	}

	left, right := partition(b.X, idx, best.feature, best.threshold)
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return self
}

// bestSplit maximises the reduction in squared error, sweeping rows sorted by feature f
func (b *regressionBuilder) bestSplit(order []int, f int) (split, bool) {
	sort.SliceStable(order, func(i, j int) bool { return b.X[order[i]][f] < b.X[order[j]][f] })

	total := 0.0
	for _, i := range order {
		total += b.target[i]
	}
	n := float64(len(order))
	parent := total * total / n

	best := split{feature: f, gain: minGain}
	found := false
	minLeaf := b.cfg.minSamplesLeaf
	sumLeft := 0.0
	for pos := 0; pos < len(order)-1; pos++ {
		i := order[pos]
		sumLeft += b.target[i]

		v, next := b.X[i][f], b.X[order[pos+1]][f]
		if v == next || pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
			continue
		}
		nl := float64(pos + 1)
		nr := n - nl
		sumRight := total - sumLeft
		gain := (sumLeft*sumLeft/nl + sumRight*sumRight/nr - parent) / n
		if gain > best.gain {
			best.gain = gain
			best.threshold = midpoint(v, next)
			found = true
		}
	}
	return best, found
}

// bestHistogramSplit is bestSplit over binned features. Targets are summed per bin in one pass
// and only bin boundaries are scanned, so no sort is needed.
func (b *regressionBuilder) bestHistogramSplit(order []int, f int) (split, bool) {
	sums := make([]float64, b.cfg.bins)
	counts := make([]int, b.cfg.bins)
	total := 0.0
	for _, i := range order {
		bin := int(b.X[i][f])
		sums[bin] += b.target[i]
		counts[bin]++
		total += b.target[i]
	}
	n := float64(len(order))
	parent := total * total / n

	best := split{feature: f, gain: minGain}
	found := false
	minLeaf := b.cfg.minSamplesLeaf
	sumLeft, countLeft := 0.0, 0
	for bin := 0; bin < b.cfg.bins-1; bin++ {
		if counts[bin] == 0 {
			continue
		}
		sumLeft += sums[bin]
		countLeft += counts[bin]
		countRight := len(order) - countLeft
		if countRight == 0 {
			break
		}
		if countLeft < minLeaf || countRight < minLeaf {
			continue
		}
		nl, nr := float64(countLeft), float64(countRight)
		sumRight := total - sumLeft
		gain := (sumLeft*sumLeft/nl + sumRight*sumRight/nr - parent) / n
		if gain > best.gain {
			best.gain = gain
			best.threshold = float64(bin) + 0.5
			found = true
		}
	}
	return best, found
}

// searchSplits examines features in random order and returns the best split found. Following
// the usual CART rule, the search continues past maxFeatures until at least one valid split
// has been seen.
func searchSplits(cfg treeConfig, X [][]float64, idx []int, rng *rand.Rand, eval func(order []int, f int) (split, bool)) (split, bool) {
	nFeatures := len(X[idx[0]])
	limit := cfg.maxFeatures
	if limit <= 0 || limit > nFeatures {
		limit = nFeatures
	}

	order := make([]int, len(idx))
	var best split
	found := false
	for examined, f := range rng.Perm(nFeatures) {
		if examined >= limit && found {
			break
		}
		copy(order, idx)
		if s, ok := eval(order, f); ok && (!found || s.gain > best.gain) {
			best, found = s, true
		}
	}
	return best, found
}

// midpoint returns a threshold t with a <= t < b
func midpoint(a, b float64) float64 {
	t := a + (b-a)/2
	if t >= b {
		return a
	}
	return t
}

func partition(X [][]float64, idx []int, f int, threshold float64) ([]int, []int) {
	var left, right []int
	for _, i := range idx {
		if X[i][f] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func extent(X [][]float64, idx []int, f int) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := X[i][f]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func gini(counts []float64) float64 {
	total := sum(counts)
	if total <= 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}

func pure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(counts []float64) []float64 {
	out := make([]float64, len(counts))
	total := sum(counts)
	if total <= 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
