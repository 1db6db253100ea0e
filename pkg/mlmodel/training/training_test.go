package training

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/pkg/models"
)

// clusters returns two noisy, linearly separable classes over three features
func clusters(n int, seed int64) ([][]float64, []string) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]string, n)
	for i := range X {
		high := i%3 == 0
		centre := 0.0
		y[i] = "low"
		if high {
			centre = 3
			y[i] = "high"
		}
		X[i] = []float64{centre + rng.NormFloat64()*0.5, rng.NormFloat64(), centre/2 + rng.NormFloat64()*0.5}
	}
	return X, y
}

func accuracy(pred, want []string) float64 {
	ok := 0
	for i := range pred {
		if pred[i] == want[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(want))
}

func smallForest() models.ForestParams {
	return models.ForestParams{Trees: 15, MaxDepth: 6, MinSamplesSplit: 2, MinSamplesLeaf: 1, Bootstrap: true, BalancedWeights: true}
}

func TestDecisionTreeLearnsThreshold(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []int{0, 0, 0, 1, 1, 1}
	w := []float64{1, 1, 1, 1, 1, 1}
	cfg := treeConfig{maxDepth: 3, minSamplesSplit: 2, minSamplesLeaf: 1}
	tree := growClassificationTree(cfg, X, y, w, 2, []int{0, 1, 2, 3, 4, 5}, rand.New(rand.NewSource(1)))

	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, 0, tree.Nodes[0].Feature)
	assert.InDelta(t, 6.5, tree.Nodes[0].Threshold, 1e-12)
	assert.Equal(t, []float64{1, 0}, tree.leaf([]float64{2.5}))
	assert.Equal(t, []float64{0, 1}, tree.leaf([]float64{7}))
	assert.Equal(t, 1, tree.Depth())
}

func TestDecisionTreeRespectsLimits(t *testing.T) {
	X, y := clusters(120, 3)
	_, encoded := labelIndex(y)
	w := balancedWeights(encoded, 2)
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	cfg := treeConfig{maxDepth: 2, minSamplesSplit: 2, minSamplesLeaf: 10}
	tree := growClassificationTree(cfg, X, encoded, w, 2, idx, rand.New(rand.NewSource(1)))
	assert.LessOrEqual(t, tree.Depth(), 2)

	leafSizes := make(map[int]int)
	for i := range X {
		node := 0
		for tree.Nodes[node].Feature >= 0 {
			n := tree.Nodes[node]
			if X[i][n.Feature] <= n.Threshold {
				node = n.Left
			} else {
				node = n.Right
			}
		}
		leafSizes[node]++
	}
	for _, size := range leafSizes {
		assert.GreaterOrEqual(t, size, 10)
	}
}

func TestRegressionTreeFitsStep(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	target := []float64{-1, -1, 1, 1}
	mean := func(idx []int) float64 {
		s := 0.0
		for _, i := range idx {
			s += target[i]
		}
		return s / float64(len(idx))
	}
	cfg := treeConfig{maxDepth: 2, minSamplesSplit: 2, minSamplesLeaf: 1}
	tree := growRegressionTree(cfg, X, target, []int{0, 1, 2, 3}, mean, rand.New(rand.NewSource(1)))
	assert.Equal(t, -1.0, tree.leaf([]float64{0.5})[0])
	assert.Equal(t, 1.0, tree.leaf([]float64{2.5})[0])
}

func TestHistogramSplitMatchesSortedSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const bins = 8
	X := make([][]float64, 60)
	target := make([]float64, len(X))
	idx := make([]int, len(X))
	for i := range X {
		bin := rng.Intn(bins)
		X[i] = []float64{float64(bin)}
		target[i] = float64(bin) + rng.NormFloat64()*0.3
		if bin >= 5 {
			target[i] += 4
		}
		idx[i] = i
	}

	exact := &regressionBuilder{cfg: treeConfig{minSamplesLeaf: 2}, X: X, target: target}
	hist := &regressionBuilder{cfg: treeConfig{minSamplesLeaf: 2, bins: bins}, X: X, target: target}

	want, ok := exact.bestSplit(append([]int(nil), idx...), 0)
	require.True(t, ok)
	got, ok := hist.bestHistogramSplit(append([]int(nil), idx...), 0)
	require.True(t, ok)

	assert.InDelta(t, want.gain, got.gain, 1e-9)
	left, _ := partition(X, idx, 0, want.threshold)
	histLeft, _ := partition(X, idx, 0, got.threshold)
	assert.Equal(t, left, histLeft)
}

func TestHistogramSplitHonoursMinLeaf(t *testing.T) {
	X := [][]float64{{0}, {1}, {1}, {1}}
	target := []float64{10, 0, 0, 0}
	b := &regressionBuilder{cfg: treeConfig{minSamplesLeaf: 2, bins: 2}, X: X, target: target}

	_, ok := b.bestHistogramSplit([]int{0, 1, 2, 3}, 0)
	assert.False(t, ok)
}

func TestForestVariantsClassify(t *testing.T) {
	X, y := clusters(150, 1)
	testX, testY := clusters(60, 2)

	for name, clf := range map[string]*Forest{
		"random_forest": NewRandomForest(smallForest(), 42),
		"extra_trees":   NewExtraTrees(smallForest(), 42),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, clf.Fit(X, y))
			pred, err := clf.Predict(testX)
			require.NoError(t, err)
			assert.Greater(t, accuracy(pred, testY), 0.85)
			assert.Equal(t, []string{"high", "low"}, clf.Classes())

			proba, err := clf.PredictProba(testX[:1])
			require.NoError(t, err)
			assert.InDelta(t, 1.0, proba[0][0]+proba[0][1], 1e-9)
		})
	}
}

func TestForestIsDeterministic(t *testing.T) {
	X, y := clusters(90, 5)
	a := NewRandomForest(smallForest(), 7)
	b := NewRandomForest(smallForest(), 7)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, _ := a.PredictProba(X)
	pb, _ := b.PredictProba(X)
	assert.Equal(t, pa, pb)
}

func TestForestErrors(t *testing.T) {
	clf := NewRandomForest(smallForest(), 1)
	_, err := clf.Predict([][]float64{{1}})
	assert.Error(t, err, "untrained")

	assert.Error(t, clf.Fit(nil, nil))
	assert.Error(t, clf.Fit([][]float64{{1}, {2}}, []string{"a"}))
	assert.Error(t, clf.Fit([][]float64{{1}, {2, 3}}, []string{"a", "b"}))

	require.NoError(t, clf.Fit([][]float64{{1, 2}, {3, 4}}, []string{"a", "b"}))
	_, err = clf.Predict([][]float64{{1}})
	assert.Error(t, err, "width mismatch")
}

func TestForestGobRoundTrip(t *testing.T) {
	X, y := clusters(60, 9)
	var clf Classifier = NewExtraTrees(smallForest(), 3)
	require.NoError(t, clf.Fit(X, y))
	want, err := clf.Predict(X)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(&clf))
	var decoded Classifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	got, err := decoded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBalancedWeights(t *testing.T) {
	w := balancedWeights([]int{0, 0, 0, 1}, 2)
	assert.InDelta(t, 4.0/6.0, w[0], 1e-12)
	assert.InDelta(t, 2.0, w[3], 1e-12)
}

func TestArgmaxPrefersLowestIndex(t *testing.T) {
	assert.Equal(t, 0, argmax([]float64{0.5, 0.5}))
	assert.Equal(t, 1, argmax([]float64{0.2, 0.8}))
}

func TestCapabilitiesResolve(t *testing.T) {
	caps := &Capabilities{available: map[models.AlgorithmKind]bool{
		models.AlgorithmRandomForest: true,
		models.AlgorithmExtraTrees:   true,
	}}
	got, err := caps.Resolve([]models.AlgorithmKind{
		models.AlgorithmRandomForest,
		models.AlgorithmExtraTrees,
		models.AlgorithmGradientBoosting,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.AlgorithmKind{models.AlgorithmRandomForest, models.AlgorithmExtraTrees}, got)

	got, err = caps.Resolve([]models.AlgorithmKind{models.AlgorithmHistGradientBoosting, models.AlgorithmExtraTrees}, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.AlgorithmKind{models.AlgorithmRandomForest, models.AlgorithmExtraTrees}, got)

	_, err = caps.Resolve([]models.AlgorithmKind{"xgboost"}, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestFactory(t *testing.T) {
	caps := DetectCapabilities()
	assert.True(t, caps.Available(models.AlgorithmRandomForest))
	assert.True(t, caps.Available(models.AlgorithmExtraTrees))

	f := NewFactory(models.DefaultHyperparameters(), caps)
	clf, err := f.New(models.AlgorithmExtraTrees, 1)
	require.NoError(t, err)
	assert.True(t, clf.(*Forest).RandomSplits)

	empty := NewFactory(models.DefaultHyperparameters(), &Capabilities{})
	_, err = empty.New(models.AlgorithmRandomForest, 1)
	assert.Error(t, err)
}
