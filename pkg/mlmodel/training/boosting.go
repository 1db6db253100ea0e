//go:build !noboost

package training

import (
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/winequality/pkg/models"
)

func init() {
	gob.Register(&GradientBoosting{})
	register(models.AlgorithmGradientBoosting, func(h models.Hyperparameters, seed int64) Classifier {
		return NewGradientBoosting(h.GradientBoosting, seed)
	})
	register(models.AlgorithmHistGradientBoosting, func(h models.Hyperparameters, seed int64) Classifier {
		return NewHistGradientBoosting(h.HistGradientBoosting, seed)
	})
}

// GradientBoosting is a binary log-loss gradient boosted tree ensemble. With Binned set the
// features are first discretised into quantile bins and split points are searched over
// per-bin target sums instead of sorted rows.
type GradientBoosting struct {
	Params models.BoostingParams
	Binned bool
	Seed   int64

	Init        float64 // initial log-odds
	Trees       []*Tree
	BinEdges    [][]float64
	ClassLabels []string
	NumFeatures int
}

// NewGradientBoosting creates an exact-split gradient boosting classifier
func NewGradientBoosting(params models.BoostingParams, seed int64) *GradientBoosting {
	return &GradientBoosting{Params: params, Seed: seed}
}

// NewHistGradientBoosting creates a gradient boosting classifier over quantile-binned features
func NewHistGradientBoosting(params models.BoostingParams, seed int64) *GradientBoosting {
	return &GradientBoosting{Params: params, Binned: true, Seed: seed}
}

// Fit implements Classifier
func (g *GradientBoosting) Fit(X [][]float64, y []string) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}
	classes, encoded := labelIndex(y)
	if len(classes) != 2 {
		return fmt.Errorf("gradient boosting supports exactly two classes, got %d", len(classes))
	}

	g.NumFeatures = len(X[0])
	g.ClassLabels = classes
	g.BinEdges = nil
	if g.Binned {
		g.BinEdges = quantileEdges(X, g.maxBins())
		X = g.bin(X)
	}

	target := make([]float64, len(encoded))
	for i, c := range encoded {
		target[i] = float64(c)
	}
	p := stat.Mean(target, nil)
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	g.Init = math.Log(p / (1 - p))

	cfg := treeConfig{
		maxDepth:        g.Params.MaxDepth,
		minSamplesSplit: g.Params.MinSamplesSplit,
		minSamplesLeaf:  g.Params.MinSamplesLeaf,
	}
	if g.Binned {
		cfg.bins = g.maxBins()
	}
	rng := rand.New(rand.NewSource(g.Seed))

	n := len(X)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = g.Init
	}
	residual := make([]float64, n)
	hessian := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	leafValue := func(idx []int) float64 {
		num, den := 0.0, 0.0
		for _, i := range idx {
			num += residual[i]
			den += hessian[i]
		}
		if den < 1e-12 {
			return 0
		}
		return num / den
	}

	g.Trees = make([]*Tree, 0, g.Params.Rounds)
	for round := 0; round < g.Params.Rounds; round++ {
		for i := range raw {
			prob := sigmoid(raw[i])
			residual[i] = target[i] - prob
			hessian[i] = prob * (1 - prob)
		}
		idx := g.subsample(rng, all)
		tree := growRegressionTree(cfg, X, residual, idx, leafValue, rng)
		for i := range raw {
			raw[i] += g.learningRate() * tree.leaf(X[i])[0]
		}
		g.Trees = append(g.Trees, tree)
	}
	return nil
}

func (g *GradientBoosting) learningRate() float64 {
	if g.Params.LearningRate <= 0 {
		return 0.1
	}
	return g.Params.LearningRate
}

func (g *GradientBoosting) maxBins() int {
	if g.Params.MaxBins < 2 {
		return 255
	}
	return g.Params.MaxBins
}

// subsample draws a fraction of the rows without replacement, keeping index order
func (g *GradientBoosting) subsample(rng *rand.Rand, all []int) []int {
	frac := g.Params.Subsample
	if frac <= 0 || frac >= 1 {
		return all
	}
	k := int(math.Max(2, math.Round(frac*float64(len(all)))))
	if k >= len(all) {
		return all
	}
	picked := rng.Perm(len(all))[:k]
	sort.Ints(picked)
	return picked
}

// PredictProba implements Classifier
func (g *GradientBoosting) PredictProba(X [][]float64) ([][]float64, error) {
	if len(g.Trees) == 0 {
		return nil, fmt.Errorf("model not trained")
	}
	if err := checkPredictData(X, g.NumFeatures); err != nil {
		return nil, err
	}
	if g.Binned {
		X = g.bin(X)
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		raw := g.Init
		for _, t := range g.Trees {
			raw += g.learningRate() * t.leaf(x)[0]
		}
		p := sigmoid(raw)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

// Predict implements Classifier
func (g *GradientBoosting) Predict(X [][]float64) ([]string, error) {
	proba, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(proba, g.ClassLabels), nil
}

// Classes implements Classifier
func (g *GradientBoosting) Classes() []string {
	return append([]string(nil), g.ClassLabels...)
}

// bin maps every value to the number of bin edges strictly below it
func (g *GradientBoosting) bin(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		b := make([]float64, len(row))
		for j, v := range row {
			b[j] = float64(sort.SearchFloat64s(g.BinEdges[j], v))
		}
		out[i] = b
	}
	return out
}

// quantileEdges returns, per feature, up to maxBins-1 distinct interior quantiles
func quantileEdges(X [][]float64, maxBins int) [][]float64 {
	edges := make([][]float64, len(X[0]))
	column := make([]float64, len(X))
	for j := range edges {
		for i, row := range X {
			column[i] = row[j]
		}
		sorted := append([]float64(nil), column...)
		sort.Float64s(sorted)

		var e []float64
		for b := 1; b < maxBins; b++ {
			q := stat.Quantile(float64(b)/float64(maxBins), stat.Empirical, sorted, nil)
			if len(e) == 0 || q > e[len(e)-1] {
				e = append(e, q)
			}
		}
		edges[j] = e
	}
	return edges
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
