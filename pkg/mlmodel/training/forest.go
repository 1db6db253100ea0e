package training

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mimir-aip/winequality/pkg/models"
)

// Forest is a bagged ensemble of classification trees. With RandomSplits set it behaves as
// an extremely randomised trees ensemble.
type Forest struct {
	Params       models.ForestParams
	RandomSplits bool
	Seed         int64

	Trees       []*Tree
	ClassLabels []string
	NumFeatures int
}

// NewRandomForest creates a random forest: bootstrap samples, best split over sqrt(features)
func NewRandomForest(params models.ForestParams, seed int64) *Forest {
	return &Forest{Params: params, Seed: seed}
}

// NewExtraTrees creates an extremely randomised trees ensemble: random thresholds over sqrt(features)
func NewExtraTrees(params models.ForestParams, seed int64) *Forest {
	return &Forest{Params: params, RandomSplits: true, Seed: seed}
}

// Fit implements Classifier. Trees are grown in parallel, each with its own random source
// derived from Seed, so the fitted forest does not depend on scheduling.
func (f *Forest) Fit(X [][]float64, y []string) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}
	if f.Params.Trees < 1 {
		return fmt.Errorf("forest needs at least one tree, got %d", f.Params.Trees)
	}

	classes, encoded := labelIndex(y)
	nFeatures := len(X[0])
	weights := make([]float64, len(y))
	if f.Params.BalancedWeights {
		weights = balancedWeights(encoded, len(classes))
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	cfg := treeConfig{
		maxDepth:        f.Params.MaxDepth,
		minSamplesSplit: f.Params.MinSamplesSplit,
		minSamplesLeaf:  f.Params.MinSamplesLeaf,
		maxFeatures:     int(math.Max(1, math.Sqrt(float64(nFeatures)))),
		randomSplits:    f.RandomSplits,
	}

	seeds := make([]int64, f.Params.Trees)
	base := rand.New(rand.NewSource(f.Seed))
	for i := range seeds {
		seeds[i] = base.Int63()
	}

	trees := make([]*Tree, f.Params.Trees)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[t]))
			idx, w := f.sample(rng, len(X), weights)
			trees[t] = growClassificationTree(cfg, X, encoded, w, len(classes), idx, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to grow trees: %w", err)
	}

	f.Trees = trees
	f.ClassLabels = classes
	f.NumFeatures = nFeatures
	return nil
}

// sample returns the rows a tree is grown on and their weights. With bootstrap, rows drawn
// several times carry proportionally more weight.
func (f *Forest) sample(rng *rand.Rand, n int, weights []float64) ([]int, []float64) {
	if !f.Params.Bootstrap {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, weights
	}

	draws := make([]int, n)
	for i := 0; i < n; i++ {
		draws[rng.Intn(n)]++
	}
	w := make([]float64, n)
	idx := make([]int, 0, n)
	for i, d := range draws {
		if d > 0 {
			idx = append(idx, i)
			w[i] = weights[i] * float64(d)
		}
	}
	return idx, w
}

// PredictProba implements Classifier by averaging the leaf distributions of every tree
func (f *Forest) PredictProba(X [][]float64) ([][]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("model not trained")
	}
	if err := checkPredictData(X, f.NumFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		p := make([]float64, len(f.ClassLabels))
		for _, t := range f.Trees {
			for c, v := range t.leaf(x) {
				p[c] += v
			}
		}
		for c := range p {
			p[c] /= float64(len(f.Trees))
		}
		out[i] = p
	}
	return out, nil
}

// Predict implements Classifier
func (f *Forest) Predict(X [][]float64) ([]string, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(proba, f.ClassLabels), nil
}

// Classes implements Classifier
func (f *Forest) Classes() []string {
	return append([]string(nil), f.ClassLabels...)
}
