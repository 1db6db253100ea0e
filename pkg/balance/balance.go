// Package balance implements synthetic oversampling of minority classes.
package balance

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/mimir-aip/winequality/pkg/models"
)

// Sampler rebalances a labelled dataset. Surviving original rows keep their order and come first,
// followed by any synthetic rows. Inputs are never modified.
type Sampler interface {
	Resample(X [][]float64, y []string) ([][]float64, []string, error)
}

// New returns the sampler for a balance method
func New(kind models.BalanceKind, seed int64) (Sampler, error) {
	switch kind {
	case models.BalanceSMOTE:
		return &SMOTE{K: 3, Ratio: 1, Seed: seed}, nil
	case models.BalanceADASYN:
		return &ADASYN{K: 3, Seed: seed}, nil
	case models.BalanceSMOTEENN:
		return &SMOTEENN{SMOTE: SMOTE{K: 5, Ratio: 1, Seed: seed}, ENNNeighbors: 3}, nil
	default:
		return nil, models.NewConfigurationError("balance", string(kind), "unknown balance method")
	}
}

// classIndices groups row indices by label, with labels sorted
func classIndices(y []string) ([]string, map[string][]int) {
	groups := make(map[string][]int)
	for i, label := range y {
		groups[label] = append(groups[label], i)
	}
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, groups
}

// majority returns the label with the most rows, preferring the first label on ties
func majority(labels []string, groups map[string][]int) string {
	best := labels[0]
	for _, label := range labels[1:] {
		if len(groups[label]) > len(groups[best]) {
			best = label
		}
	}
	return best
}

func validate(X [][]float64, y []string) error {
	if len(X) != len(y) {
		return fmt.Errorf("X has %d rows but y has %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return fmt.Errorf("no samples to resample")
	}
	if !finite(X) {
		return fmt.Errorf("input contains NaN or infinite values")
	}
	return nil
}

func copyRows(X [][]float64, y []string) ([][]float64, []string) {
	outX := make([][]float64, len(X))
	for i, r := range X {
		outX[i] = append([]float64(nil), r...)
	}
	return outX, append([]string(nil), y...)
}

// SMOTE generates synthetic minority rows by interpolating between a minority row and
// one of its K nearest minority neighbours, until each class reaches Ratio times the
// majority count.
type SMOTE struct {
	K     int
	Ratio float64
	Seed  int64
}

// Resample implements Sampler
func (s *SMOTE) Resample(X [][]float64, y []string) ([][]float64, []string, error) {
	if err := validate(X, y); err != nil {
		return nil, nil, fmt.Errorf("smote: %w", err)
	}
	rng := rand.New(rand.NewSource(s.Seed))
	outX, outY := copyRows(X, y)

	labels, groups := classIndices(y)
	maj := majority(labels, groups)
	target := int(math.Round(s.ratio() * float64(len(groups[maj]))))

	for _, label := range labels {
		if label == maj {
			continue
		}
		members := groups[label]
		need := target - len(members)
		if need <= 0 {
			continue
		}
		synth, err := smoteClass(X, members, need, s.K, rng)
		if err != nil {
			return nil, nil, fmt.Errorf("smote: class %q: %w", label, err)
		}
		for _, r := range synth {
			outX = append(outX, r)
			outY = append(outY, label)
		}
	}
	return outX, outY, nil
}

func (s *SMOTE) ratio() float64 {
	if s.Ratio <= 0 {
		return 1
	}
	return s.Ratio
}

// smoteClass creates n synthetic rows from the rows of X listed in members
func smoteClass(X [][]float64, members []int, n, k int, rng *rand.Rand) ([][]float64, error) {
	if len(members) < 2 {
		return nil, fmt.Errorf("need at least 2 samples to interpolate, got %d", len(members))
	}
	pool := make([][]float64, len(members))
	for i, m := range members {
		pool[i] = X[m]
	}
	neighbors := make([][]int, len(pool))
	for i := range pool {
		neighbors[i] = nearest(pool[i], pool, k, i)
	}

	out := make([][]float64, 0, n)
	for j := 0; j < n; j++ {
		i := rng.Intn(len(pool))
		nn := neighbors[i][rng.Intn(len(neighbors[i]))]
		out = append(out, interpolate(pool[i], pool[nn], rng.Float64()))
	}
	return out, nil
}

// ADASYN is adaptive synthetic sampling: minority rows surrounded by more majority
// neighbours receive proportionally more synthetic rows.
type ADASYN struct {
	K    int
	Seed int64
}

// Resample implements Sampler
func (a *ADASYN) Resample(X [][]float64, y []string) ([][]float64, []string, error) {
	if err := validate(X, y); err != nil {
		return nil, nil, fmt.Errorf("adasyn: %w", err)
	}
	rng := rand.New(rand.NewSource(a.Seed))
	outX, outY := copyRows(X, y)

	labels, groups := classIndices(y)
	maj := majority(labels, groups)

	for _, label := range labels {
		if label == maj {
			continue
		}
		members := groups[label]
		need := len(groups[maj]) - len(members)
		if need <= 0 {
			continue
		}
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("adasyn: class %q: need at least 2 samples, got %d", label, len(members))
		}

		// hardness of each minority row: share of its neighbours from other classes
		hardness := make([]float64, len(members))
		total := 0.0
		for i, m := range members {
			nn := nearest(X[m], X, a.K, m)
			other := 0
			for _, idx := range nn {
				if y[idx] != label {
					other++
				}
			}
			hardness[i] = float64(other) / float64(len(nn))
			total += hardness[i]
		}
		if total == 0 {
			return nil, nil, fmt.Errorf("adasyn: class %q: no neighbours belong to another class, the data is already separable", label)
		}

		pool := make([][]float64, len(members))
		for i, m := range members {
			pool[i] = X[m]
		}
		for i := range pool {
			count := int(math.Round(hardness[i] / total * float64(need)))
			if count == 0 {
				continue
			}
			nn := nearest(pool[i], pool, a.K, i)
			for j := 0; j < count; j++ {
				partner := pool[nn[rng.Intn(len(nn))]]
				outX = append(outX, interpolate(pool[i], partner, rng.Float64()))
				outY = append(outY, label)
			}
		}
	}
	return outX, outY, nil
}

// SMOTEENN oversamples with SMOTE and then removes rows whose nearest neighbours do not
// all share their label (edited nearest neighbours).
type SMOTEENN struct {
	SMOTE        SMOTE
	ENNNeighbors int
}

// Resample implements Sampler
func (s *SMOTEENN) Resample(X [][]float64, y []string) ([][]float64, []string, error) {
	overX, overY, err := s.SMOTE.Resample(X, y)
	if err != nil {
		return nil, nil, fmt.Errorf("smoteenn: %w", err)
	}

	k := s.ENNNeighbors
	if k <= 0 {
		k = 3
	}
	var cleanX [][]float64
	var cleanY []string
	for i := range overX {
		keep := true
		for _, idx := range nearest(overX[i], overX, k, i) {
			if overY[idx] != overY[i] {
				keep = false
				break
			}
		}
		if keep {
			cleanX = append(cleanX, overX[i])
			cleanY = append(cleanY, overY[i])
		}
	}

	before, _ := classIndices(overY)
	after, _ := classIndices(cleanY)
	if len(after) < len(before) {
		return nil, nil, fmt.Errorf("smoteenn: cleaning removed every sample of at least one class")
	}
	return cleanX, cleanY, nil
}
