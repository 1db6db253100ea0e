package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// SelectKBest keeps the K candidate columns with the highest one-way ANOVA F-score against
// the target labels. Equal scores keep the earlier column. Columns outside the candidate
// set pass through untouched.
type SelectKBest struct {
	K        int
	Columns  []string // candidates; every float column when empty
	Selected []string
	Scores   map[string]float64
	Fitted   bool
}

// NewSelectKBest creates a SelectKBest step
func NewSelectKBest(k int, columns ...string) *SelectKBest {
	return &SelectKBest{K: k, Columns: columns}
}

// Fit implements Transformer
func (s *SelectKBest) Fit(t *table.Table, target []string) error {
	if s.K <= 0 {
		return models.NewConfigurationError("SelectKBest", "k", "k must be positive, got %d", s.K)
	}
	if len(target) != t.NumRows() {
		return models.NewConfigurationError("SelectKBest", "target", "need one label per row, got %d labels for %d rows", len(target), t.NumRows())
	}

	s.Columns = columnsOrFloats(t, s.Columns)
	s.Scores = make(map[string]float64, len(s.Columns))
	for _, name := range s.Columns {
		values, err := t.Float(name)
		if err != nil {
			return models.NewConfigurationError("SelectKBest", name, "%v", err)
		}
		s.Scores[name] = FScore(values, target)
	}

	ranked := append([]string(nil), s.Columns...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return s.Scores[ranked[i]] > s.Scores[ranked[j]]
	})
	k := s.K
	if k > len(ranked) {
		k = len(ranked)
	}
	keep := make(map[string]bool, k)
	for _, name := range ranked[:k] {
		keep[name] = true
	}
	s.Selected = nil
	for _, name := range s.Columns {
		if keep[name] {
			s.Selected = append(s.Selected, name)
		}
	}
	s.Fitted = true
	return nil
}

// Transform implements Transformer
func (s *SelectKBest) Transform(t *table.Table) (*table.Table, error) {
	if !s.Fitted {
		return nil, fmt.Errorf("feature selector is not fitted")
	}
	keep := make(map[string]bool, len(s.Selected))
	for _, name := range s.Selected {
		keep[name] = true
	}
	var drop []string
	for _, name := range s.Columns {
		if !keep[name] {
			drop = append(drop, name)
		}
	}
	if missing := t.Missing(s.Selected...); len(missing) > 0 {
		return nil, fmt.Errorf("selected columns not found: %v", missing)
	}
	return t.Drop(drop...), nil
}

// FScore returns the one-way ANOVA F statistic of values grouped by labels. A feature that
// is constant within every class but differs between classes scores +Inf; a feature with
// no variation at all, or fewer than two classes, scores 0. NaN values are ignored.
func FScore(values []float64, labels []string) float64 {
	groups := make(map[string][]float64)
	var all []float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		groups[labels[i]] = append(groups[labels[i]], v)
		all = append(all, v)
	}
	k, n := len(groups), len(all)
	if k < 2 || n <= k {
		return 0
	}

	grand := stat.Mean(all, nil)
	between, within := 0.0, 0.0
	for _, g := range groups {
		m := stat.Mean(g, nil)
		between += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			within += (v - m) * (v - m)
		}
	}
	if within == 0 {
		if between == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (between / float64(k-1)) / (within / float64(n-k))
}
