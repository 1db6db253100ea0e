package preprocessing

import (
	"fmt"
	"math"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// ImputeStrategy selects the fill value computed by an Imputer
type ImputeStrategy string

const (
	ImputeMedian ImputeStrategy = "median"
	ImputeMean   ImputeStrategy = "mean"
	ImputeMode   ImputeStrategy = "most_frequent"
)

// Imputer fills NaN in numeric columns with a per-column statistic learned at Fit.
// Columns with no value at Fit are filled with 0.
type Imputer struct {
	Strategy ImputeStrategy
	Columns  []string
	Fill     map[string]float64
	Fitted   bool
}

// NewImputer creates an Imputer. An empty column list imputes every float column.
func NewImputer(strategy ImputeStrategy, columns ...string) *Imputer {
	return &Imputer{Strategy: strategy, Columns: columns}
}

// Fit implements Transformer
func (im *Imputer) Fit(t *table.Table, _ []string) error {
	var stat func([]float64) float64
	switch im.Strategy {
	case ImputeMedian:
		stat = table.NaNMedian
	case ImputeMean:
		stat = table.NaNMean
	case ImputeMode:
		stat = table.NaNMode
	default:
		return models.NewConfigurationError("Imputer", "strategy", "unsupported strategy %q", im.Strategy)
	}

	im.Columns = columnsOrFloats(t, im.Columns)
	im.Fill = make(map[string]float64, len(im.Columns))
	for _, name := range im.Columns {
		values, err := t.Float(name)
		if err != nil {
			return models.NewConfigurationError("Imputer", name, "%v", err)
		}
		fill := stat(values)
		if math.IsNaN(fill) {
			fill = 0
		}
		im.Fill[name] = fill
	}
	im.Fitted = true
	return nil
}

// Transform implements Transformer
func (im *Imputer) Transform(t *table.Table) (*table.Table, error) {
	if !im.Fitted {
		return nil, fmt.Errorf("imputer is not fitted")
	}
	out := t
	for _, name := range im.Columns {
		fill := im.Fill[name]
		var err error
		out, err = out.MapFloat(func(v float64) float64 {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fill
			}
			return v
		}, name)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
