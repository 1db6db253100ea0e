package preprocessing

import (
	"fmt"
	"math"

	"github.com/mimir-aip/winequality/pkg/balance"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// Oversampler appends synthetic minority rows to a table that carries its own label column.
// Each minority class is grown to Ratio times the majority count by interpolating between
// nearest minority neighbours over the feature columns. Synthetic rows hold NaN in float
// columns that are not features and "" in other string columns.
type Oversampler struct {
	TargetColumn string
	Ratio        float64
	K            int
	Seed         int64
	Columns      []string // feature columns; every float column except the target when empty
}

// NewOversampler creates an Oversampler that balances classes fully
func NewOversampler(targetColumn string, seed int64) *Oversampler {
	return &Oversampler{TargetColumn: targetColumn, Ratio: 1, K: 5, Seed: seed}
}

// Fit implements Transformer
func (o *Oversampler) Fit(t *table.Table, _ []string) error {
	if !t.Has(o.TargetColumn) {
		return models.NewConfigurationError("Oversampler", o.TargetColumn, "target column is missing")
	}
	if len(o.Columns) == 0 {
		for _, name := range t.FloatNames() {
			if name != o.TargetColumn {
				o.Columns = append(o.Columns, name)
			}
		}
	}
	if missing := t.Missing(o.Columns...); len(missing) > 0 {
		return models.NewConfigurationError("Oversampler", "columns", "feature columns not found: %v", missing)
	}
	return nil
}

// Transform implements Transformer
func (o *Oversampler) Transform(t *table.Table) (*table.Table, error) {
	if !t.Has(o.TargetColumn) {
		return nil, models.NewConfigurationError("Oversampler", o.TargetColumn, "target column is missing")
	}
	labels, err := t.Strings(o.TargetColumn)
	if err != nil {
		return nil, err
	}
	X, err := t.Matrix(o.Columns...)
	if err != nil {
		return nil, err
	}

	k := o.K
	if k <= 0 {
		k = 5
	}
	sampler := &balance.SMOTE{K: k, Ratio: o.Ratio, Seed: o.Seed}
	outX, outY, err := sampler.Resample(X, labels)
	if err != nil {
		return nil, fmt.Errorf("oversampling %s: %w", o.TargetColumn, err)
	}
	if len(outY) == len(labels) {
		return t, nil
	}
	return o.extend(t, outX[len(X):], outY[len(labels):])
}

// extend appends synthetic rows to t
func (o *Oversampler) extend(t *table.Table, synthX [][]float64, synthY []string) (*table.Table, error) {
	feature := make(map[string]int, len(o.Columns))
	for j, name := range o.Columns {
		feature[name] = j
	}
	targetIsFloat := false
	if c, _ := t.Column(o.TargetColumn); c.Kind == table.Float {
		targetIsFloat = true
	}

	cols := make([]table.Column, 0, t.NumCols())
	for _, name := range t.Names() {
		c, _ := t.Column(name)
		switch {
		case name == o.TargetColumn && targetIsFloat:
			values := c.Floats()
			for _, label := range synthY {
				var v float64
				if _, err := fmt.Sscanf(label, "%g", &v); err != nil {
					v = math.NaN()
				}
				values = append(values, v)
			}
			cols = append(cols, table.NewFloat(name, values))
		case name == o.TargetColumn:
			cols = append(cols, table.NewString(name, append(c.Strings(), synthY...)))
		case c.Kind == table.Float:
			values := c.Floats()
			j, isFeature := feature[name]
			for _, row := range synthX {
				if isFeature {
					values = append(values, row[j])
				} else {
					values = append(values, math.NaN())
				}
			}
			cols = append(cols, table.NewFloat(name, values))
		default:
			cols = append(cols, table.NewString(name, append(c.Strings(), make([]string, len(synthX))...)))
		}
	}
	return table.New(cols...)
}
