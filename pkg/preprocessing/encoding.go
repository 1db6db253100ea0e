package preprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// DropColumns removes named columns. Names that are not present are logged and skipped.
type DropColumns struct {
	Columns []string
	logger  *slog.Logger
}

// NewDropColumns creates a DropColumns step
func NewDropColumns(logger *slog.Logger, columns ...string) *DropColumns {
	return &DropColumns{Columns: columns, logger: logger}
}

// Fit implements Transformer
func (d *DropColumns) Fit(t *table.Table, _ []string) error {
	return nil
}

// Transform implements Transformer
func (d *DropColumns) Transform(t *table.Table) (*table.Table, error) {
	if missing := t.Missing(d.Columns...); len(missing) > 0 {
		logger := d.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("columns to drop are not present", "columns", missing)
	}
	return t.Drop(d.Columns...), nil
}

// OneHotEncoder replaces each categorical column with one 0/1 column per learned category,
// named "<column>_<category>". Categories unseen during Fit encode as all zeros.
type OneHotEncoder struct {
	Columns    []string
	Categories map[string][]string
	Fitted     bool
}

// NewOneHotEncoder creates a OneHotEncoder for the named columns
func NewOneHotEncoder(columns ...string) *OneHotEncoder {
	return &OneHotEncoder{Columns: columns}
}

// Fit implements Transformer
func (e *OneHotEncoder) Fit(t *table.Table, _ []string) error {
	e.Categories = make(map[string][]string, len(e.Columns))
	for _, name := range e.Columns {
		values, err := t.Strings(name)
		if err != nil {
			return models.NewConfigurationError("OneHotEncoder", name, "%v", err)
		}
		seen := make(map[string]bool)
		var cats []string
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				cats = append(cats, v)
			}
		}
		sort.Strings(cats)
		e.Categories[name] = cats
	}
	e.Fitted = true
	return nil
}

// Transform implements Transformer
func (e *OneHotEncoder) Transform(t *table.Table) (*table.Table, error) {
	if !e.Fitted {
		return nil, fmt.Errorf("one-hot encoder is not fitted")
	}
	out := t
	for _, name := range e.Columns {
		values, err := t.Strings(name)
		if err != nil {
			return nil, err
		}
		out = out.Drop(name)
		for _, cat := range e.Categories[name] {
			indicator := make([]float64, len(values))
			for i, v := range values {
				if v == cat {
					indicator[i] = 1
				}
			}
			if out, err = out.WithFloat(name+"_"+cat, indicator); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// OrdinalEncoder maps each named column to the position of its value in a supplied
// category ordering. Values outside the ordering encode as NaN.
type OrdinalEncoder struct {
	Categories map[string][]string
}

// NewOrdinalEncoder creates an OrdinalEncoder from per-column orderings
func NewOrdinalEncoder(categories map[string][]string) *OrdinalEncoder {
	return &OrdinalEncoder{Categories: categories}
}

// Fit implements Transformer
func (e *OrdinalEncoder) Fit(t *table.Table, _ []string) error {
	for _, name := range e.columns() {
		if len(e.Categories[name]) == 0 {
			return models.NewConfigurationError("OrdinalEncoder", name, "category ordering is empty")
		}
		if !t.Has(name) {
			return models.NewConfigurationError("OrdinalEncoder", name, "column is missing")
		}
	}
	return nil
}

// Transform implements Transformer
func (e *OrdinalEncoder) Transform(t *table.Table) (*table.Table, error) {
	out := t
	for _, name := range e.columns() {
		values, err := t.Strings(name)
		if err != nil {
			return nil, err
		}
		position := make(map[string]int, len(e.Categories[name]))
		for i, cat := range e.Categories[name] {
			position[cat] = i
		}
		codes := make([]float64, len(values))
		for i, v := range values {
			if p, ok := position[v]; ok {
				codes[i] = float64(p)
			} else {
				codes[i] = math.NaN()
			}
		}
		if out, err = out.WithFloat(name, codes); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *OrdinalEncoder) columns() []string {
	names := make([]string, 0, len(e.Categories))
	for name := range e.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
