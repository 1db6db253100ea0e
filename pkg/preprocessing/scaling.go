package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// MinMaxScaler rescales numeric columns to [0, 1]. Constant columns map to 0.
// An empty Columns list scales every float column seen at Fit.
type MinMaxScaler struct {
	Columns []string
	Min     map[string]float64
	Max     map[string]float64
	Fitted  bool
}

// NewMinMaxScaler creates a MinMaxScaler
func NewMinMaxScaler(columns ...string) *MinMaxScaler {
	return &MinMaxScaler{Columns: columns}
}

// Fit implements Transformer
func (s *MinMaxScaler) Fit(t *table.Table, _ []string) error {
	s.Columns = columnsOrFloats(t, s.Columns)
	s.Min = make(map[string]float64, len(s.Columns))
	s.Max = make(map[string]float64, len(s.Columns))
	for _, name := range s.Columns {
		values, err := t.Float(name)
		if err != nil {
			return models.NewConfigurationError("MinMaxScaler", name, "%v", err)
		}
		present := table.Present(values)
		if len(present) == 0 {
			s.Min[name], s.Max[name] = 0, 0
			continue
		}
		s.Min[name] = floats.Min(present)
		s.Max[name] = floats.Max(present)
	}
	s.Fitted = true
	return nil
}

// Transform implements Transformer
func (s *MinMaxScaler) Transform(t *table.Table) (*table.Table, error) {
	if !s.Fitted {
		return nil, fmt.Errorf("min-max scaler is not fitted")
	}
	out := t
	for _, name := range s.Columns {
		lo, span := s.Min[name], s.Max[name]-s.Min[name]
		var err error
		out, err = out.MapFloat(func(v float64) float64 {
			if span == 0 {
				return 0
			}
			return (v - lo) / span
		}, name)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// epsilon is the float64 machine epsilon; scales below a small multiple of it are treated as zero
const epsilon = 2.220446049250313e-16

// StandardScaler centres numeric columns on zero with unit variance. Constant columns map to 0.
type StandardScaler struct {
	Columns []string
	Mean    map[string]float64
	Scale   map[string]float64
	Fitted  bool
}

// NewStandardScaler creates a StandardScaler
func NewStandardScaler(columns ...string) *StandardScaler {
	return &StandardScaler{Columns: columns}
}

// Fit implements Transformer
func (s *StandardScaler) Fit(t *table.Table, _ []string) error {
	s.Columns = columnsOrFloats(t, s.Columns)
	s.Mean = make(map[string]float64, len(s.Columns))
	s.Scale = make(map[string]float64, len(s.Columns))
	for _, name := range s.Columns {
		values, err := t.Float(name)
		if err != nil {
			return models.NewConfigurationError("StandardScaler", name, "%v", err)
		}
		present := table.Present(values)
		if len(present) == 0 {
			s.Mean[name], s.Scale[name] = 0, 0
			continue
		}
		// population standard deviation
		mean, std := stat.PopMeanStdDev(present, nil)
		s.Mean[name] = mean
		if std < 10*epsilon*math.Max(1, math.Abs(mean)) {
			std = 0
		}
		s.Scale[name] = std
	}
	s.Fitted = true
	return nil
}

// Transform implements Transformer
func (s *StandardScaler) Transform(t *table.Table) (*table.Table, error) {
	if !s.Fitted {
		return nil, fmt.Errorf("standard scaler is not fitted")
	}
	out := t
	for _, name := range s.Columns {
		mean, scale := s.Mean[name], s.Scale[name]
		var err error
		out, err = out.MapFloat(func(v float64) float64 {
			if scale == 0 {
				return 0
			}
			return (v - mean) / scale
		}, name)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
