// Package features turns raw wine measurements into the modelling table.
package features

import (
	"math"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// epsilon is added to every denominator of a derived ratio
const epsilon = 1e-6

// SourceColumns maps the column names of the UCI wine quality files to the modelling vocabulary
var SourceColumns = map[string]string{
	"fixed acidity":        models.ColFixedAcidity,
	"volatile acidity":     models.ColVolatileAcidity,
	"citric acid":          models.ColCitricAcid,
	"residual sugar":       models.ColResidualSugar,
	"chlorides":            models.ColChlorides,
	"free sulfur dioxide":  models.ColFreeSulfurDioxide,
	"total sulfur dioxide": models.ColTotalSulfurDioxide,
	"density":              models.ColDensity,
	"pH":                   models.ColPH,
	"sulphates":            models.ColSulphates,
	"alcohol":              models.ColAlcohol,
	"quality":              models.ColQuality,
}

// Derived feature names, in the order they are appended
const (
	DensityAlcoholRatio       = "density_alcohol_ratio"
	SulphatesAlcoholRatio     = "sulphates_alcohol_ratio"
	TotalFreeSulfurRatio      = "total_free_sulfur_ratio"
	AcidityIndex              = "acidity_index"
	TotalAcidity              = "total_acidity"
	SugarSulphatesInteraction = "sugar_sulphates_interaction"
	AlcoholSulphates          = "alcohol_sulphates"
	PHAcidityInteraction      = "ph_acidity_interaction"
	AlcoholSquared            = "alcohol_squared"
	VolatileAciditySquared    = "volatile_acidity_squared"
	SulphatesSquared          = "sulphates_squared"
	SulfurEfficiency          = "sulfur_efficiency"
	CitricFixedRatio          = "citric_fixed_ratio"
	VolatileFixedRatio        = "volatile_fixed_ratio"
	DensitySugarInteraction   = "density_sugar_interaction"
)

type derivation struct {
	name string
	fn   func(r row) float64
}

// row gives named access to one record's base measurements
type row map[string]float64

func ratio(num, den float64) float64 { return num / (den + epsilon) }

var derivations = []derivation{
	{DensityAlcoholRatio, func(r row) float64 { return ratio(r[models.ColDensity], r[models.ColAlcohol]) }},
	{SulphatesAlcoholRatio, func(r row) float64 { return ratio(r[models.ColSulphates], r[models.ColAlcohol]) }},
	{TotalFreeSulfurRatio, func(r row) float64 {
		return ratio(r[models.ColTotalSulfurDioxide], r[models.ColFreeSulfurDioxide])
	}},
	{AcidityIndex, acidityIndex},
	{TotalAcidity, func(r row) float64 { return r[models.ColFixedAcidity] + r[models.ColVolatileAcidity] }},
	{SugarSulphatesInteraction, func(r row) float64 { return r[models.ColResidualSugar] * r[models.ColSulphates] }},
	{AlcoholSulphates, func(r row) float64 { return r[models.ColAlcohol] * r[models.ColSulphates] }},
	{PHAcidityInteraction, func(r row) float64 { return r[models.ColPH] * acidityIndex(r) }},
	{AlcoholSquared, func(r row) float64 { return math.Pow(r[models.ColAlcohol], 2) }},
	{VolatileAciditySquared, func(r row) float64 { return math.Pow(r[models.ColVolatileAcidity], 2) }},
	{SulphatesSquared, func(r row) float64 { return math.Pow(r[models.ColSulphates], 2) }},
	{SulfurEfficiency, func(r row) float64 {
		return ratio(r[models.ColFreeSulfurDioxide], r[models.ColTotalSulfurDioxide])
	}},
	{CitricFixedRatio, func(r row) float64 { return ratio(r[models.ColCitricAcid], r[models.ColFixedAcidity]) }},
	{VolatileFixedRatio, func(r row) float64 { return ratio(r[models.ColVolatileAcidity], r[models.ColFixedAcidity]) }},
	{DensitySugarInteraction, func(r row) float64 { return r[models.ColDensity] * r[models.ColResidualSugar] }},
}

func acidityIndex(r row) float64 {
	return r[models.ColFixedAcidity] + r[models.ColVolatileAcidity] + r[models.ColCitricAcid]
}

// DerivedFeatures lists the engineered columns in the order they are appended
func DerivedFeatures() []string {
	names := make([]string, len(derivations))
	for i, d := range derivations {
		names[i] = d.name
	}
	return names
}

// NumericFeatures lists the model inputs: the base measurements followed by the derived features
func NumericFeatures() []string {
	return append(append([]string(nil), models.BaseFeatures...), DerivedFeatures()...)
}

// BucketQuality maps a quality score to its binary label
func BucketQuality(q float64) string {
	if q >= models.QualityThreshold {
		return models.QualityHigh
	}
	return models.QualityLow
}

// BuildFeatureMatrix renames known columns, removes duplicate rows, derives the engineered
// features and fills missing numeric values with column medians. When addQualityLabel is set
// the table must carry a quality column and gains a quality_label column.
func BuildFeatureMatrix(raw *table.Table, addQualityLabel bool) (*table.Table, error) {
	out, _, err := BuildFeatureMatrixIndexed(raw, addQualityLabel)
	return out, err
}

// BuildFeatureMatrixIndexed is BuildFeatureMatrix that also returns, for every input row,
// the index of the output row that represents it after duplicate removal.
func BuildFeatureMatrixIndexed(raw *table.Table, addQualityLabel bool) (*table.Table, []int, error) {
	const op = "BuildFeatureMatrix"

	renamed, err := raw.Rename(SourceColumns)
	if err != nil {
		return nil, nil, models.NewConfigurationError(op, "columns", "%v", err)
	}

	if addQualityLabel {
		if err := requireFloat(renamed, op, models.ColQuality); err != nil {
			return nil, nil, err
		}
	}
	for _, name := range models.BaseFeatures {
		if err := requireFloat(renamed, op, name); err != nil {
			return nil, nil, err
		}
	}

	deduped, mapping := renamed.DropDuplicates()

	derived, err := derive(deduped)
	if err != nil {
		return nil, nil, err
	}

	filled, err := imputeMedians(derived)
	if err != nil {
		return nil, nil, err
	}

	if addQualityLabel {
		quality, err := filled.Float(models.ColQuality)
		if err != nil {
			return nil, nil, err
		}
		labels := make([]string, len(quality))
		for i, q := range quality {
			labels[i] = BucketQuality(q)
		}
		if filled, err = filled.WithString(models.ColQualityLabel, labels); err != nil {
			return nil, nil, err
		}
	}

	return filled, mapping, nil
}

func requireFloat(t *table.Table, op, name string) error {
	c, ok := t.Column(name)
	if !ok {
		return models.NewConfigurationError(op, name, "required column is missing")
	}
	if c.Kind != table.Float {
		return models.NewConfigurationError(op, name, "column must be numeric")
	}
	return nil
}

func derive(t *table.Table) (*table.Table, error) {
	base := make(map[string][]float64, len(models.BaseFeatures))
	for _, name := range models.BaseFeatures {
		v, err := t.Float(name)
		if err != nil {
			return nil, err
		}
		base[name] = v
	}

	values := make([][]float64, len(derivations))
	for i := range values {
		values[i] = make([]float64, t.NumRows())
	}
	r := make(row, len(base))
	for i := 0; i < t.NumRows(); i++ {
		for name, col := range base {
			r[name] = col[i]
		}
		for j, d := range derivations {
			values[j][i] = d.fn(r)
		}
	}

	out := t
	for j, d := range derivations {
		var err error
		if out, err = out.WithFloat(d.name, values[j]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// imputeMedians replaces infinities with NaN and then NaN with the column median, for every
// numeric column. Columns with no finite value are left as NaN.
func imputeMedians(t *table.Table) (*table.Table, error) {
	out := t
	for _, name := range t.FloatNames() {
		v, err := t.Float(name)
		if err != nil {
			return nil, err
		}
		for i, x := range v {
			if math.IsInf(x, 0) {
				v[i] = math.NaN()
			}
		}
		filled := table.FillNaN(v, table.NaNMedian(v))
		if out, err = out.WithFloat(name, filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}
