package models

import "fmt"

// Quality labels assigned by bucketing the integer quality score
const (
	QualityLow  = "Baixa qualidade"
	QualityHigh = "Alta qualidade"

	// QualityThreshold is the lowest score labelled QualityHigh
	QualityThreshold = 6.0
)

// Column names of the modelling table
const (
	ColFixedAcidity       = "fixed_acidity"
	ColVolatileAcidity    = "volatile_acidity"
	ColCitricAcid         = "citric_acid"
	ColResidualSugar      = "residual_sugar"
	ColChlorides          = "chlorides"
	ColFreeSulfurDioxide  = "free_sulfur_dioxide"
	ColTotalSulfurDioxide = "total_sulfur_dioxide"
	ColDensity            = "density"
	ColPH                 = "ph"
	ColSulphates          = "sulphates"
	ColAlcohol            = "alcohol"
	ColQuality            = "quality"
	ColQualityLabel       = "quality_label"
)

// BaseFeatures lists the eleven physicochemical measurements in canonical order
var BaseFeatures = []string{
	ColFixedAcidity,
	ColVolatileAcidity,
	ColCitricAcid,
	ColResidualSugar,
	ColChlorides,
	ColFreeSulfurDioxide,
	ColTotalSulfurDioxide,
	ColDensity,
	ColPH,
	ColSulphates,
	ColAlcohol,
}

// WineSample is one raw measurement row submitted for prediction.
// Pointer fields distinguish a missing value from an explicit zero.
type WineSample struct {
	FixedAcidity       *float64 `json:"fixed_acidity"`
	VolatileAcidity    *float64 `json:"volatile_acidity"`
	CitricAcid         *float64 `json:"citric_acid"`
	ResidualSugar      *float64 `json:"residual_sugar"`
	Chlorides          *float64 `json:"chlorides"`
	FreeSulfurDioxide  *float64 `json:"free_sulfur_dioxide"`
	TotalSulfurDioxide *float64 `json:"total_sulfur_dioxide"`
	Density            *float64 `json:"density"`
	PH                 *float64 `json:"ph"`
	Sulphates          *float64 `json:"sulphates"`
	Alcohol            *float64 `json:"alcohol"`
}

// Values returns the measurements in BaseFeatures order
func (s *WineSample) Values() []float64 {
	fields := s.fields()
	out := make([]float64, len(fields))
	for i, f := range fields {
		if f != nil {
			out[i] = *f
		}
	}
	return out
}

// Validate checks that every measurement is present and non-negative
func (s *WineSample) Validate() error {
	for i, f := range s.fields() {
		if f == nil {
			return fmt.Errorf("%s is required", BaseFeatures[i])
		}
		if *f < 0 {
			return fmt.Errorf("%s must be >= 0, got %g", BaseFeatures[i], *f)
		}
	}
	return nil
}

func (s *WineSample) fields() []*float64 {
	return []*float64{
		s.FixedAcidity,
		s.VolatileAcidity,
		s.CitricAcid,
		s.ResidualSugar,
		s.Chlorides,
		s.FreeSulfurDioxide,
		s.TotalSulfurDioxide,
		s.Density,
		s.PH,
		s.Sulphates,
		s.Alcohol,
	}
}

// NewWineSample builds a sample from values in BaseFeatures order
func NewWineSample(values []float64) (*WineSample, error) {
	if len(values) != len(BaseFeatures) {
		return nil, fmt.Errorf("expected %d values, got %d", len(BaseFeatures), len(values))
	}
	v := make([]float64, len(values))
	copy(v, values)
	return &WineSample{
		FixedAcidity:       &v[0],
		VolatileAcidity:    &v[1],
		CitricAcid:         &v[2],
		ResidualSugar:      &v[3],
		Chlorides:          &v[4],
		FreeSulfurDioxide:  &v[5],
		TotalSulfurDioxide: &v[6],
		Density:            &v[7],
		PH:                 &v[8],
		Sulphates:          &v[9],
		Alcohol:            &v[10],
	}, nil
}
