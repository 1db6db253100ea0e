package mlmodel

import (
	"fmt"
	"time"

	"github.com/mimir-aip/winequality/pkg/features"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/storage"
	"github.com/mimir-aip/winequality/pkg/table"
)

// ArtifactVersion is bumped whenever the persisted Model layout changes incompatibly
const ArtifactVersion = 1

// Model is the persisted artifact: a fitted pipeline plus what is needed to interpret it
type Model struct {
	Version   int
	Pipeline  *Pipeline
	Classes   []string
	Target    string
	RunID     string
	TrainedAt time.Time
}

// Save atomically writes the model to path
func Save(path string, m *Model) error {
	if m == nil || m.Pipeline == nil {
		return fmt.Errorf("cannot save an empty model")
	}
	if err := storage.WriteGob(path, m); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

// SaveWithMetrics writes the model and its metrics report together. Both files are staged
// first, so a failure leaves the previous model and report in place.
func SaveWithMetrics(modelPath string, m *Model, metricsPath string, metrics *models.Metrics) error {
	if m == nil || m.Pipeline == nil {
		return fmt.Errorf("cannot save an empty model")
	}
	err := storage.WriteAll(
		storage.File{Path: modelPath, Encode: storage.GobEncoder(m)},
		storage.File{Path: metricsPath, Encode: storage.JSONEncoder(metrics)},
	)
	if err != nil {
		return fmt.Errorf("failed to save model and metrics: %w", err)
	}
	return nil
}

// Load reads a model written by Save. A missing file is a not-found error.
func Load(path string) (*Model, error) {
	var m Model
	if err := storage.ReadGob(path, &m); err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if m.Version != ArtifactVersion {
		return nil, fmt.Errorf("unsupported model artifact version %d (want %d)", m.Version, ArtifactVersion)
	}
	if m.Pipeline == nil || m.Pipeline.Classifier == nil {
		return nil, fmt.Errorf("model artifact %s has no fitted pipeline", path)
	}
	return &m, nil
}

// Predict labels raw measurement rows. The quality columns are ignored when present. One
// label is returned per input row, in input order, including rows that duplicate others.
func Predict(m *Model, raw *table.Table) ([]string, error) {
	if m == nil || m.Pipeline == nil {
		return nil, fmt.Errorf("model is not loaded")
	}
	if raw.NumRows() == 0 {
		return nil, fmt.Errorf("no rows to predict")
	}

	input := raw.Drop(models.ColQuality, models.ColQualityLabel)
	engineered, mapping, err := features.BuildFeatureMatrixIndexed(input, false)
	if err != nil {
		return nil, err
	}
	predicted, err := m.Pipeline.Predict(engineered)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}

	out := make([]string, len(mapping))
	for i, row := range mapping {
		out[i] = predicted[row]
	}
	return out, nil
}

// SamplesTable validates samples and lays them out as a raw table with the base columns
func SamplesTable(samples []*models.WineSample) (*table.Table, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("at least one sample is required")
	}
	columns := make([][]float64, len(models.BaseFeatures))
	for j := range columns {
		columns[j] = make([]float64, len(samples))
	}
	for i, s := range samples {
		if s == nil {
			return nil, fmt.Errorf("sample %d is empty", i)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		for j, v := range s.Values() {
			columns[j][i] = v
		}
	}

	cols := make([]table.Column, len(models.BaseFeatures))
	for j, name := range models.BaseFeatures {
		cols[j] = table.NewFloat(name, columns[j])
	}
	return table.New(cols...)
}
