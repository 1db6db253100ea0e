package mlmodel

import (
	"fmt"
	"math"

	"github.com/mimir-aip/winequality/pkg/balance"
	"github.com/mimir-aip/winequality/pkg/features"
	"github.com/mimir-aip/winequality/pkg/mlmodel/training"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/preprocessing"
	"github.com/mimir-aip/winequality/pkg/table"
)

// Pipeline is a fitted candidate: numeric feature selection, preprocessing chain and classifier.
// The rebalancing step only runs during Fit and is not part of the persisted state.
type Pipeline struct {
	Candidate  models.Candidate
	Features   []string
	Preprocess *preprocessing.Chain
	Columns    []string // classifier inputs, in order, after preprocessing
	Classifier training.Classifier

	sampler balance.Sampler
}

// PipelineBuilder creates unfitted pipelines for candidates
type PipelineBuilder struct {
	Factory *training.Factory
	KBest   int
	Seed    int64
}

// Build returns a fresh, unfitted pipeline for candidate
func (b *PipelineBuilder) Build(candidate models.Candidate) (*Pipeline, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	clf, err := b.Factory.New(candidate.Algorithm, b.Seed)
	if err != nil {
		return nil, err
	}
	sampler, err := balance.New(candidate.Balance, b.Seed)
	if err != nil {
		return nil, err
	}

	numeric := features.NumericFeatures()
	return &Pipeline{
		Candidate: candidate,
		Features:  numeric,
		Preprocess: preprocessing.NewChain(
			preprocessing.NewImputer(preprocessing.ImputeMedian, numeric...),
			preprocessing.NewStandardScaler(numeric...),
			preprocessing.NewSelectKBest(b.KBest, numeric...),
		),
		Classifier: clf,
		sampler:    sampler,
	}, nil
}

// Fit trains the pipeline on an engineered table and one label per row
func (p *Pipeline) Fit(t *table.Table, y []string) error {
	if t.NumRows() != len(y) {
		return fmt.Errorf("got %d labels for %d rows", len(y), t.NumRows())
	}
	selected, err := t.Select(p.Features...)
	if err != nil {
		return models.NewConfigurationError("Pipeline.Fit", "features", "%v", err)
	}
	if err := p.Preprocess.Fit(selected, y); err != nil {
		return fmt.Errorf("failed to fit preprocessing: %w", err)
	}
	transformed, err := p.Preprocess.Transform(selected)
	if err != nil {
		return fmt.Errorf("failed to transform training data: %w", err)
	}
	p.Columns = transformed.FloatNames()

	X, err := matrix(transformed, p.Columns)
	if err != nil {
		return err
	}
	if p.sampler != nil {
		if X, y, err = p.sampler.Resample(X, y); err != nil {
			return fmt.Errorf("failed to rebalance with %s: %w", p.Candidate.Balance, err)
		}
	}
	if err := p.Classifier.Fit(X, y); err != nil {
		return fmt.Errorf("failed to fit %s: %w", p.Candidate.Algorithm, err)
	}
	return nil
}

// Predict returns one label per row of an engineered table
func (p *Pipeline) Predict(t *table.Table) ([]string, error) {
	if p.Classifier == nil || p.Preprocess == nil {
		return nil, fmt.Errorf("pipeline is not fitted")
	}
	selected, err := t.Select(p.Features...)
	if err != nil {
		return nil, models.NewConfigurationError("Pipeline.Predict", "features", "%v", err)
	}
	transformed, err := p.Preprocess.Transform(selected)
	if err != nil {
		return nil, fmt.Errorf("failed to transform data: %w", err)
	}
	X, err := matrix(transformed, p.Columns)
	if err != nil {
		return nil, err
	}
	return p.Classifier.Predict(X)
}

// matrix extracts the classifier inputs. Classifiers reject NaN, so any non-finite value
// left by preprocessing becomes 0, the scaled mean.
func matrix(t *table.Table, columns []string) ([][]float64, error) {
	X, err := t.Matrix(columns...)
	if err != nil {
		return nil, err
	}
	for _, row := range X {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = 0
			}
		}
	}
	return X, nil
}
