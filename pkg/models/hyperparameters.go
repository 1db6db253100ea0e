package models

import "fmt"

// ForestParams configures random forest and extra trees ensembles
type ForestParams struct {
	Trees           int  `json:"trees" yaml:"trees"`
	MaxDepth        int  `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int  `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int  `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	Bootstrap       bool `json:"bootstrap" yaml:"bootstrap"`
	BalancedWeights bool `json:"balanced_weights" yaml:"balanced_weights"` // weight classes inversely to frequency
}

// BoostingParams configures gradient boosted tree ensembles
type BoostingParams struct {
	Rounds          int     `json:"rounds" yaml:"rounds"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	MinSamplesSplit int     `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	Subsample       float64 `json:"subsample" yaml:"subsample"`
	MaxBins         int     `json:"max_bins,omitempty" yaml:"max_bins,omitempty"` // histogram variant only
}

// Hyperparameters holds the settings of every algorithm
type Hyperparameters struct {
	RandomForest         ForestParams   `json:"random_forest" yaml:"random_forest"`
	ExtraTrees           ForestParams   `json:"extra_trees" yaml:"extra_trees"`
	GradientBoosting     BoostingParams `json:"gradient_boosting" yaml:"gradient_boosting"`
	HistGradientBoosting BoostingParams `json:"hist_gradient_boosting" yaml:"hist_gradient_boosting"`
}

// DefaultHyperparameters returns the production settings
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		RandomForest: ForestParams{
			Trees:           500,
			MaxDepth:        25,
			MinSamplesSplit: 3,
			MinSamplesLeaf:  1,
			Bootstrap:       true,
			BalancedWeights: true,
		},
		ExtraTrees: ForestParams{
			Trees:           500,
			MaxDepth:        25,
			MinSamplesSplit: 3,
			MinSamplesLeaf:  1,
			BalancedWeights: true,
		},
		GradientBoosting: BoostingParams{
			Rounds:          200,
			MaxDepth:        8,
			LearningRate:    0.1,
			MinSamplesSplit: 4,
			MinSamplesLeaf:  2,
			Subsample:       0.8,
		},
		HistGradientBoosting: BoostingParams{
			Rounds:          300,
			MaxDepth:        10,
			LearningRate:    0.1,
			MinSamplesSplit: 40,
			MinSamplesLeaf:  20,
			Subsample:       1,
			MaxBins:         255,
		},
	}
}

// Validate checks that every setting is in range
func (h Hyperparameters) Validate() error {
	forests := []struct {
		name string
		ForestParams
	}{{"random_forest", h.RandomForest}, {"extra_trees", h.ExtraTrees}}
	for _, f := range forests {
		if f.Trees < 1 || f.MaxDepth < 1 || f.MinSamplesSplit < 2 || f.MinSamplesLeaf < 1 {
			return fmt.Errorf("%s: trees and max_depth must be >= 1, min_samples_split >= 2, min_samples_leaf >= 1", f.name)
		}
	}
	boosters := []struct {
		name string
		BoostingParams
	}{{"gradient_boosting", h.GradientBoosting}, {"hist_gradient_boosting", h.HistGradientBoosting}}
	for _, b := range boosters {
		if b.Rounds < 1 || b.MaxDepth < 1 || b.MinSamplesSplit < 2 || b.MinSamplesLeaf < 1 {
			return fmt.Errorf("%s: rounds and max_depth must be >= 1, min_samples_split >= 2, min_samples_leaf >= 1", b.name)
		}
		if b.LearningRate <= 0 || b.LearningRate > 1 {
			return fmt.Errorf("%s: learning_rate must be in (0, 1]", b.name)
		}
		if b.Subsample <= 0 || b.Subsample > 1 {
			return fmt.Errorf("%s: subsample must be in (0, 1]", b.name)
		}
	}
	if b := h.HistGradientBoosting.MaxBins; b < 2 || b > 65535 {
		return fmt.Errorf("hist_gradient_boosting: max_bins must be in [2, 65535]")
	}
	return nil
}
