package mlmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/internal/testutil"
	"github.com/mimir-aip/winequality/pkg/features"
	"github.com/mimir-aip/winequality/pkg/mlmodel/training"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

func fastHyperparameters() models.Hyperparameters {
	h := models.DefaultHyperparameters()
	h.RandomForest.Trees, h.RandomForest.MaxDepth = 25, 8
	h.ExtraTrees.Trees, h.ExtraTrees.MaxDepth = 25, 8
	h.GradientBoosting.Rounds, h.GradientBoosting.MaxDepth = 15, 3
	h.HistGradientBoosting.Rounds, h.HistGradientBoosting.MaxDepth = 15, 3
	h.HistGradientBoosting.MinSamplesSplit, h.HistGradientBoosting.MinSamplesLeaf = 4, 2
	return h
}

func testOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.Hyperparameters = fastHyperparameters()
	dir := t.TempDir()
	opts.ModelPath = dir + "/models/model.gob"
	opts.MetricsPath = dir + "/models/metrics.json"
	return opts
}

func testBuilder() *PipelineBuilder {
	factory := training.NewFactory(fastHyperparameters(), training.DetectCapabilities())
	return &PipelineBuilder{Factory: factory, KBest: 20, Seed: 42}
}

// engineeredSplit returns a labelled engineered table split into train and test parts
func engineeredSplit(t *testing.T, n int, seed int64) (*table.Table, []string, *table.Table, []string) {
	t.Helper()
	engineered, err := features.BuildFeatureMatrix(testutil.WineTable(n, seed), true)
	require.NoError(t, err)
	labels, err := engineered.Strings(models.ColQualityLabel)
	require.NoError(t, err)

	trainIdx, testIdx, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	train, yTrain, err := subset(engineered, labels, trainIdx)
	require.NoError(t, err)
	test, yTest, err := subset(engineered, labels, testIdx)
	require.NoError(t, err)
	return train, yTrain, test, yTest
}

type tableLoader struct {
	table *table.Table
	err   error
	calls int
}

func (l *tableLoader) Load(_ context.Context, _ models.DataSource) (*table.Table, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.table, nil
}

var csvSource = models.DataSource{Type: models.SourceTypeCSV, Path: "data/winequality-red.csv"}
