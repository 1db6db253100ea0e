package mlmodel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/internal/testutil"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

func trainedModel(t *testing.T) *Model {
	t.Helper()
	train, yTrain, _, _ := engineeredSplit(t, 120, 11)
	s := &Selector{
		Builder:    testBuilder(),
		Algorithms: []models.AlgorithmKind{models.AlgorithmRandomForest},
		Balances:   []models.BalanceKind{models.BalanceSMOTE},
	}
	selection, err := s.SelectBest(context.Background(), train, yTrain, train, yTrain)
	require.NoError(t, err)
	return &Model{
		Version:  ArtifactVersion,
		Pipeline: selection.Pipeline,
		Classes:  selection.Pipeline.Classifier.Classes(),
		Target:   models.ColQualityLabel,
	}
}

func TestSaveLoadRoundTripPredictsIdentically(t *testing.T) {
	model := trainedModel(t)
	path := filepath.Join(t.TempDir(), "artifacts", "model.gob")
	require.NoError(t, Save(path, model))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Classes, loaded.Classes)

	raw := testutil.WineTable(40, 99)
	want, err := Predict(model, raw)
	require.NoError(t, err)
	got, err := Predict(loaded, raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingModelIsNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.gob"))
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPredictOneLabelPerRowInOrder(t *testing.T) {
	model := trainedModel(t)
	rows := testutil.Rows(6, 21)
	// duplicate the first row at the end; both copies must get a label
	rows = append(rows, append([]float64(nil), rows[0]...))
	raw, err := table.FromMatrix(testutil.UCIColumns, rows)
	require.NoError(t, err)

	labels, err := Predict(model, raw)
	require.NoError(t, err)
	require.Len(t, labels, 7)
	assert.Equal(t, labels[0], labels[6])

	for i := range rows {
		single, err := table.FromMatrix(testutil.UCIColumns, [][]float64{rows[i]})
		require.NoError(t, err)
		one, err := Predict(model, single)
		require.NoError(t, err)
		assert.Equal(t, one[0], labels[i], "row %d", i)
	}
}

func TestPredictIgnoresQualityColumns(t *testing.T) {
	model := trainedModel(t)
	withQuality := testutil.WineTable(10, 5)
	withoutQuality := withQuality.Drop("quality")

	a, err := Predict(model, withQuality)
	require.NoError(t, err)
	b, err := Predict(model, withoutQuality)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictHighQualitySample(t *testing.T) {
	model := trainedModel(t)
	sample, err := models.NewWineSample(testutil.HighQualitySample)
	require.NoError(t, err)
	raw, err := SamplesTable([]*models.WineSample{sample})
	require.NoError(t, err)

	labels, err := Predict(model, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{models.QualityHigh}, labels)
}

func TestSamplesTableValidates(t *testing.T) {
	_, err := SamplesTable(nil)
	assert.Error(t, err)

	sample, err := models.NewWineSample(testutil.HighQualitySample)
	require.NoError(t, err)
	sample.Alcohol = nil
	_, err = SamplesTable([]*models.WineSample{sample})
	assert.ErrorContains(t, err, models.ColAlcohol)

	negative := -1.0
	sample, err = models.NewWineSample(testutil.HighQualitySample)
	require.NoError(t, err)
	sample.PH = &negative
	_, err = SamplesTable([]*models.WineSample{sample})
	assert.Error(t, err)
}

func TestSamplesTableLayout(t *testing.T) {
	sample, err := models.NewWineSample(testutil.HighQualitySample)
	require.NoError(t, err)
	raw, err := SamplesTable([]*models.WineSample{sample})
	require.NoError(t, err)

	assert.Equal(t, models.BaseFeatures, raw.Names())
	alcohol, err := raw.Float(models.ColAlcohol)
	require.NoError(t, err)
	assert.Equal(t, []float64{14}, alcohol)
}
