package mlmodel

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/internal/testutil"
	"github.com/mimir-aip/winequality/pkg/metadatastore"
	"github.com/mimir-aip/winequality/pkg/models"
)

func TestTrainEndToEnd(t *testing.T) {
	opts := testOptions(t)
	loader := &tableLoader{table: testutil.WineTable(120, 1)}
	svc, err := NewService(loader, nil, opts, nil)
	require.NoError(t, err)

	metrics, modelPath, err := svc.Train(context.Background(), csvSource, "", "")
	require.NoError(t, err)
	assert.Equal(t, opts.ModelPath, modelPath)
	assert.FileExists(t, modelPath)
	assert.FileExists(t, opts.MetricsPath)

	assert.Greater(t, metrics.Accuracy, 0.0)
	assert.Greater(t, metrics.F1Weighted, 0.0)
	assert.Equal(t, models.ColQualityLabel, metrics.Target)
	assert.Equal(t, 120, metrics.NTrain+metrics.NTest)
	assert.Equal(t, 24, metrics.NTest)

	data, err := os.ReadFile(opts.MetricsPath)
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, json.Unmarshal(data, &written))
	for _, key := range []string{"accuracy", "f1_weighted", "report", "n_train", "n_test", "target"} {
		assert.Contains(t, written, key)
	}
	report := written["report"].(map[string]any)
	assert.Contains(t, report, models.QualityHigh)
	assert.Contains(t, report, "weighted avg")

	model, err := Load(modelPath)
	require.NoError(t, err)
	sample, err := models.NewWineSample(testutil.HighQualitySample)
	require.NoError(t, err)
	raw, err := SamplesTable([]*models.WineSample{sample})
	require.NoError(t, err)
	labels, err := Predict(model, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{models.QualityHigh}, labels)
}

func TestTrainWritesNothingOnFailure(t *testing.T) {
	opts := testOptions(t)
	loader := &tableLoader{err: errors.New("disk on fire")}
	svc, err := NewService(loader, nil, opts, nil)
	require.NoError(t, err)

	_, _, err = svc.Train(context.Background(), csvSource, "", "")
	require.Error(t, err)
	assert.NoFileExists(t, opts.ModelPath)
	assert.NoFileExists(t, opts.MetricsPath)
}

func TestTrainKeepsModelWhenMetricsCannotBeWritten(t *testing.T) {
	opts := testOptions(t)
	opts.Algorithms = []models.AlgorithmKind{models.AlgorithmRandomForest}
	opts.Balances = []models.BalanceKind{models.BalanceSMOTE}
	svc, err := NewService(&tableLoader{table: testutil.WineTable(80, 4)}, nil, opts, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gob")
	blocker := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, _, err = svc.Train(context.Background(), csvSource, modelPath, filepath.Join(blocker, "metrics.json"))
	require.Error(t, err)
	assert.NoFileExists(t, modelPath, "model must not be committed without its metrics")

	// A previous model survives a failed retrain untouched
	_, _, err = svc.Train(context.Background(), csvSource, modelPath, filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	before, err := os.ReadFile(modelPath)
	require.NoError(t, err)

	_, _, err = svc.Train(context.Background(), csvSource, modelPath, filepath.Join(blocker, "metrics.json"))
	require.Error(t, err)
	after, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTrainRejectsTableWithoutQuality(t *testing.T) {
	opts := testOptions(t)
	loader := &tableLoader{table: testutil.WineTable(60, 1).Drop("quality")}
	svc, err := NewService(loader, nil, opts, nil)
	require.NoError(t, err)

	_, _, err = svc.Train(context.Background(), csvSource, "", "")
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.NoFileExists(t, opts.ModelPath)
}

func TestTrainRunIsRecorded(t *testing.T) {
	opts := testOptions(t)
	opts.Algorithms = []models.AlgorithmKind{models.AlgorithmRandomForest}
	opts.Balances = []models.BalanceKind{models.BalanceSMOTE}
	store, err := metadatastore.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	svc, err := NewService(&tableLoader{table: testutil.WineTable(80, 2)}, store, opts, nil)
	require.NoError(t, err)

	run, err := svc.TrainRun(context.Background(), models.RunTriggerAPI, csvSource, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.Winner)
	assert.Len(t, run.Candidates, 1)

	saved, err := svc.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, saved.Status)
	assert.Equal(t, models.RunTriggerAPI, saved.Trigger)
	require.NotNil(t, saved.Metrics)
	assert.Equal(t, run.Metrics.F1Weighted, saved.Metrics.F1Weighted)

	failing, err := NewService(&tableLoader{err: errors.New("boom")}, store, opts, nil)
	require.NoError(t, err)
	failedRun, err := failing.TrainRun(context.Background(), models.RunTriggerSchedule, csvSource, "", "")
	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, failedRun.Status)

	runs, err := svc.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestNewServiceValidatesOptions(t *testing.T) {
	loader := &tableLoader{}

	opts := DefaultOptions()
	opts.Algorithms = []models.AlgorithmKind{"svm"}
	_, err := NewService(loader, nil, opts, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	opts = DefaultOptions()
	opts.Balances = []models.BalanceKind{"undersample"}
	_, err = NewService(loader, nil, opts, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = NewService(nil, nil, DefaultOptions(), nil)
	assert.Error(t, err)
}

func TestNumCandidates(t *testing.T) {
	svc, err := NewService(&tableLoader{}, nil, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(svc.Algorithms())*3, svc.NumCandidates())
}
