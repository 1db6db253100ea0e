package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/internal/testutil"
	"github.com/mimir-aip/winequality/pkg/ingest"
	"github.com/mimir-aip/winequality/pkg/metadatastore"
	"github.com/mimir-aip/winequality/pkg/mlmodel"
	"github.com/mimir-aip/winequality/pkg/models"
)

// newTestServer wires a real runner over a generated CSV dataset. No model exists until the
// first prediction or training request.
func newTestServer(t *testing.T) (*Server, *mlmodel.Runner) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "winequality-red.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(testutil.WineCSV(120, 5)), 0o644))

	store, err := metadatastore.NewSQLiteStore(filepath.Join(dir, "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	opts := mlmodel.DefaultOptions()
	opts.Algorithms = []models.AlgorithmKind{models.AlgorithmRandomForest}
	opts.Balances = []models.BalanceKind{models.BalanceSMOTE}
	opts.Hyperparameters.RandomForest.Trees = 25
	opts.ModelPath = filepath.Join(dir, "models", "model.gob")
	opts.MetricsPath = filepath.Join(dir, "reports", "metrics.json")

	svc, err := mlmodel.NewService(ingest.NewLoader(nil, nil), store, opts, nil)
	require.NoError(t, err)
	cache, err := mlmodel.NewModelCache(2)
	require.NoError(t, err)
	runner := mlmodel.NewRunner(svc, models.DataSource{Type: models.SourceTypeCSV, Path: dataPath}, cache)
	return NewServer(runner, svc, "0", nil), runner
}

func samplePayload(t *testing.T, values ...[]float64) []byte {
	t.Helper()
	samples := make([]*models.WineSample, len(values))
	for i, v := range values {
		s, err := models.NewWineSample(v)
		require.NoError(t, err)
		samples[i] = s
	}
	body, err := json.Marshal(samples)
	require.NoError(t, err)
	return body
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(&fakeTrainer{}, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPredictTrainsOnDemand(t *testing.T) {
	s, runner := newTestServer(t)

	body := samplePayload(t, testutil.HighQualitySample, testutil.HighQualitySample)
	rec := do(t, s.Handler(), http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{models.QualityHigh, models.QualityHigh}, resp.Predictions)

	_, err := os.Stat(runner.ModelPath())
	assert.NoError(t, err, "model should have been written")

	runs := do(t, s.Handler(), http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, runs.Code)
	var listed []*models.TrainingRun
	require.NoError(t, json.Unmarshal(runs.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, models.RunTriggerOnDemand, listed[0].Trigger)

	one := do(t, s.Handler(), http.MethodGet, "/api/runs/"+listed[0].ID, nil)
	assert.Equal(t, http.StatusOK, one.Code)
}

func TestPredictRejectsBadInput(t *testing.T) {
	s := NewServer(&fakeTrainer{}, &fakeRegistry{}, "0", nil)

	tests := map[string]string{
		"empty array":    `[]`,
		"not an array":   `{"alcohol": 10}`,
		"malformed json": `[{"alcohol":`,
		"missing field":  `[{"alcohol": 10}]`,
		"negative value": `[{"fixed_acidity":7,"volatile_acidity":-0.5,"citric_acid":0,"residual_sugar":1.9,"chlorides":0.07,"free_sulfur_dioxide":11,"total_sulfur_dioxide":34,"density":0.99,"ph":3.5,"sulphates":0.5,"alcohol":9.4}]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/predict", []byte(body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp["status"])
		})
	}
}

func TestPredictWithoutDataIsUnavailable(t *testing.T) {
	trainer := &fakeTrainer{modelErr: models.NotFoundError("dataset", "data/raw/winequality-red.csv")}
	s := NewServer(trainer, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodPost, "/predict", samplePayload(t, testutil.HighQualitySample))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrainEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodPost, "/api/train", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TrainResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.NotNil(t, resp.Metrics)
	assert.Greater(t, resp.Metrics.Accuracy, 0.0)
	require.NotNil(t, resp.Winner)
	assert.Equal(t, models.AlgorithmRandomForest, resp.Winner.Algorithm)
}

func TestTrainConflict(t *testing.T) {
	s := NewServer(&fakeTrainer{runErr: mlmodel.ErrTrainingInProgress}, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/train", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetUnknownRun(t *testing.T) {
	s := NewServer(&fakeTrainer{}, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRunsLimit(t *testing.T) {
	registry := &fakeRegistry{}
	s := NewServer(&fakeTrainer{}, registry, "0", nil)

	do(t, s.Handler(), http.MethodGet, "/api/runs?limit=3", nil)
	assert.Equal(t, 3, registry.limit)
	do(t, s.Handler(), http.MethodGet, "/api/runs?limit=abc", nil)
	assert.Equal(t, defaultRunsLimit, registry.limit)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(&fakeTrainer{}, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/predict", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPanicRecovered(t *testing.T) {
	s := NewServer(&fakeTrainer{panicOnModel: true}, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodPost, "/predict", samplePayload(t, testutil.HighQualitySample))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFormRendersDefaults(t *testing.T) {
	s := NewServer(&fakeTrainer{}, &fakeRegistry{}, "0", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	for _, name := range models.BaseFeatures {
		assert.Contains(t, rec.Body.String(), `name="`+name+`"`)
	}
}

func TestFormSubmit(t *testing.T) {
	s, _ := newTestServer(t)

	form := url.Values{}
	for i, name := range models.BaseFeatures {
		form.Set(name, strconv.FormatFloat(testutil.HighQualitySample[i], 'g', -1, 64))
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), models.QualityHigh)
}

func TestFormSubmitRejectsNonNumeric(t *testing.T) {
	s := NewServer(&fakeTrainer{}, &fakeRegistry{}, "0", nil)

	form := url.Values{}
	for _, name := range models.BaseFeatures {
		form.Set(name, "1")
	}
	form.Set(models.ColAlcohol, "strong")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "alcohol must be a number")
	assert.Contains(t, rec.Body.String(), `value="strong"`)
}

type fakeTrainer struct {
	modelErr     error
	runErr       error
	panicOnModel bool
}

func (f *fakeTrainer) Model(context.Context) (*mlmodel.Model, error) {
	if f.panicOnModel {
		panic("model store exploded")
	}
	if f.modelErr != nil {
		return nil, f.modelErr
	}
	return nil, errors.New("no model in fake")
}

func (f *fakeTrainer) TryRun(context.Context, models.RunTrigger) (*models.TrainingRun, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &models.TrainingRun{ID: "fake"}, nil
}

type fakeRegistry struct {
	limit int
}

func (f *fakeRegistry) ListRuns(limit int) ([]*models.TrainingRun, error) {
	f.limit = limit
	return []*models.TrainingRun{}, nil
}

func (f *fakeRegistry) GetRun(id string) (*models.TrainingRun, error) {
	return nil, models.NotFoundError("run", id)
}
