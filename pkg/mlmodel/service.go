// Package mlmodel trains, persists and serves the wine quality classifier.
package mlmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mimir-aip/winequality/pkg/features"
	"github.com/mimir-aip/winequality/pkg/metadatastore"
	"github.com/mimir-aip/winequality/pkg/mlmodel/training"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// DataLoader reads a raw table from a data source
type DataLoader interface {
	Load(ctx context.Context, source models.DataSource) (*table.Table, error)
}

// Options controls training
type Options struct {
	Seed            int64
	TestSize        float64
	KBest           int
	Algorithms      []models.AlgorithmKind
	Balances        []models.BalanceKind
	Hyperparameters models.Hyperparameters
	ModelPath       string
	MetricsPath     string
}

// DefaultOptions returns the standard training setup
func DefaultOptions() Options {
	return Options{
		Seed:            42,
		TestSize:        0.2,
		KBest:           20,
		Algorithms:      append([]models.AlgorithmKind(nil), models.AllAlgorithms...),
		Balances:        append([]models.BalanceKind(nil), models.AllBalanceMethods...),
		Hyperparameters: models.DefaultHyperparameters(),
		ModelPath:       "models/wine_quality_model.gob",
		MetricsPath:     "reports/metrics.json",
	}
}

// Service handles the full training workflow
type Service struct {
	loader     DataLoader
	store      metadatastore.Store
	opts       Options
	factory    *training.Factory
	algorithms []models.AlgorithmKind
	logger     *slog.Logger
	progress   ProgressFunc
}

// NewService creates a training service. The algorithm list is resolved against the build's
// capabilities here, once. store may be nil, in which case runs are not recorded.
func NewService(loader DataLoader, store metadatastore.Store, opts Options, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		return nil, fmt.Errorf("data loader is required")
	}
	if err := opts.Hyperparameters.Validate(); err != nil {
		return nil, err
	}
	for _, b := range opts.Balances {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	caps := training.DetectCapabilities()
	algorithms, err := caps.Resolve(opts.Algorithms, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		loader:     loader,
		store:      store,
		opts:       opts,
		factory:    training.NewFactory(opts.Hyperparameters, caps),
		algorithms: algorithms,
		logger:     logger,
	}, nil
}

// SetProgress installs a callback invoked after each candidate is scored
func (s *Service) SetProgress(fn ProgressFunc) {
	s.progress = fn
}

// Algorithms returns the resolved algorithm list
func (s *Service) Algorithms() []models.AlgorithmKind {
	return append([]models.AlgorithmKind(nil), s.algorithms...)
}

// NumCandidates returns how many candidates a training run evaluates
func (s *Service) NumCandidates() int {
	return len(s.algorithms) * len(s.opts.Balances)
}

// Train runs the full workflow and returns the metrics and the path of the written model.
// Empty paths use the configured defaults.
func (s *Service) Train(ctx context.Context, source models.DataSource, modelPath, metricsPath string) (*models.Metrics, string, error) {
	run, err := s.TrainRun(ctx, models.RunTriggerCLI, source, modelPath, metricsPath)
	if err != nil {
		return nil, "", err
	}
	return run.Metrics, run.ModelPath, nil
}

// TrainRun is Train that also reports the recorded run. The run is returned, marked failed,
// together with the error when training does not complete.
func (s *Service) TrainRun(ctx context.Context, trigger models.RunTrigger, source models.DataSource, modelPath, metricsPath string) (*models.TrainingRun, error) {
	if modelPath == "" {
		modelPath = s.opts.ModelPath
	}
	if metricsPath == "" {
		metricsPath = s.opts.MetricsPath
	}

	run := &models.TrainingRun{
		ID:          uuid.New().String(),
		Status:      models.RunStatusRunning,
		Trigger:     trigger,
		Source:      source,
		ModelPath:   modelPath,
		MetricsPath: metricsPath,
		StartedAt:   time.Now().UTC(),
	}
	s.record(run)

	logger := s.logger.With("run_id", run.ID)
	logger.Info("training started", "source", source.String(), "trigger", string(trigger))

	err := s.train(ctx, run, logger)
	run.Finish(err)
	s.record(run)
	if err != nil {
		logger.Error("training failed", "error", err)
		return run, err
	}
	logger.Info("training finished",
		"winner", run.Winner.String(),
		"f1_weighted", run.Metrics.F1Weighted,
		"accuracy", run.Metrics.Accuracy,
		"duration", run.Duration())
	return run, nil
}

func (s *Service) train(ctx context.Context, run *models.TrainingRun, logger *slog.Logger) error {
	if err := run.Source.Validate(); err != nil {
		return err
	}
	raw, err := s.loader.Load(ctx, run.Source)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	engineered, err := features.BuildFeatureMatrix(raw, true)
	if err != nil {
		return fmt.Errorf("failed to build features: %w", err)
	}
	labels, err := engineered.Strings(models.ColQualityLabel)
	if err != nil {
		return err
	}
	logger.Info("features built", "rows", engineered.NumRows(), "raw_rows", raw.NumRows())

	trainIdx, testIdx, err := StratifiedSplit(labels, s.opts.TestSize, s.opts.Seed)
	if err != nil {
		return fmt.Errorf("failed to split data: %w", err)
	}
	trainSet, yTrain, err := subset(engineered, labels, trainIdx)
	if err != nil {
		return err
	}
	testSet, yTest, err := subset(engineered, labels, testIdx)
	if err != nil {
		return err
	}

	selector := &Selector{
		Builder:    &PipelineBuilder{Factory: s.factory, KBest: s.opts.KBest, Seed: s.opts.Seed},
		Algorithms: s.algorithms,
		Balances:   s.opts.Balances,
		Logger:     logger,
		Progress:   s.progress,
	}
	selection, err := selector.SelectBest(ctx, trainSet, yTrain, testSet, yTest)
	if err != nil {
		return fmt.Errorf("failed to select model: %w", err)
	}
	winner := selection.Winner
	run.Winner = &winner
	run.Fallback = selection.Fallback
	run.Candidates = selection.Results

	predicted, err := selection.Pipeline.Predict(testSet)
	if err != nil {
		return fmt.Errorf("failed to evaluate model: %w", err)
	}
	report, err := Evaluate(yTest, predicted)
	if err != nil {
		return fmt.Errorf("failed to evaluate model: %w", err)
	}
	metrics := &models.Metrics{
		Accuracy:   round4(report.Accuracy),
		F1Weighted: round4(report.WeightedAvg.F1Score),
		Report:     report,
		NTrain:     len(trainIdx),
		NTest:      len(testIdx),
		Target:     models.ColQualityLabel,
	}

	model := &Model{
		Version:   ArtifactVersion,
		Pipeline:  selection.Pipeline,
		Classes:   selection.Pipeline.Classifier.Classes(),
		Target:    models.ColQualityLabel,
		RunID:     run.ID,
		TrainedAt: time.Now().UTC(),
	}
	if err := SaveWithMetrics(run.ModelPath, model, run.MetricsPath, metrics); err != nil {
		return err
	}
	run.Metrics = metrics
	return nil
}

// record persists the run when a registry is configured. Registry failures never fail training.
func (s *Service) record(run *models.TrainingRun) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(run); err != nil {
		s.logger.Warn("failed to record training run", "run_id", run.ID, "error", err)
	}
}

// ListRuns returns recorded runs, newest first
func (s *Service) ListRuns(limit int) ([]*models.TrainingRun, error) {
	if s.store == nil {
		return []*models.TrainingRun{}, nil
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one recorded run
func (s *Service) GetRun(id string) (*models.TrainingRun, error) {
	if s.store == nil {
		return nil, models.NotFoundError("run", id)
	}
	run, err := s.store.GetRun(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func subset(t *table.Table, labels []string, idx []int) (*table.Table, []string, error) {
	rows, err := t.Take(idx)
	if err != nil {
		return nil, nil, err
	}
	y := make([]string, len(idx))
	for i, r := range idx {
		y[i] = labels[r]
	}
	return rows, y, nil
}
