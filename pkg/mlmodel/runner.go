package mlmodel

import (
	"context"
	"errors"
	"sync"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/storage"
)

// ErrTrainingInProgress is returned by TryRun while another run holds the trainer
var ErrTrainingInProgress = errors.New("training already in progress")

// Runner serialises training runs against one data source and keeps the model cache in step
// with the artifact on disk. It is shared by the HTTP server and the scheduler.
type Runner struct {
	service *Service
	source  models.DataSource
	cache   *ModelCache
	mu      sync.Mutex
}

// NewRunner creates a runner. cache may be nil.
func NewRunner(service *Service, source models.DataSource, cache *ModelCache) *Runner {
	return &Runner{service: service, source: source, cache: cache}
}

// ModelPath returns the artifact path runs write to
func (r *Runner) ModelPath() string {
	return r.service.opts.ModelPath
}

// Run trains, waiting for any active run to finish first
func (r *Runner) Run(ctx context.Context, trigger models.RunTrigger) (*models.TrainingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run(ctx, trigger)
}

// TryRun trains unless another run is active, in which case it returns ErrTrainingInProgress
func (r *Runner) TryRun(ctx context.Context, trigger models.RunTrigger) (*models.TrainingRun, error) {
	if !r.mu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer r.mu.Unlock()
	return r.run(ctx, trigger)
}

// EnsureModel trains once if no artifact exists yet. An existing artifact is served without
// waiting for a retrain in progress; callers racing on a missing model wait for the first run
// instead of each starting their own.
func (r *Runner) EnsureModel(ctx context.Context) error {
	exists, err := r.modelExists()
	if err != nil || exists {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have trained while we waited
	if exists, err := r.modelExists(); err != nil || exists {
		return err
	}
	r.service.logger.Info("model artifact missing, training on demand", "model_path", r.ModelPath())
	_, err = r.run(ctx, models.RunTriggerOnDemand)
	return err
}

func (r *Runner) modelExists() (bool, error) {
	_, err := storage.Stat(r.ModelPath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Model returns the current model, training it first when the artifact is missing
func (r *Runner) Model(ctx context.Context) (*Model, error) {
	if err := r.EnsureModel(ctx); err != nil {
		return nil, err
	}
	if r.cache != nil {
		return r.cache.Get(r.ModelPath())
	}
	return Load(r.ModelPath())
}

func (r *Runner) run(ctx context.Context, trigger models.RunTrigger) (*models.TrainingRun, error) {
	run, err := r.service.TrainRun(ctx, trigger, r.source, "", "")
	if err == nil && r.cache != nil {
		r.cache.Invalidate()
	}
	return run, err
}
