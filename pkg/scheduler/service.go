// Package scheduler retrains the model on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mimir-aip/winequality/pkg/mlmodel"
	"github.com/mimir-aip/winequality/pkg/models"
)

// Trainer runs one training pass, refusing to overlap an active one
type Trainer interface {
	TryRun(ctx context.Context, trigger models.RunTrigger) (*models.TrainingRun, error)
}

// Service provides scheduled retraining
type Service struct {
	trainer  Trainer
	schedule string
	cron     *cron.Cron
	entry    cron.EntryID
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewService creates a scheduler for the given cron expression. An empty schedule disables
// retraining; Start and Stop are then no-ops.
func NewService(trainer Trainer, schedule string, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		trainer:  trainer,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
	if schedule == "" {
		return s, nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, models.NewConfigurationError("scheduler", "retrain_schedule", "invalid cron expression: %v", err)
	}
	entry, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule retraining: %w", err)
	}
	s.entry = entry
	return s, nil
}

// Enabled reports whether a schedule is configured
func (s *Service) Enabled() bool {
	return s.schedule != ""
}

// Start starts the scheduler
func (s *Service) Start() {
	if !s.Enabled() {
		s.logger.Info("retraining schedule disabled")
		return
	}
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("retraining scheduler started", "schedule", s.schedule, "next_run", s.NextRun())
}

// Stop stops the scheduler, cancelling a run in progress and waiting for it to return
func (s *Service) Stop() {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("retraining scheduler stopped")
}

// NextRun returns the next scheduled time, or the zero time when nothing is scheduled
func (s *Service) NextRun() time.Time {
	if !s.Enabled() {
		return time.Time{}
	}
	if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
		return next
	}
	sched, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

// RunOnce performs one scheduled retraining pass. A pass that finds another run active is
// skipped and reported as (nil, nil).
func (s *Service) RunOnce(ctx context.Context) (*models.TrainingRun, error) {
	run, err := s.trainer.TryRun(ctx, models.RunTriggerSchedule)
	if errors.Is(err, mlmodel.ErrTrainingInProgress) {
		s.logger.Info("skipping scheduled retraining, a run is already active")
		return nil, nil
	}
	if err != nil {
		return run, fmt.Errorf("scheduled retraining failed: %w", err)
	}
	return run, nil
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("retraining failed", "error", err)
		return
	}
	if run != nil {
		s.logger.Info("retraining finished", "run_id", run.ID, "next_run", s.NextRun())
	}
}
