package models

import (
	"fmt"
	"time"
)

// RunStatus represents the state of a training run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunTrigger records what started a training run
type RunTrigger string

const (
	RunTriggerCLI      RunTrigger = "cli"
	RunTriggerAPI      RunTrigger = "api"
	RunTriggerSchedule RunTrigger = "schedule"
	RunTriggerOnDemand RunTrigger = "on_demand" // first prediction without a model
)

// TrainingRun is one execution of the trainer
type TrainingRun struct {
	ID          string            `json:"id"`
	Status      RunStatus         `json:"status"`
	Trigger     RunTrigger        `json:"trigger"`
	Source      DataSource        `json:"source"`
	ModelPath   string            `json:"model_path"`
	MetricsPath string            `json:"metrics_path"`
	Winner      *Candidate        `json:"winner,omitempty"`
	Fallback    bool              `json:"fallback,omitempty"` // every candidate failed
	Candidates  []CandidateResult `json:"candidates,omitempty"`
	Metrics     *Metrics          `json:"metrics,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
}

// Finish marks the run complete, recording err when non-nil
func (r *TrainingRun) Finish(err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusSucceeded
}

// Duration returns how long the run took, or zero while running
func (r *TrainingRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Validate checks the run before it is persisted
func (r *TrainingRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	switch r.Status {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status: %s", r.Status)
	}
	return nil
}
