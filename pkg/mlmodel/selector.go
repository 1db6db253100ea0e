package mlmodel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

// ProgressFunc is called after each candidate has been scored
type ProgressFunc func(done, total int, result models.CandidateResult)

// Selector tries every algorithm and balance combination and keeps the best by weighted F1
type Selector struct {
	Builder    *PipelineBuilder
	Algorithms []models.AlgorithmKind // already resolved against the build's capabilities
	Balances   []models.BalanceKind
	Logger     *slog.Logger
	Progress   ProgressFunc
}

// Selection is the outcome of a model search
type Selection struct {
	Pipeline *Pipeline
	Winner   models.Candidate
	Fallback bool
	Results  []models.CandidateResult
}

// Candidates returns the search grid in evaluation order: algorithms outer, balances inner
func (s *Selector) Candidates() []models.Candidate {
	out := make([]models.Candidate, 0, len(s.Algorithms)*len(s.Balances))
	for _, a := range s.Algorithms {
		for _, b := range s.Balances {
			out = append(out, models.Candidate{Algorithm: a, Balance: b})
		}
	}
	return out
}

// SelectBest scores each candidate on the test split and returns a freshly fitted pipeline for
// the winner. A strictly greater weighted F1 is needed to replace the current best, so ties keep
// the earlier candidate. Failed candidates are recorded and skipped. When nothing succeeds the
// default candidate is fitted instead.
func (s *Selector) SelectBest(ctx context.Context, train *table.Table, yTrain []string, test *table.Table, yTest []string) (*Selection, error) {
	logger := s.logger()
	candidates := s.Candidates()
	if len(candidates) == 0 {
		return nil, models.NewConfigurationError("SelectBest", "candidates", "no algorithms or balance methods configured")
	}

	selection := &Selection{Results: make([]models.CandidateResult, 0, len(candidates))}
	bestIdx := -1
	var bestF1 float64
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("model selection cancelled: %w", err)
		}

		result := s.score(candidate, train, yTrain, test, yTest)
		selection.Results = append(selection.Results, result)
		if result.Failed() {
			logger.Warn("candidate failed", "candidate", candidate.String(), "error", result.Error)
		} else {
			logger.Info("candidate scored", "candidate", candidate.String(),
				"f1_weighted", result.F1Weighted, "accuracy", result.Accuracy)
			if bestIdx < 0 || result.F1Weighted > bestF1 {
				bestIdx, bestF1 = i, result.F1Weighted
			}
		}
		if s.Progress != nil {
			s.Progress(i+1, len(candidates), result)
		}
	}

	if bestIdx >= 0 {
		selection.Winner = candidates[bestIdx]
	} else {
		selection.Winner = models.DefaultCandidate
		selection.Fallback = true
		logger.Warn("no candidate succeeded, falling back", "candidate", selection.Winner.String())
	}

	pipeline, err := s.Builder.Build(selection.Winner)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", selection.Winner, err)
	}
	if err := pipeline.Fit(train, yTrain); err != nil {
		return nil, fmt.Errorf("failed to fit %s: %w", selection.Winner, err)
	}
	selection.Pipeline = pipeline
	return selection, nil
}

// score fits and evaluates one candidate, turning errors and panics into a failed result
func (s *Selector) score(candidate models.Candidate, train *table.Table, yTrain []string, test *table.Table, yTest []string) (result models.CandidateResult) {
	result.Candidate = candidate
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	pipeline, err := s.Builder.Build(candidate)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if err := pipeline.Fit(train, yTrain); err != nil {
		result.Error = err.Error()
		return result
	}
	predicted, err := pipeline.Predict(test)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	report, err := Evaluate(yTest, predicted)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.F1Weighted = report.WeightedAvg.F1Score
	result.Accuracy = report.Accuracy
	return result
}

func (s *Selector) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
