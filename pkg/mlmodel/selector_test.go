package mlmodel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/pkg/models"
)

func TestSelectorCandidateOrder(t *testing.T) {
	s := &Selector{
		Algorithms: []models.AlgorithmKind{models.AlgorithmRandomForest, models.AlgorithmExtraTrees},
		Balances:   []models.BalanceKind{models.BalanceSMOTEENN, models.BalanceSMOTE},
	}
	assert.Equal(t, []models.Candidate{
		{Algorithm: models.AlgorithmRandomForest, Balance: models.BalanceSMOTEENN},
		{Algorithm: models.AlgorithmRandomForest, Balance: models.BalanceSMOTE},
		{Algorithm: models.AlgorithmExtraTrees, Balance: models.BalanceSMOTEENN},
		{Algorithm: models.AlgorithmExtraTrees, Balance: models.BalanceSMOTE},
	}, s.Candidates())
}

func TestSelectBestTieKeepsFirstCandidate(t *testing.T) {
	train, yTrain, test, yTest := engineeredSplit(t, 150, 3)

	orders := [][]models.BalanceKind{
		{models.BalanceSMOTE, models.BalanceSMOTEENN},
		{models.BalanceSMOTEENN, models.BalanceSMOTE},
	}
	for _, balances := range orders {
		s := &Selector{
			Builder:    testBuilder(),
			Algorithms: []models.AlgorithmKind{models.AlgorithmRandomForest},
			Balances:   balances,
		}
		selection, err := s.SelectBest(context.Background(), train, yTrain, test, yTest)
		require.NoError(t, err)
		require.Len(t, selection.Results, 2)

		// the synthetic classes are separable, so both candidates score a perfect F1
		require.Equal(t, selection.Results[0].F1Weighted, selection.Results[1].F1Weighted)
		assert.Equal(t, balances[0], selection.Winner.Balance)
		assert.False(t, selection.Fallback)
		assert.NotNil(t, selection.Pipeline)
	}
}

func TestSelectBestReportsProgress(t *testing.T) {
	train, yTrain, test, yTest := engineeredSplit(t, 100, 4)

	var calls []int
	s := &Selector{
		Builder:    testBuilder(),
		Algorithms: []models.AlgorithmKind{models.AlgorithmRandomForest, models.AlgorithmExtraTrees},
		Balances:   []models.BalanceKind{models.BalanceSMOTE},
		Progress: func(done, total int, _ models.CandidateResult) {
			assert.Equal(t, 2, total)
			calls = append(calls, done)
		},
	}
	_, err := s.SelectBest(context.Background(), train, yTrain, test, yTest)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, calls)
}

func TestSelectBestHonoursCancellation(t *testing.T) {
	train, yTrain, test, yTest := engineeredSplit(t, 60, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Selector{
		Builder:    testBuilder(),
		Algorithms: []models.AlgorithmKind{models.AlgorithmRandomForest},
		Balances:   []models.BalanceKind{models.BalanceSMOTE},
	}
	_, err := s.SelectBest(ctx, train, yTrain, test, yTest)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectBestRequiresCandidates(t *testing.T) {
	train, yTrain, test, yTest := engineeredSplit(t, 60, 5)
	s := &Selector{Builder: testBuilder()}

	_, err := s.SelectBest(context.Background(), train, yTrain, test, yTest)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestWinnerIsRefitOnTrainingSplit(t *testing.T) {
	train, yTrain, test, yTest := engineeredSplit(t, 120, 6)
	s := &Selector{
		Builder:    testBuilder(),
		Algorithms: []models.AlgorithmKind{models.AlgorithmRandomForest},
		Balances:   []models.BalanceKind{models.BalanceSMOTE},
	}
	selection, err := s.SelectBest(context.Background(), train, yTrain, test, yTest)
	require.NoError(t, err)

	// a pipeline built and fitted the same way predicts identically
	fresh, err := testBuilder().Build(selection.Winner)
	require.NoError(t, err)
	require.NoError(t, fresh.Fit(train, yTrain))

	want, err := fresh.Predict(test)
	require.NoError(t, err)
	got, err := selection.Pipeline.Predict(test)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
