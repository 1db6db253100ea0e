package mlmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateReport(t *testing.T) {
	yTrue := []string{"a", "a", "a", "b", "b"}
	yPred := []string{"a", "a", "b", "b", "b"}

	report, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, report.Accuracy, 1e-12)
	a := report.Classes["a"]
	assert.InDelta(t, 1.0, a.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, a.Recall, 1e-12)
	assert.InDelta(t, 0.8, a.F1Score, 1e-12)
	assert.Equal(t, 3, a.Support)

	b := report.Classes["b"]
	assert.InDelta(t, 2.0/3, b.Precision, 1e-12)
	assert.InDelta(t, 1.0, b.Recall, 1e-12)
	assert.Equal(t, 2, b.Support)

	assert.InDelta(t, (a.F1Score+b.F1Score)/2, report.MacroAvg.F1Score, 1e-12)
	assert.InDelta(t, (3*a.F1Score+2*b.F1Score)/5, report.WeightedAvg.F1Score, 1e-12)
	assert.Equal(t, 5, report.WeightedAvg.Support)
}

func TestEvaluateUndefinedRatiosAreZero(t *testing.T) {
	yTrue := []string{"a", "a", "b", "b"}
	yPred := []string{"a", "a", "a", "a"}

	report, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)

	b := report.Classes["b"]
	assert.Equal(t, 0.0, b.Precision)
	assert.Equal(t, 0.0, b.Recall)
	assert.Equal(t, 0.0, b.F1Score)
	assert.InDelta(t, 0.5, report.Accuracy, 1e-12)
}

func TestEvaluateIncludesPredictedOnlyClasses(t *testing.T) {
	report, err := Evaluate([]string{"a", "a"}, []string{"a", "c"})
	require.NoError(t, err)

	require.Contains(t, report.Classes, "c")
	assert.Equal(t, 0, report.Classes["c"].Support)
	assert.Equal(t, []string{"a", "c"}, report.ClassNames())
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	_, err := Evaluate(nil, nil)
	assert.Error(t, err)
	_, err = Evaluate([]string{"a"}, []string{"a", "b"})
	assert.Error(t, err)
}
