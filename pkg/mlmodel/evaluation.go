package mlmodel

import (
	"fmt"
	"math"
	"sort"

	"github.com/sjwhitworth/golearn/evaluation"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/winequality/pkg/models"
)

// ConfusionMatrix counts reference/predicted label pairs. Every label seen on either side is
// present as a reference key so per-class metrics are defined for all of them.
func ConfusionMatrix(yTrue, yPred []string) (evaluation.ConfusionMatrix, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("got %d predictions for %d labels", len(yPred), len(yTrue))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("cannot evaluate an empty test set")
	}
	cm := make(evaluation.ConfusionMatrix)
	for _, label := range append(append([]string(nil), yTrue...), yPred...) {
		if _, ok := cm[label]; !ok {
			cm[label] = make(map[string]int)
		}
	}
	for i, ref := range yTrue {
		cm[ref][yPred[i]]++
	}
	return cm, nil
}

// Evaluate builds a classification report. Undefined ratios (no predictions or no support for
// a class) are reported as 0.
func Evaluate(yTrue, yPred []string) (models.ClassificationReport, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return models.ClassificationReport{}, err
	}

	classes := make([]string, 0, len(cm))
	for c := range cm {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	report := models.ClassificationReport{
		Classes:  make(map[string]models.ClassMetrics, len(classes)),
		Accuracy: finiteOrZero(evaluation.GetAccuracy(cm)),
	}

	precision := make([]float64, len(classes))
	recall := make([]float64, len(classes))
	f1 := make([]float64, len(classes))
	support := make([]float64, len(classes))
	for i, c := range classes {
		n := 0
		for _, count := range cm[c] {
			n += count
		}
		m := models.ClassMetrics{
			Precision: finiteOrZero(evaluation.GetPrecision(c, cm)),
			Recall:    finiteOrZero(evaluation.GetRecall(c, cm)),
			F1Score:   finiteOrZero(evaluation.GetF1Score(c, cm)),
			Support:   n,
		}
		report.Classes[c] = m
		precision[i], recall[i], f1[i], support[i] = m.Precision, m.Recall, m.F1Score, float64(n)
	}

	total := len(yTrue)
	report.MacroAvg = models.ClassMetrics{
		Precision: stat.Mean(precision, nil),
		Recall:    stat.Mean(recall, nil),
		F1Score:   stat.Mean(f1, nil),
		Support:   total,
	}
	report.WeightedAvg = models.ClassMetrics{
		Precision: stat.Mean(precision, support),
		Recall:    stat.Mean(recall, support),
		F1Score:   stat.Mean(f1, support),
		Support:   total,
	}
	return report, nil
}

// WeightedF1 is the support-weighted mean of per-class F1 scores
func WeightedF1(yTrue, yPred []string) (float64, error) {
	report, err := Evaluate(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return report.WeightedAvg.F1Score, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
