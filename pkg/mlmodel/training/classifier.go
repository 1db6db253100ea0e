// Package training implements the tree-ensemble classifiers used by model selection.
package training

import (
	"fmt"
	"sort"
)

// Classifier is a supervised model over dense numeric features and string labels
type Classifier interface {
	// Fit trains the model. X is row-major and must not contain NaN.
	Fit(X [][]float64, y []string) error

	// PredictProba returns one probability per class, in Classes order, for each row
	PredictProba(X [][]float64) ([][]float64, error)

	// Predict returns the most probable label for each row
	Predict(X [][]float64) ([]string, error)

	// Classes returns the labels seen during Fit, sorted
	Classes() []string
}

// labelIndex encodes labels as indices into the sorted set of distinct labels
func labelIndex(y []string) ([]string, []int) {
	seen := make(map[string]bool)
	var classes []string
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Strings(classes)

	position := make(map[string]int, len(classes))
	for i, c := range classes {
		position[c] = i
	}
	encoded := make([]int, len(y))
	for i, label := range y {
		encoded[i] = position[label]
	}
	return classes, encoded
}

// checkTrainingData validates the shape of a training set
func checkTrainingData(X [][]float64, y []string) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X and y must have same number of samples: %d != %d", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("training data has no features")
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	return nil
}

func checkPredictData(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), width)
		}
	}
	return nil
}

// argmax returns the index of the largest value, preferring the lowest index on ties
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// predictFromProba maps probability rows to labels
func predictFromProba(proba [][]float64, classes []string) []string {
	out := make([]string, len(proba))
	for i, p := range proba {
		out[i] = classes[argmax(p)]
	}
	return out
}

// balancedWeights weights each row by n / (nClasses * count(class))
func balancedWeights(y []int, nClasses int) []float64 {
	counts := make([]int, nClasses)
	for _, c := range y {
		counts[c]++
	}
	w := make([]float64, len(y))
	for i, c := range y {
		w[i] = float64(len(y)) / float64(nClasses*counts[c])
	}
	return w
}
