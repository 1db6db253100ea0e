package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Metrics is the report written next to a trained model
type Metrics struct {
	Accuracy   float64              `json:"accuracy"`
	F1Weighted float64              `json:"f1_weighted"`
	Report     ClassificationReport `json:"report"`
	NTrain     int                  `json:"n_train"`
	NTest      int                  `json:"n_test"`
	Target     string               `json:"target"`
}

// ClassMetrics holds precision, recall and F1 for one class or one average
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// ClassificationReport is a per-class breakdown plus overall accuracy and averages.
// It serialises as a flat object keyed by class name, "accuracy", "macro avg" and "weighted avg".
type ClassificationReport struct {
	Classes     map[string]ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
}

const (
	reportAccuracyKey = "accuracy"
	reportMacroKey    = "macro avg"
	reportWeightedKey = "weighted avg"
)

// ClassNames returns the report's classes in sorted order
func (r ClassificationReport) ClassNames() []string {
	names := make([]string, 0, len(r.Classes))
	for name := range r.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON implements json.Marshaler
func (r ClassificationReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Classes)+3)
	for name, m := range r.Classes {
		out[name] = m
	}
	out[reportAccuracyKey] = r.Accuracy
	out[reportMacroKey] = r.MacroAvg
	out[reportWeightedKey] = r.WeightedAvg
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *ClassificationReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode classification report: %w", err)
	}

	r.Classes = make(map[string]ClassMetrics)
	for key, value := range raw {
		var err error
		switch key {
		case reportAccuracyKey:
			err = json.Unmarshal(value, &r.Accuracy)
		case reportMacroKey:
			err = json.Unmarshal(value, &r.MacroAvg)
		case reportWeightedKey:
			err = json.Unmarshal(value, &r.WeightedAvg)
		default:
			var m ClassMetrics
			err = json.Unmarshal(value, &m)
			r.Classes[key] = m
		}
		if err != nil {
			return fmt.Errorf("failed to decode report entry %q: %w", key, err)
		}
	}
	return nil
}
