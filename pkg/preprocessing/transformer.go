// Package preprocessing provides column-wise fit/transform steps that compose into chains.
//
// Transformers never modify the table they are given; Transform always returns a new table.
// The exported fields of a fitted transformer hold its learned state so that fitted chains
// can be persisted with encoding/gob.
package preprocessing

import (
	"encoding/gob"
	"fmt"

	"github.com/mimir-aip/winequality/pkg/table"
)

// Transformer is a step that learns from a table and then rewrites tables
type Transformer interface {
	// Fit learns the step's parameters. target holds one label per row and may be nil.
	Fit(t *table.Table, target []string) error

	// Transform applies the learned step to t
	Transform(t *table.Table) (*table.Table, error)
}

// FitTransform fits tr on t and returns the transformed table
func FitTransform(tr Transformer, t *table.Table, target []string) (*table.Table, error) {
	if err := tr.Fit(t, target); err != nil {
		return nil, err
	}
	return tr.Transform(t)
}

// Chain runs transformers in order, each consuming the previous step's output
type Chain struct {
	Steps []Transformer
}

// NewChain creates a chain of steps
func NewChain(steps ...Transformer) *Chain {
	return &Chain{Steps: steps}
}

// Fit fits every step on the output of the steps before it
func (c *Chain) Fit(t *table.Table, target []string) error {
	current := t
	for i, step := range c.Steps {
		next, err := FitTransform(step, current, target)
		if err != nil {
			return fmt.Errorf("step %d (%T): %w", i, step, err)
		}
		current = next
	}
	return nil
}

// Transform applies every step in order
func (c *Chain) Transform(t *table.Table) (*table.Table, error) {
	current := t
	for i, step := range c.Steps {
		next, err := step.Transform(current)
		if err != nil {
			return nil, fmt.Errorf("step %d (%T): %w", i, step, err)
		}
		current = next
	}
	return current, nil
}

// columnsOrFloats returns names, or every float column of t when names is empty
func columnsOrFloats(t *table.Table, names []string) []string {
	if len(names) > 0 {
		return append([]string(nil), names...)
	}
	return t.FloatNames()
}

func init() {
	gob.Register(&Chain{})
	gob.Register(&DropColumns{})
	gob.Register(&OneHotEncoder{})
	gob.Register(&OrdinalEncoder{})
	gob.Register(&MinMaxScaler{})
	gob.Register(&StandardScaler{})
	gob.Register(&Imputer{})
	gob.Register(&SelectKBest{})
	gob.Register(&Oversampler{})
}
