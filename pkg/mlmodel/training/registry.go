package training

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mimir-aip/winequality/pkg/models"
)

// Constructor builds an unfitted classifier from hyper-parameters and a seed
type Constructor func(h models.Hyperparameters, seed int64) Classifier

var (
	registryMu   sync.RWMutex
	constructors = map[models.AlgorithmKind]Constructor{
		models.AlgorithmRandomForest: func(h models.Hyperparameters, seed int64) Classifier {
			return NewRandomForest(h.RandomForest, seed)
		},
		models.AlgorithmExtraTrees: func(h models.Hyperparameters, seed int64) Classifier {
			return NewExtraTrees(h.ExtraTrees, seed)
		},
	}
)

func init() {
	gob.Register(&Forest{})
}

// register adds an optional algorithm. Called from init functions of build-tagged files.
func register(kind models.AlgorithmKind, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	constructors[kind] = c
}

// Capabilities records which algorithms this binary can train. It is resolved once at
// start-up; requests for unavailable algorithms fall back to random forest.
type Capabilities struct {
	available map[models.AlgorithmKind]bool
}

// DetectCapabilities snapshots the registered algorithms
func DetectCapabilities() *Capabilities {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c := &Capabilities{available: make(map[models.AlgorithmKind]bool, len(constructors))}
	for kind := range constructors {
		c.available[kind] = true
	}
	return c
}

// Available reports whether kind can be trained
func (c *Capabilities) Available(kind models.AlgorithmKind) bool {
	return c.available[kind]
}

// Resolve maps each requested algorithm to one this binary can train, in order. Unknown
// algorithms are a configuration error. Unavailable ones are replaced by random forest with
// a single warning, and duplicates created by the replacement are dropped.
func (c *Capabilities) Resolve(requested []models.AlgorithmKind, logger *slog.Logger) ([]models.AlgorithmKind, error) {
	var out []models.AlgorithmKind
	seen := make(map[models.AlgorithmKind]bool)
	var unavailable []models.AlgorithmKind
	for _, kind := range requested {
		if err := kind.Validate(); err != nil {
			return nil, err
		}
		resolved := kind
		if !c.Available(kind) {
			unavailable = append(unavailable, kind)
			resolved = models.AlgorithmRandomForest
		}
		if !seen[resolved] {
			seen[resolved] = true
			out = append(out, resolved)
		}
	}
	if len(unavailable) > 0 && logger != nil {
		logger.Warn("algorithms not available in this build, using random_forest instead", "algorithms", unavailable)
	}
	return out, nil
}

// Factory builds classifiers for resolved algorithms
type Factory struct {
	params models.Hyperparameters
	caps   *Capabilities
}

// NewFactory creates a classifier factory
func NewFactory(params models.Hyperparameters, caps *Capabilities) *Factory {
	return &Factory{params: params, caps: caps}
}

// New returns an unfitted classifier for kind
func (f *Factory) New(kind models.AlgorithmKind, seed int64) (Classifier, error) {
	if !f.caps.Available(kind) {
		return nil, fmt.Errorf("no classifier available for algorithm: %s", kind)
	}
	registryMu.RLock()
	c := constructors[kind]
	registryMu.RUnlock()
	return c(f.params, seed), nil
}
