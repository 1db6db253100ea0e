package mlmodel

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mimir-aip/winequality/pkg/storage"
)

// ModelCache keeps recently loaded models. Entries are keyed by the artifact's path, size and
// modification time, so rewriting the file makes the next Get load the new model.
type ModelCache struct {
	cache *lru.Cache
}

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// NewModelCache creates a cache holding at most size models
func NewModelCache(size int) (*ModelCache, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}
	return &ModelCache{cache: c}, nil
}

// Get returns the model at path, loading it on a miss
func (c *ModelCache) Get(path string) (*Model, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := storage.Stat(abs)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if v, ok := c.cache.Get(key); ok {
		return v.(*Model), nil
	}

	m, err := Load(abs)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, m)
	return m, nil
}

// Invalidate drops every cached model
func (c *ModelCache) Invalidate() {
	c.cache.Purge()
}

// Len returns the number of cached models
func (c *ModelCache) Len() int {
	return c.cache.Len()
}
