package mlmodel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/pkg/models"
)

func TestModelCacheReusesLoadedModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	model := trainedModel(t)
	model.RunID = "first"
	require.NoError(t, Save(path, model))

	cache, err := NewModelCache(2)
	require.NoError(t, err)

	a, err := cache.Get(path)
	require.NoError(t, err)
	b, err := cache.Get(path)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, cache.Len())
}

func TestModelCacheReloadsRewrittenArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	model := trainedModel(t)
	model.RunID = "first"
	require.NoError(t, Save(path, model))

	cache, err := NewModelCache(2)
	require.NoError(t, err)
	first, err := cache.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "first", first.RunID)

	model.RunID = "second"
	require.NoError(t, Save(path, model))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := cache.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "second", second.RunID)
}

func TestModelCacheInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, Save(path, trainedModel(t)))

	cache, err := NewModelCache(1)
	require.NoError(t, err)
	_, err = cache.Get(path)
	require.NoError(t, err)

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())
}

func TestModelCacheMissingFile(t *testing.T) {
	cache, err := NewModelCache(1)
	require.NoError(t, err)

	_, err = cache.Get(filepath.Join(t.TempDir(), "missing.gob"))
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
