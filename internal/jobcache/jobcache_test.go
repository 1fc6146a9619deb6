package jobcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

type cfg struct{ V int }
type result struct{ Sum int }

func TestPutThenGetHitsWithMatchingConfig(t *testing.T) {
	c := openTestCache(t)
	c.Put("fileStats", "/a.jpg", result{Sum: 42}, cfg{V: 1})

	var out result
	hit := c.Get("fileStats", "/a.jpg", cfg{V: 1}, &out)
	assert.True(t, hit)
	assert.Equal(t, 42, out.Sum)
}

func TestGetMissesOnConfigMismatch(t *testing.T) {
	c := openTestCache(t)
	c.Put("fileStats", "/a.jpg", result{Sum: 42}, cfg{V: 1})

	var out result
	hit := c.Get("fileStats", "/a.jpg", cfg{V: 2}, &out)
	assert.False(t, hit)
}

func TestGetMissesOnUnknownKey(t *testing.T) {
	c := openTestCache(t)
	var out result
	hit := c.Get("fileStats", "/missing.jpg", cfg{V: 1}, &out)
	assert.False(t, hit)
}

func TestPutOverwritesPreviousEntry(t *testing.T) {
	c := openTestCache(t)
	c.Put("fileStats", "/a.jpg", result{Sum: 1}, cfg{V: 1})
	c.Put("fileStats", "/a.jpg", result{Sum: 2}, cfg{V: 1})

	var out result
	hit := c.Get("fileStats", "/a.jpg", cfg{V: 1}, &out)
	assert.True(t, hit)
	assert.Equal(t, 2, out.Sum)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := openTestCache(t)
	c.Put("fileStats", "/a.jpg", result{Sum: 1}, cfg{V: 1})
	c.Invalidate("fileStats", "/a.jpg", "manual_test_invalidate")

	var out result
	hit := c.Get("fileStats", "/a.jpg", cfg{V: 1}, &out)
	assert.False(t, hit)
}

func TestDistinctJobNamesDoNotCollideOnSameKey(t *testing.T) {
	c := openTestCache(t)
	c.Put("fileStats", "/a.jpg", result{Sum: 1}, cfg{V: 1})
	c.Put("metadataExtraction", "/a.jpg", result{Sum: 2}, cfg{V: 1})

	var out1, out2 result
	assert.True(t, c.Get("fileStats", "/a.jpg", cfg{V: 1}, &out1))
	assert.True(t, c.Get("metadataExtraction", "/a.jpg", cfg{V: 1}, &out2))
	assert.Equal(t, 1, out1.Sum)
	assert.Equal(t, 2, out2.Sum)
}
