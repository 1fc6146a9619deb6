package jobs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylphlab/sotimediaorganizer/internal/dedup"
	"github.com/sylphlab/sotimediaorganizer/internal/extractor"
	"github.com/sylphlab/sotimediaorganizer/internal/jobcache"
	"github.com/sylphlab/sotimediaorganizer/internal/mediaio"
	"github.com/sylphlab/sotimediaorganizer/internal/phash"
	"github.com/sylphlab/sotimediaorganizer/internal/processor"
	"github.com/sylphlab/sotimediaorganizer/internal/similarity"
	"github.com/sylphlab/sotimediaorganizer/internal/store"
)

type stubReader struct{}

func (stubReader) ReadTags(ctx context.Context, path string) (map[string]string, error) {
	return map[string]string{"Model": "Stub"}, nil
}

type stubSource struct{}

func (stubSource) Duration(ctx context.Context, path string) (float64, error) { return 0, nil }
func (stubSource) Frames(ctx context.Context, path string, policy mediaio.SelectPolicy) ([]mediaio.RawFrame, error) {
	const r = 16
	return []mediaio.RawFrame{{Timestamp: 0, Gray: make([]byte, r*r), Width: r, Height: r}}, nil
}

func TestIngestHandlerRejectsMalformedPayload(t *testing.T) {
	h := NewIngestHandler(nil, nil, nil, nil)
	task := asynq.NewTask(TaskIngestFile, []byte("not json"))
	err := h.ProcessTask(context.Background(), task)
	assert.Error(t, err)
}

func TestIngestHandlerIngestsFile(t *testing.T) {
	dir := t.TempDir()
	cache, err := jobcache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer cache.Close()
	st, err := store.Open(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	defer st.Close()

	hasher := phash.NewHasher(16, 8)
	ex := extractor.New(stubSource{}, hasher, extractor.Params{Resolution: 16, HashSize: 8, TargetFPS: 0.5, MinFrames: 15, MaxSceneFrames: 200, SceneChangeThreshold: 0.01, Concurrency: 2})
	proc := processor.New(cache, st, stubReader{}, ex, 1<<20, struct{}{})

	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake"), 0o644))

	h := NewIngestHandler(proc, nil, nil, nil)
	payload, _ := json.Marshal(IngestFilePayload{Path: path})
	task := asynq.NewTask(TaskIngestFile, payload)

	require.NoError(t, h.ProcessTask(context.Background(), task))

	rec, err := st.Get(path)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestDedupHandlerRunsOverEmptyStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer st.Close()

	det := dedup.New(st, similarity.DefaultThresholds(), similarity.DefaultWindowConfig())
	h := NewDedupHandler(det, nil, nil, nil)

	task := asynq.NewTask(TaskRunDedup, nil)
	assert.NoError(t, h.ProcessTask(context.Background(), task))
}
