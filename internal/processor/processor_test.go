package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylphlab/sotimediaorganizer/internal/extractor"
	"github.com/sylphlab/sotimediaorganizer/internal/jobcache"
	"github.com/sylphlab/sotimediaorganizer/internal/mediaio"
	"github.com/sylphlab/sotimediaorganizer/internal/phash"
	"github.com/sylphlab/sotimediaorganizer/internal/store"
)

type fakeReader struct {
	tags  map[string]string
	calls int
	err   error
}

func (f *fakeReader) ReadTags(ctx context.Context, path string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

type fakeFrameSource struct {
	calls int
}

func (f *fakeFrameSource) Duration(ctx context.Context, path string) (float64, error) {
	return 0, nil
}

func (f *fakeFrameSource) Frames(ctx context.Context, path string, policy mediaio.SelectPolicy) ([]mediaio.RawFrame, error) {
	f.calls++
	const r = 16
	buf := make([]byte, r*r)
	for i := range buf {
		buf[i] = byte(i % 256)
	}
	return []mediaio.RawFrame{{Timestamp: 0, Gray: buf, Width: r, Height: r}}, nil
}

func setup(t *testing.T) (*Processor, *fakeReader, *fakeFrameSource, string) {
	t.Helper()
	dir := t.TempDir()

	cache, err := jobcache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	st, err := store.Open(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reader := &fakeReader{tags: map[string]string{"Model": "TestCam"}}
	src := &fakeFrameSource{}
	hasher := phash.NewHasher(16, 8)
	ex := extractor.New(src, hasher, extractor.Params{Resolution: 16, HashSize: 8, TargetFPS: 0.5, MinFrames: 15, MaxSceneFrames: 200, SceneChangeThreshold: 0.01, Concurrency: 2})

	p := New(cache, st, reader, ex, 1<<20, struct{ V int }{1})

	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake jpeg bytes"), 0o644))

	return p, reader, src, path
}

func TestIngestWritesRecordToStore(t *testing.T) {
	p, _, _, path := setup(t)

	fi, err := p.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, fi.Path)
	assert.NotNil(t, fi.Meta.CameraModel)
	assert.Equal(t, "TestCam", *fi.Meta.CameraModel)

	rec, err := p.store.Get(path)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, path, rec.Path)
}

func TestIngestReusesCachedSubJobsOnSecondCall(t *testing.T) {
	p, reader, src, path := setup(t)

	_, err := p.Ingest(context.Background(), path)
	require.NoError(t, err)
	firstReaderCalls, firstSrcCalls := reader.calls, src.calls

	_, err = p.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, firstReaderCalls, reader.calls, "metadata job should hit the cache on the second call")
	assert.Equal(t, firstSrcCalls, src.calls, "extraction job should hit the cache on the second call")
}

func TestIngestFailsOnMetadataError(t *testing.T) {
	p, reader, _, path := setup(t)
	reader.err = assertErr{"exiftool exploded"}

	_, err := p.Ingest(context.Background(), path)
	assert.Error(t, err)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
