package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylphlab/sotimediaorganizer/internal/mediaio"
	"github.com/sylphlab/sotimediaorganizer/internal/phash"
)

type fakeSource struct {
	duration float64
	frames   []mediaio.RawFrame
	err      error
}

func (f *fakeSource) Duration(ctx context.Context, path string) (float64, error) {
	return f.duration, f.err
}

func (f *fakeSource) Frames(ctx context.Context, path string, policy mediaio.SelectPolicy) ([]mediaio.RawFrame, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.frames, nil
}

func solidTile(r int, v byte) []byte {
	buf := make([]byte, r*r)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func gradientTile(r int, shift byte) []byte {
	buf := make([]byte, r*r)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			buf[y*r+x] = byte((x*255)/(r-1)) + shift
		}
	}
	return buf
}

func TestExtractImageProducesSingleFrameAtZero(t *testing.T) {
	const r = 16
	src := &fakeSource{duration: 0, frames: []mediaio.RawFrame{{Timestamp: 0, Gray: gradientTile(r, 0), Width: r, Height: r}}}
	hasher := phash.NewHasher(r, 8)
	ex := New(src, hasher, Params{Resolution: r, HashSize: 8, TargetFPS: 0.5, MinFrames: 15, MaxSceneFrames: 200, SceneChangeThreshold: 0.01, Concurrency: 2})

	info, err := ex.Extract(context.Background(), "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, 0.0, info.Duration)
	require.Len(t, info.Frames, 1)
	assert.Equal(t, 0.0, info.Frames[0].Timestamp)
	assert.True(t, info.Frames[0].HasHash())
}

func TestExtractVideoSelectsFirstFrameAndHashesAll(t *testing.T) {
	const r = 16
	raw := []mediaio.RawFrame{
		{Timestamp: 0, Gray: gradientTile(r, 0)},
		{Timestamp: 1, Gray: gradientTile(r, 0)}, // identical: no scene change, interval not yet exceeded
		{Timestamp: 10, Gray: gradientTile(r, 40)}, // large interval elapsed: selected regardless of score
	}
	src := &fakeSource{duration: 10, frames: raw}
	hasher := phash.NewHasher(r, 8)
	ex := New(src, hasher, Params{Resolution: r, HashSize: 8, TargetFPS: 0.5, MinFrames: 15, MaxSceneFrames: 200, SceneChangeThreshold: 0.5, Concurrency: 2})

	info, err := ex.Extract(context.Background(), "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 10.0, info.Duration)
	assert.GreaterOrEqual(t, len(info.Frames), 1)
	for _, f := range info.Frames {
		assert.True(t, f.HasHash())
	}
}

func TestExtractVideoEmptyFrameSetIsNotAnError(t *testing.T) {
	src := &fakeSource{duration: 5, frames: nil}
	hasher := phash.NewHasher(16, 8)
	ex := New(src, hasher, DefaultParams())

	info, err := ex.Extract(context.Background(), "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 5.0, info.Duration)
	assert.Empty(t, info.HashedFrames())
}

func TestDownsampleCapsAtMaxSceneFrames(t *testing.T) {
	const r = 8
	ex := &Extractor{params: Params{MaxSceneFrames: 3}}
	frames := make([]mediaio.RawFrame, 10)
	for i := range frames {
		frames[i] = mediaio.RawFrame{Timestamp: float64(i), Gray: solidTile(r, 0)}
	}
	out := ex.downsample(frames)
	assert.Len(t, out, 3)
}
