// Package extractor implements the Frame Extractor (C6, spec §4.6): for
// images a single DCT hash of an R×R grayscale tile, for videos a
// scene-change-or-interval frame selection over the Frame Source
// collaborator's samples, downscaled and hashed in parallel over a
// worker pool. Grounded on CineVault's internal/fingerprint pipeline
// (sample points -> extract -> hash -> pack into a fixed-size buffer),
// generalized from CineVault's fixed percentage sample points to the
// adaptive scene/interval policy spec §4.6 describes, and on the
// resize.Resize + parallel-stage idiom common across the example pack's
// media-processing packages.
package extractor

import (
	"context"
	"sort"
	"sync"

	"github.com/sylphlab/sotimediaorganizer/internal/mediaio"
	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
	"github.com/sylphlab/sotimediaorganizer/internal/merr"
	"github.com/sylphlab/sotimediaorganizer/internal/phash"
)

// Params configures extraction, mirroring spec §6's frame-selection
// options.
type Params struct {
	Resolution           int
	HashSize             int
	TargetFPS            float64
	MinFrames            int
	MaxSceneFrames       int
	SceneChangeThreshold float64
	Concurrency          int
}

// DefaultParams returns the spec §6 defaults.
func DefaultParams() Params {
	return Params{
		Resolution:           64,
		HashSize:             8,
		TargetFPS:            0.5,
		MinFrames:            15,
		MaxSceneFrames:       200,
		SceneChangeThreshold: 0.01,
		Concurrency:          4,
	}
}

// Extractor runs the Frame Extractor against a FrameSource collaborator.
type Extractor struct {
	source mediaio.FrameSource
	hasher *phash.Hasher
	scorer *phash.SceneScorer
	params Params
}

// New constructs an Extractor. hasher must match params.Resolution and
// params.HashSize (NewHasher(params.Resolution, params.HashSize)).
func New(source mediaio.FrameSource, hasher *phash.Hasher, params Params) *Extractor {
	return &Extractor{source: source, hasher: hasher, scorer: phash.NewSceneScorer(), params: params}
}

// Extract produces the MediaInfo for path: a single-frame MediaInfo for
// images, or a hashed frame sequence for videos. A Frame Source error
// fails the whole extraction; an empty selected-frame set for a video is
// not an error (spec §7) and yields Duration>0 with no frames.
func (e *Extractor) Extract(ctx context.Context, path string) (mediamodel.MediaInfo, error) {
	duration, err := e.source.Duration(ctx, path)
	if err != nil {
		return mediamodel.MediaInfo{}, merr.Wrap(merr.ExternalTool, "extractor.Extract", err).WithPath(path)
	}

	policy := mediaio.SelectPolicy{
		Resolution:           e.params.Resolution,
		TargetFPS:            e.params.TargetFPS,
		MinFrames:            e.params.MinFrames,
		MaxSceneFrames:       e.params.MaxSceneFrames,
		SceneChangeThreshold: e.params.SceneChangeThreshold,
	}
	raw, err := e.source.Frames(ctx, path, policy)
	if err != nil {
		return mediamodel.MediaInfo{}, merr.Wrap(merr.ExternalTool, "extractor.Extract", err).WithPath(path)
	}

	if duration == 0 {
		// Image: exactly one sample expected.
		if len(raw) == 0 {
			return mediamodel.MediaInfo{Duration: 0}, nil
		}
		hash, err := e.hasher.Hash(raw[0].Gray)
		if err != nil {
			return mediamodel.MediaInfo{}, merr.Wrap(merr.Hashing, "extractor.Extract", err).WithPath(path)
		}
		return mediamodel.MediaInfo{Duration: 0, Frames: []mediamodel.FrameInfo{{Hash: hash, Timestamp: 0}}}, nil
	}

	selected := e.selectFrames(raw, duration)
	selected = e.downsample(selected)

	hashed := e.hashParallel(selected)
	sort.Slice(hashed, func(i, j int) bool { return hashed[i].Timestamp < hashed[j].Timestamp })

	return mediamodel.MediaInfo{Duration: duration, Frames: hashed}, nil
}

// selectFrames applies the scene-change-OR-interval predicate from spec
// §4.6: the first frame, plus any frame where the scene score exceeds the
// threshold and at least 1/target_fps seconds have passed since the last
// selected frame, or the interval since the last selected frame exceeds
// frameInterval.
func (e *Extractor) selectFrames(raw []mediaio.RawFrame, duration float64) []mediaio.RawFrame {
	if len(raw) == 0 {
		return nil
	}

	targetFPS := e.params.TargetFPS
	if targetFPS <= 0 {
		targetFPS = 0.5
	}
	targetFrames := ceilDiv(duration, 1/targetFPS)
	if targetFrames < 1 {
		targetFrames = 1
	}
	denom := targetFrames
	if e.params.MinFrames > 0 && e.params.MinFrames < denom {
		denom = e.params.MinFrames
	}
	frameInterval := duration / float64(denom)
	minGap := 1 / targetFPS

	selected := []mediaio.RawFrame{raw[0]}
	lastTs := raw[0].Timestamp
	lastGray := raw[0].Gray

	for i := 1; i < len(raw); i++ {
		f := raw[i]
		elapsed := f.Timestamp - lastTs
		score := e.scorer.Score(lastGray, f.Gray, e.params.Resolution)

		sceneChange := score > e.params.SceneChangeThreshold && elapsed >= minGap
		intervalElapsed := elapsed > frameInterval
		if sceneChange || intervalElapsed {
			selected = append(selected, f)
			lastTs = f.Timestamp
			lastGray = f.Gray
		}
	}
	return selected
}

// downsample uniformly strides selected down to max_scene_frames when it
// exceeds that bound. targetFrames is not taken into account: a long video
// whose targetFrames exceeds max_scene_frames is still cut to
// max_scene_frames.
func (e *Extractor) downsample(selected []mediaio.RawFrame) []mediaio.RawFrame {
	target := e.params.MaxSceneFrames
	if target <= 0 {
		target = len(selected)
	}
	if len(selected) <= target {
		return selected
	}

	stride := float64(len(selected)) / float64(target)
	out := make([]mediaio.RawFrame, 0, target)
	for i := 0; i < target; i++ {
		idx := int(float64(i) * stride)
		if idx >= len(selected) {
			idx = len(selected) - 1
		}
		out = append(out, selected[idx])
	}
	return out
}

func (e *Extractor) hashParallel(frames []mediaio.RawFrame) []mediamodel.FrameInfo {
	if len(frames) == 0 {
		return nil
	}

	n := e.params.Concurrency
	if n <= 0 {
		n = 4
	}
	sem := make(chan struct{}, n)
	var wg sync.WaitGroup
	out := make([]mediamodel.FrameInfo, len(frames))

	for i, f := range frames {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, f mediaio.RawFrame) {
			defer wg.Done()
			defer func() { <-sem }()
			hash, err := e.hasher.Hash(f.Gray)
			if err != nil {
				out[i] = mediamodel.FrameInfo{Timestamp: f.Timestamp}
				return
			}
			out[i] = mediamodel.FrameInfo{Hash: hash, Timestamp: f.Timestamp}
		}(i, f)
	}
	wg.Wait()
	return out
}

func ceilDiv(duration, interval float64) int {
	if interval <= 0 {
		return 1
	}
	n := duration / interval
	i := int(n)
	if float64(i) < n {
		i++
	}
	return i
}
