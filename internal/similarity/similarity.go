// Package similarity implements the image/video similarity functions
// from spec §4.2: image<->image, image<->video, video<->video (via a
// windowed DTW scan), and the adaptive pair-wise threshold selector.
// Grounded on CineVault's internal/fingerprint.Similarity (Hamming
// distance normalized into [0,1]) generalized from a single composite
// hash to per-frame sequences, and on the windowed-comparison idiom in
// jota2rz-vdj-video-sync's sync scanning.
package similarity

import (
	"github.com/sylphlab/sotimediaorganizer/internal/hashkernel"
	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
)

// Thresholds holds the three adaptive-threshold configuration values
// from spec §4.2 / §6.
type Thresholds struct {
	Image      float64 // image<->image, default 0.98
	ImageVideo float64 // image<->video, default 0.93
	Video      float64 // video<->video, default 0.93
}

// DefaultThresholds returns the spec §6 defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Image: 0.98, ImageVideo: 0.93, Video: 0.93}
}

// ForPair returns the configured threshold for the unordered type pair
// (image/image, video/video, or mixed), satisfying testable property 4.
func (t Thresholds) ForPair(aIsVideo, bIsVideo bool) float64 {
	switch {
	case !aIsVideo && !bIsVideo:
		return t.Image
	case aIsVideo && bIsVideo:
		return t.Video
	default:
		return t.ImageVideo
	}
}

// WindowConfig holds the video<->video windowed-scan configuration.
type WindowConfig struct {
	StepSize float64 // seconds, >= 1
}

// DefaultWindowConfig returns the spec §6 defaults (step_size=1; the
// window_size option scales the DTW band in some ports but spec §4.2's
// windowed scan only consumes step_size, so window_size is accepted by
// config but unused here, matching the Open Question in spec §9 about
// step_size's unit being resolved in favor of seconds).
func DefaultWindowConfig() WindowConfig { return WindowConfig{StepSize: 1} }

// ImageImage computes similarity between two single frames: 1 -
// distance/(len*8). A missing hash on either side returns 0; a
// zero-length hash counts as missing and also returns 0.
func ImageImage(a, b mediamodel.FrameInfo) float64 {
	if !a.HasHash() || !b.HasHash() {
		return 0
	}
	n := len(a.Hash)
	if len(b.Hash) > n {
		n = len(b.Hash)
	}
	if n == 0 {
		return 1
	}
	dist := hashkernel.Distance(a.Hash, b.Hash)
	sim := 1 - float64(dist)/float64(n*8)
	return clamp01(sim)
}

// ImageVideo computes similarity between a single image frame and a
// video's frame sequence: the max image<->image similarity across the
// video's hashed frames, early-exiting once the running max reaches
// threshold.
func ImageVideo(img mediamodel.FrameInfo, video mediamodel.MediaInfo, threshold float64) float64 {
	max := 0.0
	for _, vf := range video.HashedFrames() {
		sim := ImageImage(img, vf)
		if sim > max {
			max = sim
		}
		if max >= threshold {
			return max
		}
	}
	return max
}

// VideoVideo computes similarity between two videos via a sliding window
// over the longer sequence sized to the shorter's duration, comparing
// each window's frames against the shorter sequence via DTW, per spec
// §4.2. Early-exits once the running max reaches threshold.
func VideoVideo(a, b mediamodel.MediaInfo, cfg WindowConfig, threshold float64) float64 {
	shortM, longM := a, b
	if longM.Duration < shortM.Duration {
		shortM, longM = longM, shortM
	}
	shortFrames := shortM.HashedFrames()
	longFrames := longM.HashedFrames()
	if len(shortFrames) == 0 || len(longFrames) == 0 {
		return 0
	}

	step := cfg.StepSize
	if step < 1 {
		step = 1
	}

	windowDur := shortM.Duration
	maxSim := 0.0
	lastStart := longM.Duration - windowDur
	if lastStart < 0 {
		lastStart = 0
	}
	for start := 0.0; start <= lastStart+1e-9; start += step {
		end := start + windowDur
		var windowFrames []mediamodel.FrameInfo
		for _, f := range longFrames {
			if f.Timestamp >= start-1e-9 && f.Timestamp <= end+1e-9 {
				windowFrames = append(windowFrames, f)
			}
		}
		sim := DTWSimilarity(shortFrames, windowFrames)
		if sim > maxSim {
			maxSim = sim
		}
		if maxSim >= threshold {
			return maxSim
		}
		if lastStart == 0 {
			break
		}
	}
	return maxSim
}

// DTWSimilarity computes normalized Dynamic Time Warping similarity
// between two frame sequences, per spec §4.2: per-cell cost
// max(0, 1-imageSim(f_i,g_j)), rolling two-row cost array, final
// similarity = max(0, 1 - dtw[m][n]/max(m,n)).
func DTWSimilarity(f, g []mediamodel.FrameInfo) float64 {
	m, n := len(f), len(g)
	if m == 0 && n == 0 {
		return 1
	}
	if m == 0 || n == 0 {
		return 0
	}

	const inf = 1e18
	prev := make([]float64, n+1)
	curr := make([]float64, n+1)
	for j := 1; j <= n; j++ {
		prev[j] = inf
	}
	prev[0] = 0

	for i := 1; i <= m; i++ {
		curr[0] = inf
		for j := 1; j <= n; j++ {
			cost := 1 - ImageImage(f[i-1], g[j-1])
			if cost < 0 {
				cost = 0
			}
			best := prev[j]
			if prev[j-1] < best {
				best = prev[j-1]
			}
			if curr[j-1] < best {
				best = curr[j-1]
			}
			curr[j] = cost + best
		}
		prev, curr = curr, prev
	}

	dtw := prev[n]
	denom := float64(m)
	if n > m {
		denom = float64(n)
	}
	sim := 1 - dtw/denom
	return clamp01(sim)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
