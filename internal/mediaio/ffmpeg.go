package mediaio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	gomp4 "github.com/abema/go-mp4"
	"github.com/nfnt/resize"
	"golang.org/x/time/rate"

	"github.com/sylphlab/sotimediaorganizer/internal/merr"
)

// defaultToolRate caps external-tool subprocess starts per second,
// independent of the ingest worker-pool size, so a high-concurrency
// ingest run does not fork-bomb ffmpeg/ffprobe.
const defaultToolRate = 8

// FFmpegFrameSource is the default FrameSource, shelling out to ffmpeg
// and ffprobe. Grounded on CineVault's internal/fingerprint.Fingerprinter
// (exec.Command(ffmpegPath, "-ss", ..., "-vf", "scale=W:H", ...) to pull a
// single frame to a temp JPEG), generalized from CineVault's fixed
// percentage sample points to this engine's scene/interval selection
// policy. MP4 containers take a fast path through abema/go-mp4 for
// duration probing, bypassing an ffprobe subprocess for the common case.
type FFmpegFrameSource struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
	Limiter     *rate.Limiter
}

// NewFFmpegFrameSource constructs a FFmpegFrameSource using ffmpeg/ffprobe
// resolved from PATH and the OS default temp directory, throttled to
// defaultToolRate subprocess starts per second.
func NewFFmpegFrameSource() *FFmpegFrameSource {
	return &FFmpegFrameSource{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		TempDir:     "",
		Limiter:     rate.NewLimiter(rate.Limit(defaultToolRate), defaultToolRate),
	}
}

func (f *FFmpegFrameSource) wait(ctx context.Context) error {
	if f.Limiter == nil {
		return nil
	}
	return f.Limiter.Wait(ctx)
}

// Duration returns 0 for non-video extensions (treated as images by the
// extractor) and otherwise probes the container.
func (f *FFmpegFrameSource) Duration(ctx context.Context, path string) (float64, error) {
	if isImageExt(path) {
		return 0, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".mp4") || strings.EqualFold(filepath.Ext(path), ".mov") {
		if d, err := mp4Duration(path); err == nil {
			return d, nil
		}
		// fall through to ffprobe on any mp4 parse failure
	}
	return f.ffprobeDuration(ctx, path)
}

func (f *FFmpegFrameSource) ffprobeDuration(ctx context.Context, path string) (float64, error) {
	if err := f.wait(ctx); err != nil {
		return 0, merr.Wrap(merr.ExternalTool, "mediaio.ffprobeDuration", err).WithPath(path)
	}
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, merr.Wrap(merr.ExternalTool, "mediaio.ffprobeDuration", err).WithPath(path)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, merr.Wrap(merr.ExternalTool, "mediaio.ffprobeDuration", err).WithPath(path)
	}
	return d, nil
}

// mp4Duration probes an MP4/MOV container's top-level duration without
// shelling out, per spec §6's "Frame source" performance note: most
// ingested videos are MP4, so this is the hot path.
func mp4Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := gomp4.Probe(f)
	if err != nil {
		return 0, err
	}
	if info.Timescale == 0 {
		return 0, fmt.Errorf("mediaio: mp4 probe returned zero timescale")
	}
	return float64(info.Duration) / float64(info.Timescale), nil
}

// Frames decodes one frame per requested sample point. For images, it
// reads the whole file as a single frame at t=0. For video it asks
// ffmpeg for a JPEG frame at each point of a uniform schedule spaced
// duration/min(targetFrames, MinFrames) seconds apart, then lets the
// caller's scene-change logic (internal/extractor) decide which of these
// survive — this adapter's job is sampling, not
// the selection policy itself.
func (f *FFmpegFrameSource) Frames(ctx context.Context, path string, policy SelectPolicy) ([]RawFrame, error) {
	if isImageExt(path) {
		gray, err := decodeToGray(path, policy.Resolution)
		if err != nil {
			return nil, err
		}
		return []RawFrame{{Timestamp: 0, Gray: gray, Width: policy.Resolution, Height: policy.Resolution}}, nil
	}

	duration, err := f.Duration(ctx, path)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, nil
	}

	targetFPS := policy.TargetFPS
	if targetFPS <= 0 {
		targetFPS = 0.5
	}
	targetFrames := int(duration*targetFPS + 0.999999)
	if targetFrames < 1 {
		targetFrames = 1
	}
	denom := targetFrames
	if policy.MinFrames > 0 && policy.MinFrames < denom {
		denom = policy.MinFrames
	}
	interval := duration / float64(denom)
	if interval <= 0 {
		interval = duration
	}

	tmpDir, err := os.MkdirTemp(f.TempDir, "sotidedup-frames-*")
	if err != nil {
		return nil, merr.Wrap(merr.FileSystem, "mediaio.Frames", err).WithPath(path)
	}
	defer os.RemoveAll(tmpDir)

	var frames []RawFrame
	for t := 0.0; t < duration; t += interval {
		if err := f.wait(ctx); err != nil {
			break // context cancelled or limiter misconfigured; return frames gathered so far
		}
		framePath := filepath.Join(tmpDir, fmt.Sprintf("f_%d.jpg", len(frames)))
		cmd := exec.CommandContext(ctx, f.FFmpegPath,
			"-ss", fmt.Sprintf("%.3f", t),
			"-i", path,
			"-vframes", "1",
			"-vf", fmt.Sprintf("scale=%d:%d", policy.Resolution, policy.Resolution),
			"-y", framePath,
		)
		if err := cmd.Run(); err != nil {
			continue // a single unreadable frame does not fail the whole extraction
		}
		gray, err := decodeToGray(framePath, policy.Resolution)
		if err != nil {
			continue
		}
		frames = append(frames, RawFrame{Timestamp: t, Gray: gray, Width: policy.Resolution, Height: policy.Resolution})
	}
	return frames, nil
}

func decodeToGray(path string, r int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.Wrap(merr.FileSystem, "mediaio.decodeToGray", err).WithPath(path)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, merr.Wrap(merr.ExternalTool, "mediaio.decodeToGray", err).WithPath(path)
	}
	resized := resize.Resize(uint(r), uint(r), img, resize.Bilinear)

	gray := make([]byte, r*r)
	bounds := resized.Bounds()
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			c := resized.At(bounds.Min.X+x, bounds.Min.Y+y)
			gray[y*r+x] = color.GrayModel.Convert(c).(color.Gray).Y
		}
	}
	return gray, nil
}

func isImageExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tiff":
		return true
	default:
		return false
	}
}
