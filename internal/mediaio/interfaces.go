// Package mediaio specifies the two external collaborators the core
// depends on but does not own the internals of: a Frame Source that
// samples raw grayscale tiles from a file, and a Metadata Reader that
// projects EXIF-like tags into mediamodel.Metadata. The interfaces are the
// seam the core programs against; the concrete adapters in this package
// (FFmpegFrameSource in ffmpeg.go, ExiftoolMetadataReader in exiftool.go)
// shell out to ffmpeg/ffprobe/exiftool and parse MP4 boxes.
package mediaio

import (
	"context"
	"time"
)

// RawFrame is one sample pulled from a Frame Source: a timestamp and an
// R*R single-channel (grayscale) tile, row-major, one byte per pixel.
type RawFrame struct {
	Timestamp float64
	Gray      []byte
	Width     int
	Height    int
}

// SelectPolicy parameterizes which frames a Frame Source should emit for
// a video. A Frame Source implementation MAY apply the policy itself
// (e.g. an ffmpeg select filter) or simply decode every frame and let the
// caller downsample; the extractor package does not assume either.
type SelectPolicy struct {
	Resolution           int // R: output tile width/height
	TargetFPS            float64
	MinFrames            int
	MaxSceneFrames       int
	SceneChangeThreshold float64
}

// FrameSource is the Frame source collaborator from spec §6: given a
// path and a selection policy, it streams raw grayscale tiles until
// end-of-stream, or returns a non-nil error which fails the whole
// extraction.
type FrameSource interface {
	// Duration returns the media duration in seconds; 0 for images.
	Duration(ctx context.Context, path string) (float64, error)
	// Frames streams raw samples; for images it emits exactly one frame
	// at timestamp 0.
	Frames(ctx context.Context, path string, policy SelectPolicy) ([]RawFrame, error)
}

// MetadataReader is the Metadata Reader collaborator from spec §6: it
// reads a file's EXIF-like tags and returns the raw tag map the core
// projects into mediamodel.Metadata.
type MetadataReader interface {
	ReadTags(ctx context.Context, path string) (map[string]string, error)
}

// ProjectTags implements the tag-to-Metadata projection rules from spec
// §6: first-present-wins among date aliases and dimension aliases, date
// strings normalized from "YYYY:MM:DD HH:MM:SS", years before 1980
// rejected as invalid.
func ProjectTags(tags map[string]string) (imageDate *time.Time, width, height *int, lat, lon *float64, camera *string) {
	if v, ok := firstNonEmpty(tags, "DateTimeOriginal", "CreateDate", "MediaCreateDate"); ok {
		if t, ok := parseExifDate(v); ok {
			imageDate = &t
		}
	}
	if v, ok := firstNonEmpty(tags, "ImageWidth", "ExifImageWidth"); ok {
		if n, ok := parseIntLoose(v); ok {
			width = &n
		}
	}
	if v, ok := firstNonEmpty(tags, "ImageHeight", "ExifImageHeight"); ok {
		if n, ok := parseIntLoose(v); ok {
			height = &n
		}
	}
	if v, ok := tags["GPSLatitude"]; ok {
		if f, ok := parseFloatLoose(v); ok {
			lat = &f
		}
	}
	if v, ok := tags["GPSLongitude"]; ok {
		if f, ok := parseFloatLoose(v); ok {
			lon = &f
		}
	}
	if v, ok := tags["Model"]; ok && v != "" {
		camera = &v
	}
	return
}

func firstNonEmpty(tags map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := tags[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}
