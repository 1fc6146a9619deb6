// Package mediamodel defines the data types shared across the
// deduplication core: the perceptual-hash media fingerprint model, the
// persisted file record, and the cluster/result shapes produced by the
// duplicate detector.
package mediamodel

import "time"

// FrameHash is a packed bit vector, conceptually 64 bits by default. All
// FrameHashes produced within a single run must share the same byte
// length; Hamming distance between hashes of differing length is only
// defined by the kernel's zero-extension rule (see hashkernel.Distance).
type FrameHash []byte

// FrameInfo is one sampled, hashed instant of a media item. Images carry
// exactly one FrameInfo at Timestamp 0; videos carry a strictly
// monotonic, timestamp-ascending sequence.
type FrameInfo struct {
	Hash      FrameHash
	Timestamp float64 // seconds, >= 0
}

// HasHash reports whether the frame carries a usable hash. Frames without
// one are filtered before any similarity computation.
func (f FrameInfo) HasHash() bool { return len(f.Hash) > 0 }

// MediaInfo is the perceptual content of one file: zero duration and a
// single frame for images, positive duration and an ordered frame
// sequence for videos. A video whose extraction legitimately produced no
// frames is not an error; it is represented as Duration > 0 with an empty
// Frames slice, and every similarity against it evaluates to 0.
type MediaInfo struct {
	Duration float64 // seconds; 0 iff the item is an image
	Frames   []FrameInfo
}

// IsImage reports whether this MediaInfo describes a still image.
func (m MediaInfo) IsImage() bool { return m.Duration == 0 }

// IsVideo reports whether this MediaInfo describes a video.
func (m MediaInfo) IsVideo() bool { return m.Duration > 0 }

// HashedFrames returns the subset of Frames carrying a usable hash,
// preserving order. Callers performing similarity math must use this
// instead of Frames directly.
func (m MediaInfo) HashedFrames() []FrameInfo {
	out := make([]FrameInfo, 0, len(m.Frames))
	for _, f := range m.Frames {
		if f.HasHash() {
			out = append(out, f)
		}
	}
	return out
}

// FileStats is the fast, byte-level identity of a file: not its
// perceptual content, but a cheap fingerprint used to dedupe exact
// re-copies and as a job-cache key.
type FileStats struct {
	ContentHash []byte // full or partial MD5, see filehash.Compute
	Size        int64
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Metadata is the optional EXIF-derived tag projection read from a file.
type Metadata struct {
	ImageDate   *time.Time
	Width       *int
	Height      *int
	GPSLat      *float64
	GPSLon      *float64
	CameraModel *string
}

// HasGPS reports whether both GPS components are present.
func (m Metadata) HasGPS() bool { return m.GPSLat != nil && m.GPSLon != nil }

// Quality returns width*height, or 0 if either dimension is missing.
func (m Metadata) Quality() int64 {
	if m.Width == nil || m.Height == nil {
		return 0
	}
	return int64(*m.Width) * int64(*m.Height)
}

// FileInfo is the transient, in-memory result of processing one file; it
// is owned by the Metadata Store once upserted.
type FileInfo struct {
	Path  string
	Stats FileStats
	Meta  Metadata
	Media MediaInfo
}

// PHashHex returns the hex pHash of the first frame, or "" if unavailable.
func (fi FileInfo) PHashHex() string {
	frames := fi.Media.HashedFrames()
	if len(frames) == 0 {
		return ""
	}
	return hexEncode(frames[0].Hash)
}

// FileRecord is the flattened, persisted form of a FileInfo plus its LSH
// band keys. See store.LSHBands for how lsh1..lsh4 are derived.
type FileRecord struct {
	Path           string
	ContentHashHex string
	Size           int64
	CreatedAtMs    int64
	ModifiedAtMs   int64
	Width          *int
	Height         *int
	GPSLat         *float64
	GPSLon         *float64
	CameraModel    *string
	ImageDateMs    *int64
	MediaDuration  float64
	PHashHex       *string
	LSH1           *string
	LSH2           *string
	LSH3           *string
	LSH4           *string
}

// DuplicateSet is the output of representative selection over one cluster
// of size >= 2.
type DuplicateSet struct {
	Best            string
	Representatives map[string]struct{}
	Duplicates      map[string]struct{}
}

// DeduplicationResult is the complete output of the duplicate detector.
type DeduplicationResult struct {
	Unique         map[string]struct{}
	DuplicateSets  []DuplicateSet
	ErrorPaths     []string
	ComparisonsRun int
	ExactClusters  int
	SimilarClusters int
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}
