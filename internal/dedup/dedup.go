// Package dedup implements the Duplicate Detector (C7, spec §4.7): exact
// pHash bucketing, LSH-recall-and-verify clustering, a union-find merge
// of the two cluster sources, and representative emission via
// internal/scoring. No pack file implements union-find directly; Stage C
// is built straight from the spec's own "union every cluster sharing a
// member" description, using the disjoint-set idiom any Go engineer would
// reach for here.
package dedup

import (
	"context"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
	"github.com/sylphlab/sotimediaorganizer/internal/merr"
	"github.com/sylphlab/sotimediaorganizer/internal/scoring"
	"github.com/sylphlab/sotimediaorganizer/internal/similarity"
	"github.com/sylphlab/sotimediaorganizer/internal/store"
)

const (
	degenerateHashAllZero = "0000000000000000"
	degenerateHashTopBit  = "8000000000000000"
)

// Detector runs the two-stage clustering pass over a Metadata Store.
type Detector struct {
	store      *store.Store
	thresholds similarity.Thresholds
	window     similarity.WindowConfig
	log        *zap.Logger

	minDurationRatio float64
	maxDurationRatio float64
}

// Option configures a Detector at construction time.
type Option func(*Detector)

// WithDurationRatio overrides the video<->video duration pre-filter
// bounds (default 0.95/1.05, matching CineVault's O(n^2) phash sweep
// guard).
func WithDurationRatio(min, max float64) Option {
	return func(d *Detector) { d.minDurationRatio, d.maxDurationRatio = min, max }
}

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) { d.log = l }
}

// New constructs a Detector over st.
func New(st *store.Store, thresholds similarity.Thresholds, window similarity.WindowConfig, opts ...Option) *Detector {
	d := &Detector{
		store:            st,
		thresholds:       thresholds,
		window:           window,
		log:              zap.NewNop(),
		minDurationRatio: 0.95,
		maxDurationRatio: 1.05,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes Stages A-D over every path currently in the store and
// returns the DeduplicationResult. A failure enumerating the store's
// rows (Stage A) is fatal; everything downstream degrades by skipping
// the offending item and logging a warning, per spec §7.
func (d *Detector) Run(ctx context.Context) (mediamodel.DeduplicationResult, error) {
	result := mediamodel.DeduplicationResult{Unique: map[string]struct{}{}}

	allPaths, err := d.store.AllPaths()
	if err != nil {
		return result, merr.Wrap(merr.Database, "dedup.Run", err)
	}
	pHashes, err := d.store.AllPHashes()
	if err != nil {
		return result, merr.Wrap(merr.Database, "dedup.Run", err)
	}

	groups := make(map[string][]string)
	unclassified := make(map[string]struct{})
	for _, p := range allPaths {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		h, ok := pHashes[p]
		if !ok || h == "" || isDegenerateHash(h) {
			unclassified[p] = struct{}{}
			continue
		}
		groups[h] = append(groups[h], p)
	}

	uf := newUnionFind()
	var candidatePool []string
	for _, members := range groups {
		if len(members) >= 2 {
			result.ExactClusters++
			for _, p := range members {
				uf.add(p)
			}
			for i := 1; i < len(members); i++ {
				uf.union(members[0], members[i])
			}
		} else {
			uf.add(members[0])
			candidatePool = append(candidatePool, members[0])
		}
	}

	processed := make(map[string]struct{})
	for _, target := range candidatePool {
		if _, done := processed[target]; done {
			continue
		}
		neighbors, comparisons := d.absorb(target, processed)
		result.ComparisonsRun += comparisons
		if len(neighbors) > 1 {
			result.SimilarClusters++
			for _, p := range neighbors {
				uf.add(p)
			}
			for i := 1; i < len(neighbors); i++ {
				uf.union(neighbors[0], neighbors[i])
			}
		}
	}

	for _, members := range uf.groups() {
		if len(members) == 1 {
			result.Unique[members[0]] = struct{}{}
			continue
		}
		ds, err := d.selectRepresentatives(members)
		if err != nil {
			d.log.Warn("dedup: representative selection failed for cluster", zap.Error(err))
			continue
		}
		if ds == nil {
			for _, p := range members {
				result.Unique[p] = struct{}{}
			}
			continue
		}
		result.DuplicateSets = append(result.DuplicateSets, *ds)
	}

	for p := range unclassified {
		result.Unique[p] = struct{}{}
	}

	return result, nil
}

// absorb runs Stage B's candidate-pool step for target: fetch its
// (pHash, duration), recall LSH candidates, and verify each surviving
// candidate against the adaptive threshold. It always marks target (and
// any accepted neighbor) processed before returning.
func (d *Detector) absorb(target string, processed map[string]struct{}) ([]string, int) {
	ref, err := d.store.MediaInfoFor([]string{target})
	if err != nil {
		d.log.Warn("dedup: media_info_for failed", zap.String("path", target), zap.Error(err))
		processed[target] = struct{}{}
		return nil, 0
	}
	info, ok := ref[target]
	if !ok || info.PHashHex == "" || isDegenerateHash(info.PHashHex) {
		processed[target] = struct{}{}
		return nil, 0
	}
	targetMedia := mediaFromRef(info)

	bands := store.LSHBands(info.PHashHex)
	candIDs, err := d.store.FindLSHCandidates(target, bands)
	if err != nil {
		d.log.Warn("dedup: find_lsh_candidates failed", zap.String("path", target), zap.Error(err))
		processed[target] = struct{}{}
		return nil, 0
	}

	var toFetch []string
	for _, c := range candIDs {
		if c == target {
			continue
		}
		if _, done := processed[c]; done {
			continue
		}
		toFetch = append(toFetch, c)
	}

	neighbors := []string{target}
	comparisons := 0
	if len(toFetch) > 0 {
		candRefs, err := d.store.MediaInfoFor(toFetch)
		if err != nil {
			d.log.Warn("dedup: media_info_for failed for candidates", zap.String("target", target), zap.Error(err))
		} else {
			for _, c := range toFetch {
				candInfo, ok := candRefs[c]
				if !ok || candInfo.PHashHex == "" || isDegenerateHash(candInfo.PHashHex) {
					continue
				}
				candMedia := mediaFromRef(candInfo)
				comparisons++
				sim, threshold := d.similarityAndThreshold(targetMedia, candMedia)
				if sim >= threshold {
					neighbors = append(neighbors, c)
				}
			}
		}
	}

	for _, p := range neighbors {
		processed[p] = struct{}{}
	}
	return neighbors, comparisons
}

// similarityAndThreshold dispatches to the right similarity.* function
// for the pair's image/video combination and applies the duration
// pre-filter for video<->video pairs.
func (d *Detector) similarityAndThreshold(a, b mediamodel.MediaInfo) (float64, float64) {
	threshold := d.thresholds.ForPair(a.IsVideo(), b.IsVideo())

	switch {
	case !a.IsVideo() && !b.IsVideo():
		af, bf := a.HashedFrames(), b.HashedFrames()
		if len(af) == 0 || len(bf) == 0 {
			return 0, threshold
		}
		return similarity.ImageImage(af[0], bf[0]), threshold

	case a.IsVideo() && b.IsVideo():
		if d.durationMismatch(a.Duration, b.Duration) {
			return 0, threshold
		}
		return similarity.VideoVideo(a, b, d.window, threshold), threshold

	default:
		img, vid := a, b
		if a.IsVideo() {
			img, vid = b, a
		}
		imgFrames := img.HashedFrames()
		if len(imgFrames) == 0 {
			return 0, threshold
		}
		return similarity.ImageVideo(imgFrames[0], vid, threshold), threshold
	}
}

// durationMismatch reports whether a video<->video pair is skipped
// without a DTW scan: true when either duration is non-positive or the
// ratio a/b falls outside [minDurationRatio, maxDurationRatio]. A skipped
// pair is scored 0 and never clusters in Stage B, whatever its hashes.
func (d *Detector) durationMismatch(a, b float64) bool {
	if a <= 0 || b <= 0 {
		return true
	}
	ratio := a / b
	return ratio < d.minDurationRatio || ratio > d.maxDurationRatio
}

func (d *Detector) selectRepresentatives(paths []string) (*mediamodel.DuplicateSet, error) {
	members := make([]scoring.Member, 0, len(paths))
	for _, p := range paths {
		rec, err := d.store.Get(p)
		if err != nil {
			return nil, merr.Wrap(merr.Database, "dedup.selectRepresentatives", err).WithPath(p)
		}
		if rec == nil {
			continue
		}
		members = append(members, scoring.Member{Path: p, Info: fileInfoFromRecord(*rec)})
	}
	if len(members) < 2 {
		return nil, nil
	}
	return scoring.SelectRepresentatives(members, d.thresholds.Image), nil
}

func isDegenerateHash(h string) bool {
	return h == degenerateHashAllZero || h == degenerateHashTopBit
}

func mediaFromRef(ref store.MediaRef) mediamodel.MediaInfo {
	media := mediamodel.MediaInfo{Duration: ref.Duration}
	if b, err := hex.DecodeString(ref.PHashHex); err == nil && len(b) > 0 {
		media.Frames = []mediamodel.FrameInfo{{Hash: b, Timestamp: 0}}
	}
	return media
}

func fileInfoFromRecord(rec mediamodel.FileRecord) mediamodel.FileInfo {
	fi := mediamodel.FileInfo{
		Path: rec.Path,
		Stats: mediamodel.FileStats{
			Size:       rec.Size,
			CreatedAt:  time.UnixMilli(rec.CreatedAtMs),
			ModifiedAt: time.UnixMilli(rec.ModifiedAtMs),
		},
		Meta: mediamodel.Metadata{
			Width:       rec.Width,
			Height:      rec.Height,
			GPSLat:      rec.GPSLat,
			GPSLon:      rec.GPSLon,
			CameraModel: rec.CameraModel,
		},
		Media: mediamodel.MediaInfo{Duration: rec.MediaDuration},
	}
	if rec.ImageDateMs != nil {
		t := time.UnixMilli(*rec.ImageDateMs)
		fi.Meta.ImageDate = &t
	}
	if rec.PHashHex != nil {
		if b, err := hex.DecodeString(*rec.PHashHex); err == nil && len(b) > 0 {
			fi.Media.Frames = []mediamodel.FrameInfo{{Hash: b, Timestamp: 0}}
		}
	}
	return fi
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) add(x string) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
}

func (u *unionFind) find(x string) string {
	u.add(x)
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func (u *unionFind) groups() map[string][]string {
	out := make(map[string][]string)
	for x := range u.parent {
		r := u.find(x)
		out[r] = append(out[r], x)
	}
	return out
}
