// Package scoring implements the deterministic file score and the
// representative-selection policy from spec §4.3. Grounded on CineVault's
// internal/fingerprint ranking helpers (a weighted, additive score over a
// media record) generalized to the richer FileInfo shape this engine
// carries, and tested against the monotonicity properties the scoring
// formula must satisfy.
package scoring

import (
	"math"
	"sort"

	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
	"github.com/sylphlab/sotimediaorganizer/internal/similarity"
)

// Member pairs a FileInfo with its path, the unit representative selection
// and clustering operate over.
type Member struct {
	Path string
	Info mediamodel.FileInfo
}

// Score computes the deterministic ranking score of a FileInfo per spec
// §4.3: videos outrank stills by a flat bonus plus a log-duration term;
// within a type, richer metadata and higher resolution/size win.
func Score(fi mediamodel.FileInfo) float64 {
	var s float64
	if fi.Media.Duration > 0 {
		s += 10000
	}
	s += 100 * math.Log(math.Max(1, fi.Media.Duration+1))
	if fi.Meta.ImageDate != nil {
		s += 2000
	}
	if fi.Meta.HasGPS() {
		s += 300
	}
	if fi.Meta.CameraModel != nil {
		s += 200
	}
	if q := fi.Meta.Quality(); q > 0 {
		s += math.Sqrt(float64(q))
	}
	s += 5 * math.Log(float64(fi.Stats.Size)+1)
	return s
}

// SortDescending stably sorts members by Score descending, breaking ties
// by preserving input order (Go's sort.SliceStable guarantees this).
func SortDescending(members []Member) {
	sort.SliceStable(members, func(i, j int) bool {
		return Score(members[i].Info) > Score(members[j].Info)
	})
}

// SelectRepresentatives runs the §4.3 representative-selection policy over
// a cluster; a cluster of fewer than 2 members yields nil. imgTh is
// the image<->image similarity threshold used to disqualify near-duplicate
// captures. It returns nil if the policy would yield a single
// representative with no other members, signaling the caller to demote the
// cluster to unique instead of emitting a DuplicateSet.
func SelectRepresentatives(members []Member, imgTh float64) *mediamodel.DuplicateSet {
	if len(members) < 2 {
		return nil
	}

	ordered := make([]Member, len(members))
	copy(ordered, members)
	SortDescending(ordered)

	best := ordered[0]
	reps := map[string]struct{}{best.Path: {}}

	if best.Info.Media.IsVideo() {
		bestQuality := best.Info.Meta.Quality()
		bestHasDate := best.Info.Meta.ImageDate != nil

		var keptFrames []mediamodel.FrameInfo
		for _, m := range ordered[1:] {
			if !m.Info.Media.IsImage() {
				continue
			}
			if m.Info.Meta.Quality() < bestQuality {
				continue
			}
			if bestHasDate && m.Info.Meta.ImageDate == nil {
				continue
			}
			frames := m.Info.Media.HashedFrames()
			if len(frames) == 0 {
				continue
			}
			candidate := frames[0]

			nearDup := false
			for _, kept := range keptFrames {
				if similarity.ImageImage(candidate, kept) >= imgTh {
					nearDup = true
					break
				}
			}
			if nearDup {
				continue
			}
			keptFrames = append(keptFrames, candidate)
			reps[m.Path] = struct{}{}
		}
	}

	duplicates := make(map[string]struct{}, len(ordered)-len(reps))
	for _, m := range ordered {
		if _, ok := reps[m.Path]; !ok {
			duplicates[m.Path] = struct{}{}
		}
	}

	if len(reps) == 1 && len(duplicates) == 0 {
		return nil
	}

	return &mediamodel.DuplicateSet{
		Best:            best.Path,
		Representatives: reps,
		Duplicates:      duplicates,
	}
}
