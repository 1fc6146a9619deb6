package phash

import (
	"image"

	"github.com/corona10/goimagehash"
)

// SceneScorer computes a cheap per-frame-transition score used by the
// frame extractor's scene-change predicate (spec §4.6). It is grounded
// on corona10/goimagehash's AverageHash: much cheaper than the DCT median
// hash this package otherwise computes, and a good enough proxy for "did
// the frame change" since we only need a threshold crossing, not a final
// similarity value.
type SceneScorer struct{}

// NewSceneScorer constructs a SceneScorer.
func NewSceneScorer() *SceneScorer { return &SceneScorer{} }

// Score returns a value in [0,1] estimating how much prevGray and
// curGray differ (0 = identical, 1 = maximally different), for two R*R
// grayscale tiles of the same resolution. Decode failures degrade to a
// score of 1 (treat as a scene change) so a corrupt sample never
// silently suppresses frame selection.
func (s *SceneScorer) Score(prevGray, curGray []byte, r int) float64 {
	prevImg := toGrayImage(prevGray, r)
	curImg := toGrayImage(curGray, r)

	prevHash, err := goimagehash.AverageHash(prevImg)
	if err != nil {
		return 1
	}
	curHash, err := goimagehash.AverageHash(curImg)
	if err != nil {
		return 1
	}
	dist, err := prevHash.Distance(curHash)
	if err != nil {
		return 1
	}
	return float64(dist) / 64.0
}

func toGrayImage(gray []byte, r int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r, r))
	copy(img.Pix, gray)
	return img
}
