package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
)

func frame(hashHex []byte, ts float64) mediamodel.FrameInfo {
	return mediamodel.FrameInfo{Hash: mediamodel.FrameHash(hashHex), Timestamp: ts}
}

func TestImageImageReflexivity(t *testing.T) {
	f := frame([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11}, 0)
	assert.Equal(t, 1.0, ImageImage(f, f))
}

func TestImageImageMissingHashIsZero(t *testing.T) {
	f1 := frame([]byte{0xAA}, 0)
	f2 := mediamodel.FrameInfo{Timestamp: 0}
	assert.Equal(t, 0.0, ImageImage(f1, f2))
}

func TestImageImageEmptyHashTreatedAsMissing(t *testing.T) {
	// A zero-length hash fails HasHash, so a pair of them is the same
	// "missing on both sides" case as TestImageImageMissingHashIsZero,
	// not the vacuous "nothing to disagree on" case.
	f1 := mediamodel.FrameInfo{Hash: mediamodel.FrameHash{}, Timestamp: 0}
	f2 := mediamodel.FrameInfo{Hash: mediamodel.FrameHash{}, Timestamp: 0}
	assert.Equal(t, 0.0, ImageImage(f1, f2))
}

func TestImageImageKnownDistance(t *testing.T) {
	a := frame([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11}, 0)
	b := frame([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x10}, 0) // 1 bit differs
	sim := ImageImage(a, b)
	assert.InDelta(t, 1-1.0/64.0, sim, 1e-9)
}

func TestSimilarityRangeAllInZeroOne(t *testing.T) {
	a := frame([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, 0)
	b := frame([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, 0)
	sim := ImageImage(a, b)
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.LessOrEqual(t, sim, 1.0)
}

func TestDTWIdenticalSequencesIsOne(t *testing.T) {
	seq := []mediamodel.FrameInfo{
		frame([]byte{0x00, 0x00}, 0),
		frame([]byte{0xFF, 0x00}, 1),
		frame([]byte{0x0F, 0x0F}, 2),
	}
	assert.Equal(t, 1.0, DTWSimilarity(seq, seq))
}

func TestDTWEmptyBothIsOne(t *testing.T) {
	assert.Equal(t, 1.0, DTWSimilarity(nil, nil))
}

func TestDTWOneEmptyIsZero(t *testing.T) {
	seq := []mediamodel.FrameInfo{frame([]byte{0x00}, 0)}
	assert.Equal(t, 0.0, DTWSimilarity(nil, seq))
}

func TestDTWBoundsInZeroOne(t *testing.T) {
	a := []mediamodel.FrameInfo{frame([]byte{0x00}, 0), frame([]byte{0x0F}, 1)}
	b := []mediamodel.FrameInfo{frame([]byte{0xFF}, 0), frame([]byte{0xF0}, 1), frame([]byte{0x01}, 2)}
	sim := DTWSimilarity(a, b)
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.LessOrEqual(t, sim, 1.0)
}

func TestThresholdForPairSelectsConfiguredValue(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, th.Image, th.ForPair(false, false))
	assert.Equal(t, th.Video, th.ForPair(true, true))
	assert.Equal(t, th.ImageVideo, th.ForPair(true, false))
	assert.Equal(t, th.ImageVideo, th.ForPair(false, true))
}

func TestVideoVideoIdenticalIsOne(t *testing.T) {
	media := mediamodel.MediaInfo{
		Duration: 3,
		Frames: []mediamodel.FrameInfo{
			frame([]byte{0x00}, 0),
			frame([]byte{0x0F}, 1),
			frame([]byte{0xFF}, 2),
		},
	}
	sim := VideoVideo(media, media, DefaultWindowConfig(), 0.93)
	assert.InDelta(t, 1.0, sim, 1e-9)
}
