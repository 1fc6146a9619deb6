package phash

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylphlab/sotimediaorganizer/internal/hashkernel"
)

func gradientTile(r int) []byte {
	buf := make([]byte, r*r)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			buf[y*r+x] = byte((x * 255) / (r - 1))
		}
	}
	return buf
}

func TestHashReflexivity(t *testing.T) {
	h := NewHasher(64, 8)
	tile := gradientTile(64)
	a, err := h.Hash(tile)
	require.NoError(t, err)
	b, err := h.Hash(tile)
	require.NoError(t, err)
	assert.Equal(t, 0, hashkernel.Distance(a, b))
}

func TestHashByteLength(t *testing.T) {
	h := NewHasher(64, 8)
	assert.Equal(t, 8, h.ByteLength())
	tile := gradientTile(64)
	hash, err := h.Hash(tile)
	require.NoError(t, err)
	assert.Len(t, hash, 8)
}

func TestHashRejectsWrongTileSize(t *testing.T) {
	h := NewHasher(64, 8)
	_, err := h.Hash(make([]byte, 10))
	assert.Error(t, err)
}

func TestHashSmallPerturbationSmallDistance(t *testing.T) {
	h := NewHasher(64, 8)
	base := gradientTile(64)
	perturbed := make([]byte, len(base))
	copy(perturbed, base)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		idx := rng.Intn(len(perturbed))
		delta := rng.Intn(5) - 2
		v := int(perturbed[idx]) + delta
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		perturbed[idx] = byte(v)
	}

	h1, err := h.Hash(base)
	require.NoError(t, err)
	h2, err := h.Hash(perturbed)
	require.NoError(t, err)

	dist := hashkernel.Distance(h1, h2)
	assert.Less(t, dist, 32, "small photometric noise should not flip more than half the bits")
}

func TestQuickselectMedianMatchesSortedMedian(t *testing.T) {
	vals := []float64{5, 1, 4, 2, 8, 3, 7, 6}
	got := quickselectMedian(vals)
	assert.InDelta(t, 4.5, got, 1e-9)

	odd := []float64{9, 1, 5, 3, 7}
	gotOdd := quickselectMedian(odd)
	assert.InDelta(t, 5.0, gotOdd, 1e-9)
}
