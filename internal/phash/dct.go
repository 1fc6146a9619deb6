// Package phash implements the DCT median perceptual hash from spec
// §4.6.1. It is grounded on the DCT-then-threshold approach shown in
// aa514eed_luinbytes-file-deduplicator/perceptual.go (pHash via a
// separable 2-D DCT over a downscaled grayscale tile) and on
// corona10/goimagehash's production PerceptionHash, but implements the
// spec's exact median-of-AC-coefficients threshold (goimagehash and the
// luinbytes reference both threshold on the mean) via Quickselect, and
// packs the resulting bits little-endian into a fixed byte buffer per
// mediamodel.FrameHash.
package phash

import (
	"fmt"
	"math"
	"sync"

	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
)

// Hasher computes DCT median perceptual hashes for a fixed resolution R
// and hash grid dimension hashSize (hash is hashSize^2 bits).
type Hasher struct {
	resolution int
	hashSize   int

	mu      sync.Mutex
	tables  map[int]*dctTables
}

// dctTables holds the precomputed cosine coefficients and normalization
// factors for one R, reused across every hash computed at that R.
type dctTables struct {
	cos [][]float64 // [u][x], u in [0,hashSize), x in [0,R)
	nf  []float64   // [u]
}

// NewHasher constructs a Hasher. Defaults match spec §6: resolution=64,
// hashSize=8 (64-bit hash).
func NewHasher(resolution, hashSize int) *Hasher {
	if resolution <= 0 {
		resolution = 64
	}
	if hashSize <= 0 {
		hashSize = 8
	}
	return &Hasher{resolution: resolution, hashSize: hashSize, tables: make(map[int]*dctTables)}
}

func (h *Hasher) Resolution() int { return h.resolution }
func (h *Hasher) HashSize() int   { return h.hashSize }

// ByteLength returns the number of bytes a hash produced by this Hasher
// occupies: hashSize^2 bits, rounded up to a whole byte.
func (h *Hasher) ByteLength() int {
	bits := h.hashSize * h.hashSize
	return (bits + 7) / 8
}

func (h *Hasher) tablesFor(r int) *dctTables {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.tables[r]; ok {
		return t
	}
	t := buildDCTTables(r, h.hashSize)
	h.tables[r] = t
	return t
}

// buildDCTTables precomputes the DCT-II cosine coefficients and
// normalization factors for u in [0, hashSize), x in [0, R), per §4.6.1.
func buildDCTTables(r, hashSize int) *dctTables {
	cos := make([][]float64, hashSize)
	for u := 0; u < hashSize; u++ {
		row := make([]float64, r)
		for x := 0; x < r; x++ {
			row[x] = math.Cos(math.Pi / float64(r) * (float64(x) + 0.5) * float64(u))
		}
		cos[u] = row
	}
	nf := make([]float64, hashSize)
	nf[0] = math.Sqrt(2.0/float64(r)) / math.Sqrt2
	for i := 1; i < hashSize; i++ {
		nf[i] = math.Sqrt(2.0 / float64(r))
	}
	return &dctTables{cos: cos, nf: nf}
}

// Hash computes the DCT median perceptual hash of an R*R grayscale tile
// (gray is row-major, one byte per pixel, length R*R). It applies a
// row-limited DCT followed by a column-limited DCT (both limited to the
// first hashSize frequencies), takes the median of the absolute values of
// the AC coefficients (everything but index 0) via Quickselect, and sets
// bit i when
// coefficient i (row-major over the hashSize x hashSize grid) is
// strictly greater than the median.
func (h *Hasher) Hash(gray []byte) (mediamodel.FrameHash, error) {
	r := h.resolution
	if len(gray) != r*r {
		return nil, errTileSize(r, len(gray))
	}
	t := h.tablesFor(r)

	// Row DCT: for each input row y, produce hashSize frequency bins.
	rowDCT := make([][]float64, r)
	for y := 0; y < r; y++ {
		rowDCT[y] = make([]float64, h.hashSize)
		for u := 0; u < h.hashSize; u++ {
			var sum float64
			cosRow := t.cos[u]
			for x := 0; x < r; x++ {
				sum += float64(gray[y*r+x]) * cosRow[x]
			}
			rowDCT[y][u] = sum * t.nf[u]
		}
	}

	// Column DCT: for each of the hashSize frequency columns produced
	// above, reduce the R rows down to hashSize frequency bins.
	coeffs := make([]float64, h.hashSize*h.hashSize)
	for u := 0; u < h.hashSize; u++ {
		for v := 0; v < h.hashSize; v++ {
			var sum float64
			cosCol := t.cos[v]
			for y := 0; y < r; y++ {
				sum += rowDCT[y][u] * cosCol[y]
			}
			coeffs[u*h.hashSize+v] = sum * t.nf[v]
		}
	}

	median := medianAbsAC(coeffs)

	buf := make([]byte, h.ByteLength())
	for i, c := range coeffs {
		if c > median {
			buf[i/8] |= 1 << uint(i%8)
		}
	}
	return mediamodel.FrameHash(buf), nil
}

// medianAbsAC returns the median of the absolute values of all
// coefficients except index 0 (the DC component), via Quickselect.
func medianAbsAC(coeffs []float64) float64 {
	ac := make([]float64, 0, len(coeffs)-1)
	for i, c := range coeffs {
		if i == 0 {
			continue
		}
		v := c
		if v < 0 {
			v = -v
		}
		ac = append(ac, v)
	}
	if len(ac) == 0 {
		return 0
	}
	return quickselectMedian(ac)
}

// quickselectMedian returns the median of vals using Lomuto-partition
// Quickselect. For even-length slices it averages the two middle
// elements, matching the conventional statistical median.
func quickselectMedian(vals []float64) float64 {
	n := len(vals)
	work := make([]float64, n)
	copy(work, vals)

	mid := n / 2
	lo := quickselect(work, mid)
	if n%2 == 1 {
		return lo
	}
	// Need the element just below mid too: select rank mid-1 over a fresh
	// copy of vals.
	work2 := make([]float64, n)
	copy(work2, vals)
	hi := quickselect(work2, mid-1)
	return (lo + hi) / 2
}

// quickselect returns the k-th smallest element (0-indexed) of vals,
// partially reordering vals in place.
func quickselect(vals []float64, k int) float64 {
	lo, hi := 0, len(vals)-1
	for {
		if lo == hi {
			return vals[lo]
		}
		p := partition(vals, lo, hi)
		if k == p {
			return vals[k]
		} else if k < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(vals []float64, lo, hi int) int {
	pivot := vals[(lo+hi)/2]
	vals[(lo+hi)/2], vals[hi] = vals[hi], vals[(lo+hi)/2]
	store := lo
	for i := lo; i < hi; i++ {
		if vals[i] < pivot {
			vals[i], vals[store] = vals[store], vals[i]
			store++
		}
	}
	vals[store], vals[hi] = vals[hi], vals[store]
	return store
}

func errTileSize(r, got int) error {
	return fmt.Errorf("phash: expected %d grayscale bytes, got %d", r*r, got)
}
