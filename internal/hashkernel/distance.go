// Package hashkernel implements the Hamming-distance kernel (spec §4.1):
// the single primitive every similarity computation in this repository
// is built on. It is grounded on CineVault's internal/fingerprint
// HammingDistance, generalized from fixed hex strings to arbitrary byte
// buffers and given a word-parallel fast path gated by CPU feature
// detection instead of a nibble-at-a-time hex loop.
package hashkernel

import (
	"encoding/binary"
	"log"
	"math/bits"
	"sync"

	"golang.org/x/sys/cpu"
)

var (
	fastPathOnce    sync.Once
	fastPathEnabled bool
)

// fastPathAvailable reports whether the word-parallel popcount path
// should be used. It is gated on a CPU feature check (mirroring the
// "SIMD fast path... if it fails, log once and fall back" contract in
// spec §4.1); math/bits.OnesCount64 itself compiles to a hardware POPCNT
// on platforms that advertise it, which is the actual SIMD-equivalent
// acceleration here — the feature probe exists to make that gating an
// observable, loggable decision rather than an unconditional assumption.
func fastPathAvailable() bool {
	fastPathOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hashkernel: CPU feature probe panicked (%v); using scalar distance path", r)
				fastPathEnabled = false
			}
		}()
		fastPathEnabled = cpu.X86.HasPOPCNT || cpu.ARM64.HasASIMD
		if !fastPathEnabled {
			log.Printf("hashkernel: no POPCNT/ASIMD support detected; using scalar distance path")
		}
	})
	return fastPathEnabled
}

// Distance returns the Hamming distance (bit-count of XOR) between a and
// b over the first min(len(a), len(b)) bytes; any excess bytes of the
// longer input are popcounted against zero. Equal-length inputs (the
// normal case) yield classical Hamming distance. Zero-length inputs
// yield 0. No allocation occurs.
func Distance(a, b []byte) int {
	if fastPathAvailable() {
		return distanceWords(a, b)
	}
	return distanceScalar(a, b)
}

// distanceWords processes 8 bytes at a time via math/bits.OnesCount64,
// which the Go compiler lowers to a hardware popcount instruction on
// platforms that have one.
func distanceWords(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dist := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		wa := binary.LittleEndian.Uint64(a[i : i+8])
		wb := binary.LittleEndian.Uint64(b[i : i+8])
		dist += bits.OnesCount64(wa ^ wb)
	}
	for ; i < n; i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	dist += tailPopcount(a, n)
	dist += tailPopcount(b, n)
	return dist
}

func distanceScalar(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dist := 0
	for i := 0; i < n; i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	dist += tailPopcount(a, n)
	dist += tailPopcount(b, n)
	return dist
}

// tailPopcount counts the bits of buf[from:] against an implicit
// all-zero partner, implementing the "excess bytes of the longer input
// are popcounted against zero" rule.
func tailPopcount(buf []byte, from int) int {
	dist := 0
	for i := from; i < len(buf); i++ {
		dist += bits.OnesCount8(buf[i])
	}
	return dist
}
