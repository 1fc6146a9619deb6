package hashkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSymmetryAndIdentity(t *testing.T) {
	a := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11}
	b := []byte{0xAB, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x12}

	assert.Equal(t, Distance(a, b), Distance(b, a))
	assert.Equal(t, 0, Distance(a, a))
}

func TestDistanceZeroLength(t *testing.T) {
	assert.Equal(t, 0, Distance(nil, nil))
	assert.Equal(t, 0, Distance([]byte{}, []byte{}))
}

func TestDistanceExcessBytesCountedAgainstZero(t *testing.T) {
	short := []byte{0x00}
	long := []byte{0x00, 0xFF} // one extra byte, all bits set
	assert.Equal(t, 8, Distance(short, long))
	assert.Equal(t, 8, Distance(long, short))
}

func TestDistanceKnownValue(t *testing.T) {
	a := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x11}
	b := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x12}
	// 0x11 = 00010001, 0x12 = 00010010, XOR = 00000011 -> 2 bits
	assert.Equal(t, 2, Distance(a, b))
}

func TestDistanceOddLength(t *testing.T) {
	a := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 11}
	assert.Equal(t, Distance(a, b), distanceScalar(a, b))
}
