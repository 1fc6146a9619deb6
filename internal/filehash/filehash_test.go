package filehash

import (
	"bytes"
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestComputeSmallFileUsesFullMD5(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 100)
	path := writeTemp(t, data)

	stats, err := Compute(path, 1024)
	require.NoError(t, err)

	want := md5.Sum(data)
	assert.Equal(t, want[:], stats.ContentHash)
	assert.Equal(t, int64(100), stats.Size)
}

func TestComputeLargeFileUsesPartialMD5(t *testing.T) {
	maxChunk := int64(64)
	size := 1000
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := writeTemp(t, data)

	stats, err := Compute(path, maxChunk)
	require.NoError(t, err)

	half := maxChunk / 2
	want := md5.New()
	want.Write(data[:half])
	want.Write(data[int64(size)-half:])
	assert.Equal(t, want.Sum(nil), stats.ContentHash)
}

func TestComputeIsStableAcrossCalls(t *testing.T) {
	data := bytes.Repeat([]byte{0x01, 0x02}, 2000)
	path := writeTemp(t, data)

	s1, err := Compute(path, 512)
	require.NoError(t, err)
	s2, err := Compute(path, 512)
	require.NoError(t, err)
	assert.Equal(t, s1.ContentHash, s2.ContentHash)
}

func TestHexEncodesContentHash(t *testing.T) {
	data := []byte("hello")
	path := writeTemp(t, data)
	stats, err := Compute(path, 1024)
	require.NoError(t, err)
	assert.Len(t, Hex(stats), 32)
}
