package jobcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Resolution int     `json:"resolution"`
	Threshold  float64 `json:"threshold"`
}

func TestEncodeDecodeStructuredMapRoundTrips(t *testing.T) {
	in := sampleConfig{Resolution: 64, Threshold: 0.98}
	data, err := encode(in)
	require.NoError(t, err)
	assert.Equal(t, byte(tagStructuredMap), data[0])

	var out sampleConfig
	legacy, err := decode(data, &out)
	require.NoError(t, err)
	assert.False(t, legacy)
	assert.Equal(t, in, out)
}

func TestEncodeDecodeOpaqueBufferRoundTrips(t *testing.T) {
	in := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data, err := encode(in)
	require.NoError(t, err)
	assert.Equal(t, byte(tagOpaqueBuffer), data[0])

	var out []byte
	_, err = decode(data, &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeDecodeDateTimeRoundTrips(t *testing.T) {
	in := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	data, err := encode(in)
	require.NoError(t, err)
	assert.Equal(t, byte(tagDateTime), data[0])

	var out time.Time
	_, err = decode(data, &out)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestDecodeLegacyUntaggedPayloadFallsBackToStructuredMap(t *testing.T) {
	legacyJSON := []byte(`{"resolution":32,"threshold":0.5}`)
	var out sampleConfig
	legacy, err := decode(legacyJSON, &out)
	require.NoError(t, err)
	assert.True(t, legacy)
	assert.Equal(t, sampleConfig{Resolution: 32, Threshold: 0.5}, out)
}

func TestEncodeIsDeterministicForDeepCompare(t *testing.T) {
	a, err := encode(sampleConfig{Resolution: 64, Threshold: 0.98})
	require.NoError(t, err)
	b, err := encode(sampleConfig{Resolution: 64, Threshold: 0.98})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := encode(sampleConfig{Resolution: 32, Threshold: 0.98})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
