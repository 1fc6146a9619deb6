package mediaio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectTagsPrefersFirstPresentDateAlias(t *testing.T) {
	tags := map[string]string{
		"CreateDate":         "2020:05:01 10:00:00",
		"MediaCreateDate":    "2019:01:01 00:00:00",
		"DateTimeOriginal":   "",
	}
	date, _, _, _, _, _ := ProjectTags(tags)
	require.NotNil(t, date)
	assert.Equal(t, 2020, date.Year())
}

func TestProjectTagsRejectsDateBefore1980(t *testing.T) {
	tags := map[string]string{"DateTimeOriginal": "1975:01:01 00:00:00"}
	date, _, _, _, _, _ := ProjectTags(tags)
	assert.Nil(t, date)
}

func TestProjectTagsDimensionAliasFallback(t *testing.T) {
	tags := map[string]string{"ExifImageWidth": "1920", "ExifImageHeight": "1080"}
	_, width, height, _, _, _ := ProjectTags(tags)
	require.NotNil(t, width)
	require.NotNil(t, height)
	assert.Equal(t, 1920, *width)
	assert.Equal(t, 1080, *height)
}

func TestProjectTagsGPSAndCamera(t *testing.T) {
	tags := map[string]string{
		"GPSLatitude":  "37.7749",
		"GPSLongitude": "-122.4194",
		"Model":        "Canon EOS R5",
	}
	_, _, _, lat, lon, camera := ProjectTags(tags)
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	require.NotNil(t, camera)
	assert.InDelta(t, 37.7749, *lat, 1e-6)
	assert.Equal(t, "Canon EOS R5", *camera)
}

func TestProjectTagsEmptyMapYieldsAllNil(t *testing.T) {
	date, width, height, lat, lon, camera := ProjectTags(map[string]string{})
	assert.Nil(t, date)
	assert.Nil(t, width)
	assert.Nil(t, height)
	assert.Nil(t, lat)
	assert.Nil(t, lon)
	assert.Nil(t, camera)
}
