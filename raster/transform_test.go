package raster_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-raster/driver/mem"
	"github.com/robert-malhotra/go-raster/raster"
)

func geolocBands(t *testing.T, width, height, bands int) (*raster.Dataset, []*raster.Band) {
	t.Helper()
	ds := raster.NewDataset(mem.New(width, height, bands, raster.Float64))
	out := make([]*raster.Band, bands)
	for i := range out {
		band, err := ds.Band(i + 1)
		require.NoError(t, err)
		out[i] = band
	}
	return ds, out
}

func negate(xs, ys, zs []float64) []bool {
	ok := make([]bool, len(xs))
	for i := range xs {
		xs[i], ys[i], zs[i] = -xs[i], -ys[i], -zs[i]
		ok[i] = true
	}
	return ok
}

func TestTransformGeolocationsNegates(t *testing.T) {
	_, bands := geolocBands(t, 2, 3, 2)
	xBand, yBand := bands[0], bands[1]

	xs := []float64{1, 2, 3, 4, 5, 6}
	ys := []float64{10, 20, 30, 40, 50, 60}
	require.NoError(t, xBand.Write(0, 0, xs, 2, 3))
	require.NoError(t, yBand.Write(0, 0, ys, 2, 3))

	var progress []float64
	err := raster.TransformGeolocations(xBand, yBand, nil, negate, func(complete float64) bool {
		progress = append(progress, complete)
		return true
	})
	require.NoError(t, err)

	gotX := make([]float64, 6)
	gotY := make([]float64, 6)
	require.NoError(t, xBand.Read(0, 0, gotX, 2, 3))
	require.NoError(t, yBand.Read(0, 0, gotY, 2, 3))
	assert.Equal(t, []float64{-1, -2, -3, -4, -5, -6}, gotX)
	assert.Equal(t, []float64{-10, -20, -30, -40, -50, -60}, gotY)

	require.Len(t, progress, 3)
	assert.InDelta(t, 1.0/3.0, progress[0], 1e-12)
	assert.InDelta(t, 2.0/3.0, progress[1], 1e-12)
	assert.InDelta(t, 1.0, progress[2], 1e-12)
}

func TestTransformGeolocationsZBand(t *testing.T) {
	_, bands := geolocBands(t, 2, 2, 3)
	xBand, yBand, zBand := bands[0], bands[1], bands[2]

	require.NoError(t, xBand.Write(0, 0, []float64{1, 1, 1, 1}, 2, 2))
	require.NoError(t, yBand.Write(0, 0, []float64{2, 2, 2, 2}, 2, 2))
	require.NoError(t, zBand.Write(0, 0, []float64{3, 3, 3, 3}, 2, 2))

	require.NoError(t, raster.TransformGeolocations(xBand, yBand, zBand, negate, nil))

	gotZ := make([]float64, 4)
	require.NoError(t, zBand.Read(0, 0, gotZ, 2, 2))
	assert.Equal(t, []float64{-3, -3, -3, -3}, gotZ)
}

func TestTransformGeolocationsCancelled(t *testing.T) {
	_, bands := geolocBands(t, 2, 3, 2)
	xBand, yBand := bands[0], bands[1]
	require.NoError(t, xBand.Write(0, 0, []float64{1, 2, 3, 4, 5, 6}, 2, 3))

	calls := 0
	err := raster.TransformGeolocations(xBand, yBand, nil, negate, func(complete float64) bool {
		calls++
		return false
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrCancelled), "got %v", err)
	assert.Equal(t, 1, calls)

	// The first row was already written back before cancellation.
	got := make([]float64, 6)
	require.NoError(t, xBand.Read(0, 0, got, 2, 3))
	assert.Equal(t, []float64{-1, -2, 3, 4, 5, 6}, got)
}

func TestTransformGeolocationsIOFailureAborts(t *testing.T) {
	d := mem.New(2, 3, 2, raster.Float64)
	ds := raster.NewDataset(d)
	xBand, err := ds.Band(1)
	require.NoError(t, err)
	yBand, err := ds.Band(2)
	require.NoError(t, err)

	// Each row costs four line transfers (two reads, two writes); fail
	// during the second row.
	d.SetFailAfter(5)

	rows := 0
	err = raster.TransformGeolocations(xBand, yBand, nil, negate, func(complete float64) bool {
		rows++
		return true
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrBackend), "got %v", err)
	assert.Equal(t, 1, rows, "no further rows after the failing one")
}

func TestTransformGeolocationsValidation(t *testing.T) {
	_, bands := geolocBands(t, 2, 2, 2)
	_, other := geolocBands(t, 3, 2, 1)

	err := raster.TransformGeolocations(bands[0], other[0], nil, negate, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrInvalidArgument), "got %v", err)

	err = raster.TransformGeolocations(nil, bands[1], nil, negate, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrInvalidArgument), "got %v", err)

	err = raster.TransformGeolocations(bands[0], bands[1], nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrInvalidArgument), "got %v", err)
}

func TestTransformGeolocationsIgnoresPerPixelFailure(t *testing.T) {
	_, bands := geolocBands(t, 2, 1, 2)
	xBand, yBand := bands[0], bands[1]
	require.NoError(t, xBand.Write(0, 0, []float64{1, 2}, 2, 1))

	// The callback flags the second pixel as failed but leaves a sentinel in
	// it; the pipeline must keep going and write back whatever was left.
	flagged := func(xs, ys, zs []float64) []bool {
		ok := make([]bool, len(xs))
		xs[0] = -xs[0]
		ok[0] = true
		xs[1] = -9999
		ok[1] = false
		return ok
	}
	require.NoError(t, raster.TransformGeolocations(xBand, yBand, nil, flagged, nil))

	got := make([]float64, 2)
	require.NoError(t, xBand.Read(0, 0, got, 2, 1))
	assert.Equal(t, []float64{-1, -9999}, got)
}

func TestMercatorTransformRoundTrip(t *testing.T) {
	xs := []float64{0, 90}
	ys := []float64{0, 45}
	zs := make([]float64, 2)

	raster.MercatorTransform()(xs, ys, zs)
	assert.InDelta(t, 0, xs[0], 1e-6)
	assert.InDelta(t, 0, ys[0], 1e-6)
	assert.InDelta(t, 10018754.17, xs[1], 1.0)

	raster.InverseMercatorTransform()(xs, ys, zs)
	assert.InDelta(t, 90, xs[1], 1e-6)
	assert.InDelta(t, 45, ys[1], 1e-6)
}
