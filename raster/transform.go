package raster

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// TransformFunc transforms one batch of coordinate tuples in place and
// reports per-pixel success. The three slices have equal length; zs is always
// present even when the pipeline has no Z band.
type TransformFunc func(xs, ys, zs []float64) []bool

// ProgressFunc receives fractional progress in (0,1]. Returning false cancels
// the operation.
type ProgressFunc func(complete float64) bool

// TransformGeolocations rewrites the coordinate tuples held in the X and Y
// bands (and Z band, when non-nil) by streaming them through transform one
// row at a time: read row, one batched transform call, write row back,
// report progress.
//
// Any read or write failure aborts immediately; rows already written keep
// their transformed values. A progress callback returning false aborts with
// ErrCancelled. Per-pixel success flags from transform are not inspected:
// a failed pixel's output is whatever the callback left in the slices.
func TransformGeolocations(xBand, yBand, zBand *Band, transform TransformFunc, progress ProgressFunc) error {
	if xBand == nil || yBand == nil {
		return fmt.Errorf("%w: X and Y bands are required", ErrInvalidArgument)
	}
	if transform == nil {
		return fmt.Errorf("%w: nil transform", ErrInvalidArgument)
	}
	width, height := xBand.Width(), xBand.Height()
	if yBand.Width() != width || yBand.Height() != height {
		return fmt.Errorf("%w: Y band is %dx%d, X band is %dx%d",
			ErrInvalidArgument, yBand.Width(), yBand.Height(), width, height)
	}
	if zBand != nil && (zBand.Width() != width || zBand.Height() != height) {
		return fmt.Errorf("%w: Z band is %dx%d, X band is %dx%d",
			ErrInvalidArgument, zBand.Width(), zBand.Height(), width, height)
	}

	xs := make([]float64, width)
	ys := make([]float64, width)
	zs := make([]float64, width)

	for row := 0; row < height; row++ {
		if err := xBand.Read(0, row, xs, width, 1); err != nil {
			return fmt.Errorf("reading X row %d: %w", row, err)
		}
		if err := yBand.Read(0, row, ys, width, 1); err != nil {
			return fmt.Errorf("reading Y row %d: %w", row, err)
		}
		if zBand != nil {
			if err := zBand.Read(0, row, zs, width, 1); err != nil {
				return fmt.Errorf("reading Z row %d: %w", row, err)
			}
		} else {
			clear(zs)
		}

		transform(xs, ys, zs)

		if err := xBand.Write(0, row, xs, width, 1); err != nil {
			return fmt.Errorf("writing X row %d: %w", row, err)
		}
		if err := yBand.Write(0, row, ys, width, 1); err != nil {
			return fmt.Errorf("writing Y row %d: %w", row, err)
		}
		if zBand != nil {
			if err := zBand.Write(0, row, zs, width, 1); err != nil {
				return fmt.Errorf("writing Z row %d: %w", row, err)
			}
		}

		if progress != nil && !progress(float64(row+1)/float64(height)) {
			return fmt.Errorf("%w: progress callback at row %d", ErrCancelled, row)
		}
	}
	return nil
}

// MercatorTransform returns a TransformFunc projecting WGS84 longitude and
// latitude (degrees) to Web Mercator meters. Z passes through untouched.
func MercatorTransform() TransformFunc {
	return func(xs, ys, zs []float64) []bool {
		ok := make([]bool, len(xs))
		for i := range xs {
			p := project.WGS84.ToMercator(orb.Point{xs[i], ys[i]})
			xs[i], ys[i] = p[0], p[1]
			ok[i] = true
		}
		return ok
	}
}

// InverseMercatorTransform returns the inverse of MercatorTransform.
func InverseMercatorTransform() TransformFunc {
	return func(xs, ys, zs []float64) []bool {
		ok := make([]bool, len(xs))
		for i := range xs {
			p := project.Mercator.ToWGS84(orb.Point{xs[i], ys[i]})
			xs[i], ys[i] = p[0], p[1]
			ok[i] = true
		}
		return ok
	}
}
